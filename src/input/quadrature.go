package input

// stepsPerDetent is how many state changes one click of the encoder produces
const stepsPerDetent = 4

// Quadrature walks the encoder's Gray-code states and reports one rotate
// event per detent.
type Quadrature struct {
	state    uint8
	count    int8
	inverted bool
}

// NewQuadrature creates a decoder in the resting state. inverted swaps the
// reported direction for encoders wired the other way round.
func NewQuadrature(inverted bool) *Quadrature {
	return &Quadrature{state: 2, inverted: inverted}
}

// Update feeds the current level of both encoder pins
func (q *Quadrature) Update(en1, en2 bool) (Event, bool) {
	switch q.state {
	case 0:
		if en1 {
			q.step(+1, 1)
		} else if en2 {
			q.step(-1, 3)
		}
	case 1:
		if !en1 {
			q.step(-1, 0)
		} else if en2 {
			q.step(+1, 2)
		}
	case 2:
		if !en1 {
			q.step(+1, 3)
		} else if !en2 {
			q.step(-1, 1)
		}
	case 3:
		if !en1 {
			q.step(+1, 0)
		} else if en2 {
			q.step(-1, 2)
		}
	}

	switch {
	case q.count >= stepsPerDetent:
		q.count = 0
		if q.inverted {
			return EventRotateCCW, true
		}
		return EventRotateCW, true
	case q.count <= -stepsPerDetent:
		q.count = 0
		if q.inverted {
			return EventRotateCW, true
		}
		return EventRotateCCW, true
	}
	return EventNone, false
}

func (q *Quadrature) step(delta int8, next uint8) {
	q.count += delta
	q.state = next
}
