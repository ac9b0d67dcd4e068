package scale

// Decoder assembles fixed-size frames from a byte stream. It is not safe for
// concurrent use; the serial reader is its only caller.
type Decoder struct {
	format *frameFormat
	buf    []byte
	idx    int
}

// Feed consumes one byte. It returns a measurement when the byte completes a
// frame that carries a weight.
func (d *Decoder) Feed(b byte) (Measurement, bool) {
	if d.format.sentinel != 0 && b == d.format.sentinel {
		d.idx = 0
	}

	d.buf[d.idx] = b
	d.idx++

	if d.idx == len(d.buf) {
		d.idx = 0
		return d.format.decode(d.buf)
	}

	// Partial frame ended early, resync on the next byte
	if b == '\n' {
		d.idx = 0
	}
	return Measurement{}, false
}

// Reset discards any partially received frame
func (d *Decoder) Reset() {
	d.idx = 0
}
