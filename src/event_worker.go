package main

import (
	"context"
	"log"

	"github.com/ryansname/chargectl/src/charge"
	"github.com/ryansname/chargectl/src/input"
)

// mapEvent translates an operator input into a charge machine event
func mapEvent(e input.Event) (charge.Event, bool) {
	switch e {
	case input.EventRotateCW:
		return charge.EventIncrease, true
	case input.EventRotateCCW:
		return charge.EventDecrease, true
	case input.EventPressed:
		return charge.EventConfirm, true
	case input.EventRstPressed:
		return charge.EventCancel, true
	}
	return charge.EventNone, false
}

// eventWorker forwards operator inputs to the running mode using non-blocking
// sends so a stalled mode never backs up the input device
func eventWorker(ctx context.Context, inputChan <-chan input.Event, outputChan chan<- charge.Event) {
	log.Println("Event worker started")

	for {
		select {
		case e := <-inputChan:
			mapped, ok := mapEvent(e)
			if !ok {
				continue
			}
			select {
			case outputChan <- mapped:
			default:
				log.Printf("Warning: event queue full, dropping %s\n", e)
			}

		case <-ctx.Done():
			log.Println("Event worker stopped")
			return
		}
	}
}
