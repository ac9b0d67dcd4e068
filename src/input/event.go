// Package input decodes the rotary encoder and buttons into a queue of events.
package input

import "strings"

// Event is a decoded operator input
type Event int

const (
	EventNone Event = iota
	EventRotateCW
	EventRotateCCW
	EventPressed
	EventRstPressed
	EventOverrideFromRest
)

var eventNames = map[Event]string{
	EventNone:             "none",
	EventRotateCW:         "cw",
	EventRotateCCW:        "ccw",
	EventPressed:          "press",
	EventRstPressed:       "rst",
	EventOverrideFromRest: "override",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEvent accepts the short event names plus confirm/cancel aliases
func ParseEvent(s string) (Event, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "confirm", "ok", "enter":
		return EventPressed, true
	case "cancel", "reset", "back":
		return EventRstPressed, true
	}
	for e, name := range eventNames {
		if name == s && e != EventNone {
			return e, true
		}
	}
	return EventNone, false
}
