package log

import (
	"time"
)

// Event is one session log event. CBOR encoding uses integer keys for
// compactness in capture files.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection the event belongs to.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Device names the device the connection belongs to, when known.
	Device string `cbor:"3,keyasint,omitempty"`

	// Observer is the textual identity of the observer involved, when the
	// event concerns one.
	Observer string `cbor:"4,keyasint,omitempty"`

	// Direction indicates data flow for data events.
	Direction Direction `cbor:"5,keyasint,omitempty"`

	// Category classifies the event.
	Category Category `cbor:"6,keyasint"`

	// Data is the raw payload for data events.
	Data []byte `cbor:"7,keyasint,omitempty"`

	// StateChange is set for state-change events.
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`

	// Outcome is set for observer-outcome events.
	Outcome *OutcomeEvent `cbor:"9,keyasint,omitempty"`

	// Error is set for error events.
	Error *ErrorEvent `cbor:"10,keyasint,omitempty"`
}

// StateChangeEvent records a device state transition.
type StateChangeEvent struct {
	From string `cbor:"1,keyasint"`
	To   string `cbor:"2,keyasint"`
}

// OutcomeEvent records an observer reaching a terminal outcome.
type OutcomeEvent struct {
	// Outcome is the terminal outcome name (RESULT, FAILED, CANCELLED).
	Outcome string `cbor:"1,keyasint"`

	// Detail is an optional rendering of the result or error.
	Detail string `cbor:"2,keyasint,omitempty"`
}

// ErrorEvent records an error at any layer.
type ErrorEvent struct {
	Message string `cbor:"1,keyasint"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data received from the remote side.
	DirectionIn Direction = 0

	// DirectionOut indicates data sent to the remote side.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies a session event.
type Category uint8

const (
	// CategoryData is raw connection data.
	CategoryData Category = 0

	// CategoryState is a device state change.
	CategoryState Category = 1

	// CategoryOutcome is an observer terminal outcome.
	CategoryOutcome Category = 2

	// CategoryError is an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryOutcome:
		return "OUTCOME"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DataEvent builds a data event.
func DataEvent(connID string, dir Direction, data []byte) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Category:     CategoryData,
		Data:         data,
	}
}

// StateEvent builds a state-change event.
func StateEvent(device, from, to string) Event {
	return Event{
		Timestamp:   time.Now(),
		Device:      device,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{From: from, To: to},
	}
}

// OutcomeLogEvent builds an observer-outcome event.
func OutcomeLogEvent(observer, outcome, detail string) Event {
	return Event{
		Timestamp: time.Now(),
		Observer:  observer,
		Category:  CategoryOutcome,
		Outcome:   &OutcomeEvent{Outcome: outcome, Detail: detail},
	}
}

// ErrorLogEvent builds an error event.
func ErrorLogEvent(observer string, err error) Event {
	return Event{
		Timestamp: time.Now(),
		Observer:  observer,
		Category:  CategoryError,
		Error:     &ErrorEvent{Message: err.Error()},
	}
}
