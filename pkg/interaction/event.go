package interaction

import (
	"context"
	"errors"
	"fmt"
)

// Event types delivered by an InteractionSource
const (
	PointerDown  = "pointerdown"
	PointerMove  = "pointermove"
	PointerUp    = "pointerup"
	PointerLeave = "pointerleave"
	Wheel        = "wheel"
	KeyDown      = "keydown"
	Control      = "control"
)

// Button and slider controls carried by Control events
const (
	ControlZoomIn       = "zoom-in"
	ControlZoomOut      = "zoom-out"
	ControlReset        = "reset"
	ControlMeasure      = "measure"
	ControlClearMeasure = "clear-measure"
	ControlFirst        = "first"
	ControlPrevious     = "prev"
	ControlNext         = "next"
	ControlLast         = "last"
	ControlSlice        = "slice"
	ControlSeries       = "series"
	ControlBrightness   = "brightness"
	ControlContrast     = "contrast"
)

// ErrSourceClosed is returned when pushing into a closed queue
var ErrSourceClosed = errors.New("event source closed")

// Event is a single user input. Pointer coordinates are canvas pixels.
type Event struct {
	Type string `json:"type"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	DeltaY float64 `json:"deltaY,omitempty"`
	Key    string  `json:"key,omitempty"`

	Control string  `json:"control,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Series  string  `json:"series,omitempty"`
}

var controls = map[string]bool{
	ControlZoomIn: true, ControlZoomOut: true, ControlReset: true,
	ControlMeasure: true, ControlClearMeasure: true,
	ControlFirst: true, ControlPrevious: true, ControlNext: true, ControlLast: true,
	ControlSlice: true, ControlSeries: true,
	ControlBrightness: true, ControlContrast: true,
}

// Validate rejects events of unknown type or control
func (e Event) Validate() error {
	switch e.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave, Wheel, KeyDown:
		return nil
	case Control:
		if controls[e.Control] {
			return nil
		}
		return fmt.Errorf("unknown control %q", e.Control)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// Source delivers user input events
type Source interface {
	Events() <-chan Event
}

// Queue is a buffered Source fed by the transport
type Queue struct {
	ch   chan Event
	done chan struct{}
}

// NewQueue creates a queue holding up to size pending events
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size), done: make(chan struct{})}
}

// Events implements Source
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Push enqueues ev, blocking while the queue is full
func (q *Queue) Push(ctx context.Context, ev Event) error {
	select {
	case <-q.done:
		return ErrSourceClosed
	default:
	}
	select {
	case q.ch <- ev:
		return nil
	case <-q.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events. The event channel itself stays open so
// the consumer is never handed a zero event.
func (q *Queue) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}
