package progress

import (
	"errors"
	"sync"
)

const defaultBuffer = 64

// Emitter produces an event stream that upholds the streaming contract:
// percentages are monotonically non-decreasing within [0,100], exactly one
// terminal event is delivered, and the channel closes after it. Progress
// events may be dropped when the consumer falls behind; Ready and terminal
// events are never dropped.
type Emitter struct {
	mu   sync.Mutex
	ch   chan Event
	last float64
	done bool
}

// NewEmitter constructs an emitter with the default buffer size.
func NewEmitter() *Emitter {
	return &Emitter{ch: make(chan Event, defaultBuffer)}
}

// Events returns the consumer side of the stream.
func (e *Emitter) Events() Stream {
	return e.ch
}

// Progress emits a progress event. Percentages below the high-water mark
// are raised to it so the stream never moves backward.
func (e *Emitter) Progress(percent float64, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	percent = e.clamp(percent)
	select {
	case e.ch <- Event{Type: TypeProgress, Percent: percent, Message: message}:
	default:
		// Consumer is behind; intermediate progress is droppable.
	}
}

// Ready emits a non-authoritative partial artifact event.
func (e *Emitter) Ready(partial any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.send(Event{Type: TypeReady, Percent: e.last, Payload: partial})
}

// Complete emits the successful terminal event at 100% and closes the stream.
func (e *Emitter) Complete(artifact any, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	e.last = 100
	e.send(Event{Type: TypeCompleted, Percent: 100, Message: message, Payload: artifact})
	close(e.ch)
}

// Fail emits the failing terminal event and closes the stream.
func (e *Emitter) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	if err == nil {
		err = errors.New("operation failed")
	}
	e.done = true
	e.send(Event{Type: TypeFailed, Percent: e.last, Message: err.Error(), Err: err})
	close(e.ch)
}

func (e *Emitter) clamp(percent float64) float64 {
	if percent < e.last {
		return e.last
	}
	if percent > 100 {
		percent = 100
	}
	e.last = percent
	return percent
}

// send delivers an event that must not be dropped. When the buffer is full
// the oldest pending progress event is discarded to make room, keeping any
// buffered Ready events; an abandoned consumer therefore never blocks the
// producing operation.
func (e *Emitter) send(ev Event) {
	for {
		select {
		case e.ch <- ev:
			return
		default:
		}
		e.evict()
	}
}

// evict frees one buffer slot by dropping the oldest pending progress
// event. Pending Ready events are re-queued; only a buffer holding nothing
// but Ready events loses its oldest one.
func (e *Emitter) evict() {
	var kept []Event
	for {
		select {
		case pending := <-e.ch:
			if pending.Type == TypeReady {
				kept = append(kept, pending)
				continue
			}
		default:
			if len(kept) > 0 {
				kept = kept[1:]
			}
		}
		break
	}
	for _, k := range kept {
		select {
		case e.ch <- k:
		default:
		}
	}
}
