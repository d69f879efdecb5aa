package progress

// Type tags an event in a collaborator operation's output stream.
type Type string

const (
	// TypeProgress carries a percentage and a human-readable message.
	TypeProgress Type = "progress"
	// TypeReady carries a usable partial artifact before the terminal event.
	TypeReady Type = "ready"
	// TypeCompleted is the successful terminal event carrying the artifact.
	TypeCompleted Type = "completed"
	// TypeFailed is the failing terminal event carrying the reason.
	TypeFailed Type = "failed"
)

// Event is one element of a collaborator operation's output stream.
// Exactly one terminal event (Completed or Failed) ends every stream.
type Event struct {
	Type    Type
	Percent float64
	Message string
	// Payload holds the partial artifact for Ready events and the final
	// artifact for Completed events.
	Payload any
	// Err holds the failure reason for Failed events.
	Err error
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == TypeCompleted || e.Type == TypeFailed
}

// Stream is the consumer side of an operation's event stream. The channel
// is closed after the terminal event.
type Stream <-chan Event

// Drain consumes a stream to completion and returns the terminal event
// along with every event observed, in order.
func Drain(s Stream) (Event, []Event) {
	var terminal Event
	var events []Event
	for ev := range s {
		events = append(events, ev)
		if ev.Terminal() {
			terminal = ev
		}
	}
	return terminal, events
}

// Reporter is the callback surface handed to collaborator clients. Percent
// values outside a client's already-reported high-water mark are clamped by
// the emitter, so clients may report raw tool output directly.
type Reporter interface {
	Progress(percent float64, message string)
	Ready(partial any)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Progress(float64, string) {}
func (NopReporter) Ready(any)                {}

// Scaled returns a Reporter that maps a sub-operation's local 0-100 range
// onto [base, base+span] of the parent reporter, keeping a composite
// operation's bar continuous.
func Scaled(parent Reporter, base, span float64) Reporter {
	return &scaledReporter{parent: parent, base: base, span: span}
}

type scaledReporter struct {
	parent Reporter
	base   float64
	span   float64
}

func (s *scaledReporter) Progress(percent float64, message string) {
	if s.parent == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.parent.Progress(s.base+percent*s.span/100, message)
}

func (s *scaledReporter) Ready(partial any) {
	if s.parent == nil {
		return
	}
	s.parent.Ready(partial)
}
