package camera

import "fmt"

// EventSource and EventLevel classify an event the way the host's event
// channel expects it tagged.
type EventSource string

// EventSource values.
const (
	SourceHardware EventSource = "Hardware"
)

// EventLevel is the severity of a reported event.
type EventLevel string

// EventLevel values.
const (
	LevelInfo  EventLevel = "Info"
	LevelError EventLevel = "Error"
)

// Event is one user-visible occurrence reported through EventReporter.
type Event struct {
	Source  EventSource
	Level   EventLevel
	Domain  string
	Message string
}

func newEvent(level EventLevel, format string, args ...interface{}) Event {
	return Event{
		Source:  SourceHardware,
		Level:   level,
		Domain:  "Camera",
		Message: fmt.Sprintf(format, args...),
	}
}

// EventReporter is the host framework's event channel. A nil
// EventReporter is valid: events are then silently dropped after being
// logged.
type EventReporter interface {
	ReportEvent(Event)
}

// Frame is one fully assembled image handed to the host buffer manager:
// the reassembled pixel payload plus the dimensions and identifiers
// needed to interpret it.
type Frame struct {
	ImageIdentifier uint32
	Width           int
	Height          int
	BitsPerPixel    int
	Pixels          []byte
}

// BufferManager is the host framework's image buffer manager.
// AcceptFrame is called once per fully reassembled frame, from the
// acquisition driver's goroutine; implementations must not block it
// indefinitely.
type BufferManager interface {
	AcceptFrame(Frame) error
}

func (c *Camera) reportEvent(ev Event) {
	switch ev.Level {
	case LevelError:
		c.logger.Error(ev.Message, "source", ev.Source, "domain", ev.Domain)
	default:
		c.logger.Info(ev.Message, "source", ev.Source, "domain", ev.Domain)
	}
	if c.events != nil {
		c.events.ReportEvent(ev)
	}
}
