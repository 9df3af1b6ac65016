// File: internal/observability/events.go
package observability

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies a run event for downstream consumers.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Event is a single progress update produced during an automation run.
type Event struct {
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// Emitter receives run events. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(e Event)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// LogEmitter forwards events to a zap logger at the matching level.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates an emitter backed by the given logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = GetLogger()
	}
	return &LogEmitter{logger: logger.Named("events")}
}

func (le *LogEmitter) Emit(e Event) {
	switch e.Level {
	case LevelWarning:
		le.logger.Warn(e.Message)
	case LevelError:
		le.logger.Error(e.Message)
	case LevelSuccess:
		le.logger.Info(e.Message, zap.String("status", "success"))
	default:
		le.logger.Info(e.Message)
	}
}

// ChannelEmitter buffers events for an external consumer. When the buffer is
// full the oldest event is dropped so emitting never blocks the run.
type ChannelEmitter struct {
	mu sync.Mutex
	ch chan Event
}

// NewChannelEmitter creates a buffered emitter with the given capacity.
func NewChannelEmitter(capacity int) *ChannelEmitter {
	if capacity < 1 {
		capacity = 1
	}
	return &ChannelEmitter{ch: make(chan Event, capacity)}
}

func (ce *ChannelEmitter) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	ce.mu.Lock()
	defer ce.mu.Unlock()
	for {
		select {
		case ce.ch <- e:
			return
		default:
			// Buffer full: drop the oldest event and retry.
			select {
			case <-ce.ch:
			default:
			}
		}
	}
}

// Events exposes the receive side of the buffer.
func (ce *ChannelEmitter) Events() <-chan Event {
	return ce.ch
}

// MultiEmitter fans out each event to all wrapped emitters.
type MultiEmitter []Emitter

func (me MultiEmitter) Emit(e Event) {
	for _, em := range me {
		if em != nil {
			em.Emit(e)
		}
	}
}

// Emit is a nil-safe helper for components holding an optional Emitter.
func Emit(em Emitter, level Level, message string) {
	if em == nil {
		return
	}
	em.Emit(Event{Message: message, Level: level, Timestamp: time.Now()})
}
