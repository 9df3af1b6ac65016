// File: internal/observability/events_test.go
package observability

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestChannelEmitterDropsOldest(t *testing.T) {
	ce := NewChannelEmitter(3)
	for i := 0; i < 5; i++ {
		ce.Emit(Event{Message: fmt.Sprintf("event-%d", i), Level: LevelInfo})
	}

	// The two oldest events were dropped; the newest three remain in order.
	var got []string
	for i := 0; i < 3; i++ {
		e := <-ce.Events()
		got = append(got, e.Message)
	}
	assert.Equal(t, []string{"event-2", "event-3", "event-4"}, got)

	select {
	case e := <-ce.Events():
		t.Fatalf("unexpected extra event: %v", e)
	default:
	}
}

func TestChannelEmitterStampsTime(t *testing.T) {
	ce := NewChannelEmitter(1)
	ce.Emit(Event{Message: "m", Level: LevelInfo})
	e := <-ce.Events()
	assert.False(t, e.Timestamp.IsZero())
}

func TestLogEmitterLevelMapping(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	le := NewLogEmitter(zap.New(core))

	le.Emit(Event{Message: "plain", Level: LevelInfo})
	le.Emit(Event{Message: "warn", Level: LevelWarning})
	le.Emit(Event{Message: "boom", Level: LevelError})
	le.Emit(Event{Message: "done", Level: LevelSuccess})

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.Equal(t, zap.InfoLevel, entries[3].Level)
	assert.Equal(t, "success", entries[3].ContextMap()["status"])
}

func TestMultiEmitterFansOut(t *testing.T) {
	a := NewChannelEmitter(1)
	b := NewChannelEmitter(1)
	me := MultiEmitter{a, nil, b}

	me.Emit(Event{Message: "x", Level: LevelInfo})
	assert.Equal(t, "x", (<-a.Events()).Message)
	assert.Equal(t, "x", (<-b.Events()).Message)
}

func TestEmitNilSafe(t *testing.T) {
	assert.NotPanics(t, func() { Emit(nil, LevelInfo, "ignored") })
}
