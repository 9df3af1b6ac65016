// File: internal/timegate/timegate_test.go
package timegate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePage struct {
	counts        map[string]int
	timerText     string
	videoSeconds  float64
	contentLength int
	slept         []time.Duration
	keepalives    int
}

func (f *fakePage) Count(ctx context.Context, selector string) (int, error) {
	return f.counts[selector], nil
}

func (f *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	switch v := out.(type) {
	case *string:
		*v = f.timerText
	case *float64:
		*v = f.videoSeconds
	case *int:
		*v = f.contentLength
	}
	return nil
}

func (f *fakePage) Keepalive(ctx context.Context) error {
	f.keepalives++
	return nil
}

func (f *fakePage) Sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error { return nil }

func TestParseTimerText(t *testing.T) {
	cases := []struct {
		text string
		want time.Duration
	}{
		{"5 minutes remaining", 5 * time.Minute},
		{"Please wait 30 seconds", 30 * time.Second},
		{"1 hour required", time.Hour},
		{"2 hr", 2 * time.Hour},
		{"10min", 10 * time.Minute},
		{"no time here", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTimerText(tc.text), "text: %q", tc.text)
	}
}

func TestDetectExplicitTimer(t *testing.T) {
	p := &fakePage{
		counts:    map[string]int{".timer": 1},
		timerText: "5 minutes remaining",
	}
	r := NewResolver(zaptest.NewLogger(t), nil)

	req := r.Detect(context.Background(), p)
	require.True(t, req.Detected)
	assert.Equal(t, 5*time.Minute, req.Duration)
	assert.Equal(t, SourceExplicitTimer, req.Source)
	assert.Equal(t, int64(300000), req.Duration.Milliseconds())
}

func TestDetectVideoDuration(t *testing.T) {
	p := &fakePage{counts: map[string]int{}, videoSeconds: 42.3}
	r := NewResolver(zaptest.NewLogger(t), nil)

	req := r.Detect(context.Background(), p)
	require.True(t, req.Detected)
	assert.True(t, req.IsVideo)
	// Fractional seconds round up to the next millisecond.
	assert.Equal(t, int64(42300), req.Duration.Milliseconds())
	assert.Equal(t, SourceVideo, req.Source)
}

func TestDetectReadingEstimate(t *testing.T) {
	p := &fakePage{counts: map[string]int{}, contentLength: 6000}
	r := NewResolver(zaptest.NewLogger(t), nil)

	req := r.Detect(context.Background(), p)
	assert.False(t, req.Detected)
	// 6000 chars -> 1200 words -> 6 minutes at 200 wpm.
	assert.Equal(t, 6*time.Minute, req.Duration)
	assert.Equal(t, SourceEstimate, req.Source)
}

func TestDetectDefaultFallback(t *testing.T) {
	p := &fakePage{counts: map[string]int{}}
	r := NewResolver(zaptest.NewLogger(t), nil)

	req := r.Detect(context.Background(), p)
	assert.False(t, req.Detected)
	assert.Equal(t, DefaultWait, req.Duration)
	assert.Equal(t, SourceDefault, req.Source)
}

func TestReadingEstimateMinimum(t *testing.T) {
	assert.Equal(t, time.Minute, ReadingEstimate(10))
	assert.Equal(t, time.Minute, ReadingEstimate(0))
	// 2000 chars -> 400 words -> exactly 2 minutes.
	assert.Equal(t, 2*time.Minute, ReadingEstimate(2000))
}

func TestVideoDuration(t *testing.T) {
	assert.Equal(t, int64(42300), VideoDuration(42.3).Milliseconds())
	assert.Equal(t, int64(1000), VideoDuration(1).Milliseconds())
	// Sub-millisecond fractions still round up.
	assert.Equal(t, int64(1001), VideoDuration(1.0001).Milliseconds())
}
