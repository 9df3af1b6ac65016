// File: internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastOpts(t *testing.T, maxRetries int) Options {
	return Options{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Logger:       zaptest.NewLogger(t),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	}, fastOpts(t, 3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoInvocationBound(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		return boom
	}, fastOpts(t, 3))

	// MaxRetries retries after the first attempt, never more.
	assert.Equal(t, 4, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestDoFailTwiceThenSucceed(t *testing.T) {
	calls := 0
	hookCalls := 0

	opts := fastOpts(t, 5)
	opts.OnRetry = func(ctx context.Context, err error, attempt int, delay time.Duration) {
		hookCalls++
	}

	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, hookCalls)
}

func TestDoShouldRetryRejection(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0

	opts := fastOpts(t, 5)
	opts.ShouldRetry = func(err error) bool { return !errors.Is(err, fatal) }

	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	}, opts)

	assert.Equal(t, 1, calls)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
}

func TestDoOnRetryPanicContained(t *testing.T) {
	calls := 0
	opts := fastOpts(t, 2)
	opts.OnRetry = func(ctx context.Context, err error, attempt int, delay time.Duration) {
		panic("recovery hook exploded")
	}

	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("never retried")
	}, fastOpts(t, 3))

	assert.Zero(t, calls)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayGrowsAndCaps(t *testing.T) {
	opts := Options{InitialDelay: time.Second, MaxDelay: 5 * time.Second}

	d1 := opts.Delay(1)
	assert.GreaterOrEqual(t, d1, time.Second)
	assert.Less(t, d1, 2*time.Second)

	d2 := opts.Delay(2)
	assert.GreaterOrEqual(t, d2, 2*time.Second)
	assert.Less(t, d2, 3*time.Second)

	// Far past the cap, the delay stays pinned at MaxDelay.
	assert.Equal(t, 5*time.Second, opts.Delay(10))
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "done", nil
	}, fastOpts(t, 3))

	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

type fakePage struct {
	counts map[string]int
}

func (f *fakePage) Reload(ctx context.Context) error { return nil }
func (f *fakePage) Back(ctx context.Context) error   { return nil }
func (f *fakePage) BodyText(ctx context.Context) (string, error) {
	return "", nil
}
func (f *fakePage) Count(ctx context.Context, selector string) (int, error) {
	return f.counts[selector], nil
}
func (f *fakePage) Click(ctx context.Context, selector string) error { return nil }

func TestInteractionAlternativesTriedOnce(t *testing.T) {
	page := &fakePage{counts: map[string]int{"#primary": 1, "#alt1": 1, "#alt2": 1}}
	calls := map[string]int{}

	err := Interaction(context.Background(), page, "#primary",
		func(ctx context.Context, selector string) error {
			calls[selector]++
			return errors.New("interaction failed")
		}, fastOpts(t, 2), "#alt1", "#alt2")

	require.Error(t, err)
	// The primary selector gets the full retry schedule; each alternative
	// gets exactly one try.
	assert.Equal(t, 3, calls["#primary"])
	assert.Equal(t, 1, calls["#alt1"])
	assert.Equal(t, 1, calls["#alt2"])
}

func TestInteractionAlternativeSucceeds(t *testing.T) {
	page := &fakePage{counts: map[string]int{"#alt": 1}}
	calls := map[string]int{}

	err := Interaction(context.Background(), page, "#missing",
		func(ctx context.Context, selector string) error {
			calls[selector]++
			return nil
		}, fastOpts(t, 1), "#alt")

	require.NoError(t, err)
	// The missing primary never reaches fn; the attached alternative does.
	assert.Zero(t, calls["#missing"])
	assert.Equal(t, 1, calls["#alt"])
}

func TestPollUntilSucceeds(t *testing.T) {
	calls := 0
	ok, err := PollUntil(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	}, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollUntilErrorsAreNotYet(t *testing.T) {
	calls := 0
	ok, err := PollUntil(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, errors.New("probe failed")
		}
		return true, nil
	}, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPollUntilTimeout(t *testing.T) {
	ok, err := PollUntil(context.Background(), func(ctx context.Context) (bool, error) {
		return false, nil
	}, time.Millisecond, 20*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, ok)
}
