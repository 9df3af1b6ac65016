// File: internal/humanize/actor_test.go
package humanize

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayBounds(t *testing.T) {
	a := New(1)

	start := time.Now()
	err := a.Delay(10*time.Millisecond, 30*time.Millisecond).Do(context.Background())
	require.NoError(t, err)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)

	// Inverted bounds collapse to min.
	start = time.Now()
	require.NoError(t, a.Delay(10*time.Millisecond, time.Millisecond).Do(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestDelayRespectsContext(t *testing.T) {
	a := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Delay(time.Second, 2*time.Second).Do(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyDelayRange(t *testing.T) {
	a := New(1)
	for i := 0; i < 100; i++ {
		d := a.keyDelay()
		assert.GreaterOrEqual(t, d, 60*time.Millisecond)
		assert.Less(t, d, 180*time.Millisecond)
	}
}

// One actor can serve a session goroutine and a keepalive goroutine at the
// same time; the shared rng must stay safe under that.
func TestActorConcurrentRandomness(t *testing.T) {
	a := New(1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				f := a.randFloat()
				assert.GreaterOrEqual(t, f, 0.0)
				assert.Less(t, f, 1.0)
				assert.Less(t, a.randIntn(10), 10)
				assert.Less(t, a.randInt63n(10), int64(10))
				_ = a.keyDelay()
			}
		}()
	}
	wg.Wait()
}
