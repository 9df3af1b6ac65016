// File: internal/humanize/actor.go

// Package humanize provides human-like input primitives built as
// chromedp.Actions. Mouse paths carry Perlin-noise tremor, keystrokes get
// per-key timing, and a handful of micro-actions keep an idle session warm
// while a time gate runs down.
package humanize

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Vector2D is a point in page coordinates.
type Vector2D struct {
	X float64
	Y float64
}

// Actor produces humanized input actions. It is stateful (tracks the virtual
// mouse position) and safe for use from a single session goroutine.
type Actor struct {
	mu     sync.Mutex
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	pos    Vector2D
}

// New creates an Actor seeded from seed; pass 0 for a time-based seed.
func New(seed int64) *Actor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Actor{
		rng:    rng,
		noiseX: perlin.NewPerlin(2, 2, 3, rng.Int63()),
		noiseY: perlin.NewPerlin(2, 2, 3, rng.Int63()),
		pos:    Vector2D{X: -1, Y: -1},
	}
}

// Click moves the mouse to the element along a noisy path and presses it.
func (a *Actor) Click(selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.ScrollIntoView(selector, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("humanize: scroll into view %q: %w", selector, err)
		}
		target, err := a.elementPoint(ctx, selector)
		if err != nil {
			return err
		}
		if err := a.moveTo(ctx, target); err != nil {
			return err
		}
		return a.pressAt(ctx, target)
	})
}

// Type clicks the field and enters text with per-key delays.
func (a *Actor) Type(selector, text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := a.Click(selector).Do(ctx); err != nil {
			return err
		}
		for i, r := range text {
			ev := input.DispatchKeyEvent(input.KeyEventTypeChar).WithText(string(r))
			if err := ev.Do(ctx); err != nil {
				return fmt.Errorf("humanize: key event for %q: %w", r, err)
			}
			delay := a.keyDelay()
			// An occasional longer pause, as if glancing at the source text.
			if i > 0 && a.randFloat() < 0.04 {
				delay += time.Duration(200+a.randIntn(400)) * time.Millisecond
			}
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}
		return nil
	})
}

// MicroScroll nudges the page a few pixels. Keepalive primitive.
func (a *Actor) MicroScroll() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		delta := a.randFloat()*10 - 5
		script := fmt.Sprintf("window.scrollBy(0, %.2f)", delta)
		return chromedp.Evaluate(script, nil).Do(ctx)
	})
}

// MouseJitter drifts the mouse a short distance. Keepalive primitive.
func (a *Actor) MouseJitter() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		a.mu.Lock()
		cur := a.pos
		a.mu.Unlock()
		if cur.X < 0 {
			cur = Vector2D{X: 400 + a.randFloat()*200, Y: 300 + a.randFloat()*100}
		}
		target := Vector2D{
			X: cur.X + (a.randFloat()*60 - 30),
			Y: cur.Y + (a.randFloat()*40 - 20),
		}
		if target.X < 5 {
			target.X = 5
		}
		if target.Y < 5 {
			target.Y = 5
		}
		return a.moveTo(ctx, target)
	})
}

// FocusNudge focuses a random interactive element. Keepalive primitive.
func (a *Actor) FocusNudge() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script := `(() => {
			const els = document.querySelectorAll('a, button, input');
			if (els.length > 0) {
				els[Math.floor(Math.random() * els.length)].focus();
			}
		})()`
		return chromedp.Evaluate(script, nil).Do(ctx)
	})
}

// Keepalive performs one randomly chosen micro-action.
func (a *Actor) Keepalive() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		switch a.randIntn(3) {
		case 0:
			return a.MicroScroll().Do(ctx)
		case 1:
			return a.MouseJitter().Do(ctx)
		default:
			return a.FocusNudge().Do(ctx)
		}
	})
}

// Delay blocks for a random duration in [min, max], respecting the context.
func (a *Actor) Delay(min, max time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if max < min {
			max = min
		}
		span := max - min
		d := min
		if span > 0 {
			d += time.Duration(a.randInt63n(int64(span)))
		}
		return sleepCtx(ctx, d)
	})
}

// elementPoint resolves a click point inside the element, offset from dead
// center so repeated clicks don't land on the same pixel.
func (a *Actor) elementPoint(ctx context.Context, selector string) (Vector2D, error) {
	var box struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return {x: r.x, y: r.y, width: r.width, height: r.height};
	})()`, selector)
	if err := chromedp.Evaluate(script, &box).Do(ctx); err != nil {
		return Vector2D{}, fmt.Errorf("humanize: bounds of %q: %w", selector, err)
	}
	if box.Width == 0 && box.Height == 0 {
		return Vector2D{}, fmt.Errorf("humanize: element %q has no box", selector)
	}
	return Vector2D{
		X: box.X + box.Width*(0.35+a.randFloat()*0.3),
		Y: box.Y + box.Height*(0.35+a.randFloat()*0.3),
	}, nil
}

// moveTo walks the mouse along an eased path with Perlin tremor.
func (a *Actor) moveTo(ctx context.Context, target Vector2D) error {
	a.mu.Lock()
	start := a.pos
	a.mu.Unlock()
	if start.X < 0 {
		start = Vector2D{X: target.X + (a.randFloat()*200 - 100), Y: target.Y + (a.randFloat()*150 - 75)}
	}

	dist := math.Hypot(target.X-start.X, target.Y-start.Y)
	steps := int(dist/12) + 6
	if steps > 40 {
		steps = 40
	}
	noiseBase := a.randFloat() * 100

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		// Ease in and out so velocity peaks mid-path.
		eased := t * t * (3 - 2*t)
		x := start.X + (target.X-start.X)*eased
		y := start.Y + (target.Y-start.Y)*eased

		// Tremor fades to zero as the cursor settles on the target.
		amp := 3.0 * (1 - t)
		x += a.noiseX.Noise1D(noiseBase+t*2) * amp
		y += a.noiseY.Noise1D(noiseBase+t*2) * amp

		if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return fmt.Errorf("humanize: mouse move: %w", err)
		}
		if err := sleepCtx(ctx, time.Duration(4+a.randIntn(9))*time.Millisecond); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.pos = target
	a.mu.Unlock()
	return nil
}

// pressAt dispatches a press/release pair with a short hold.
func (a *Actor) pressAt(ctx context.Context, at Vector2D) error {
	down := input.DispatchMouseEvent(input.MousePressed, at.X, at.Y).
		WithButton(input.Left).
		WithClickCount(1)
	if err := down.Do(ctx); err != nil {
		return fmt.Errorf("humanize: mouse press: %w", err)
	}
	if err := sleepCtx(ctx, time.Duration(40+a.randIntn(80))*time.Millisecond); err != nil {
		// Release the button even when interrupted.
		_ = input.DispatchMouseEvent(input.MouseReleased, at.X, at.Y).
			WithButton(input.Left).WithClickCount(1).Do(context.Background())
		return err
	}
	up := input.DispatchMouseEvent(input.MouseReleased, at.X, at.Y).
		WithButton(input.Left).
		WithClickCount(1)
	if err := up.Do(ctx); err != nil {
		return fmt.Errorf("humanize: mouse release: %w", err)
	}
	return nil
}

func (a *Actor) keyDelay() time.Duration {
	return time.Duration(60+a.randIntn(120)) * time.Millisecond
}

// All rng reads go through the mutex; *rand.Rand is not safe for
// concurrent use and keepalive actions can run off another goroutine.
func (a *Actor) randFloat() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}

func (a *Actor) randIntn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

func (a *Actor) randInt63n(n int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Int63n(n)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
