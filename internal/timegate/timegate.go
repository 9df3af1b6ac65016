// File: internal/timegate/timegate.go

// Package timegate detects and satisfies minimum-dwell-time requirements on
// course content. Resolution falls back through explicit timers, video
// duration, a reading-time estimate, and finally a fixed default, so a page
// always yields a usable requirement.
package timegate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/observability"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
)

// Source identifies how a time requirement was resolved.
type Source string

const (
	SourceExplicitTimer Source = "explicit-timer"
	SourceVideo         Source = "video-duration"
	SourceEstimate      Source = "content-length-estimate"
	SourceDefault       Source = "default"
)

// DefaultWait is the fallback requirement when nothing on the page hints at
// a dwell time.
const DefaultWait = 30 * time.Second

// Requirement describes the dwell time a page demands.
type Requirement struct {
	Detected bool
	Duration time.Duration
	IsVideo  bool
	Text     string
	Source   Source
}

// Page is the browser surface the resolver needs.
type Page interface {
	Count(ctx context.Context, selector string) (int, error)
	Evaluate(ctx context.Context, script string, out interface{}) error
	Keepalive(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
	Click(ctx context.Context, selector string) error
}

// timerPattern extracts an amount and unit from timer text.
var timerPattern = regexp.MustCompile(`(?i)(\d+)\s*(min|minute|second|sec|hour|hr)`)

// timerIndicators are probed in order; the first with parseable text wins.
var timerIndicators = []struct {
	Selector  string
	Attribute string
}{
	{".timer", "textContent"},
	{".countdown", "textContent"},
	{".time-remaining", "textContent"},
	{"[data-time-required]", "data-time-required"},
	{".time-lock-message", "textContent"},
}

// ParseTimerText converts text like "5 minutes remaining" to a duration.
// Returns zero when no time expression is present.
func ParseTimerText(text string) time.Duration {
	m := timerPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "min"):
		return time.Duration(amount) * time.Minute
	case strings.HasPrefix(unit, "sec"):
		return time.Duration(amount) * time.Second
	case strings.HasPrefix(unit, "hour"), unit == "hr":
		return time.Duration(amount) * time.Hour
	}
	return 0
}

// ReadingEstimate converts a content length in characters to an estimated
// reading time: ~5 characters per word at ~200 words per minute, at least
// one minute.
func ReadingEstimate(contentLength int) time.Duration {
	words := float64(contentLength) / 5
	minutes := int(math.Ceil(words / 200))
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}

// VideoDuration converts a video duration in seconds to a requirement,
// rounding up to the next millisecond.
func VideoDuration(seconds float64) time.Duration {
	return time.Duration(math.Ceil(seconds*1000)) * time.Millisecond
}

// Resolver detects and satisfies time requirements.
type Resolver struct {
	logger  *zap.Logger
	emitter observability.Emitter

	// SpeedUpVideos plays videos at 1.5x when the player allows it.
	SpeedUpVideos bool

	// MaxNextWait caps WaitForNextEnabled. Zero means 60s.
	MaxNextWait time.Duration
}

// NewResolver creates a time-gate resolver.
func NewResolver(logger *zap.Logger, emitter observability.Emitter) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.Named("timegate"), emitter: emitter}
}

// Detect resolves the page's time requirement. It never fails: internal
// errors degrade to the default requirement.
func (r *Resolver) Detect(ctx context.Context, p Page) Requirement {
	// 1. Explicit timer text.
	for _, ind := range timerIndicators {
		text, err := indicatorText(ctx, p, ind.Selector, ind.Attribute)
		if err != nil {
			r.logger.Debug("Timer indicator probe failed", zap.String("selector", ind.Selector), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if d := ParseTimerText(text); d > 0 {
			r.logger.Info("Detected explicit time requirement",
				zap.String("text", text), zap.Duration("duration", d))
			return Requirement{Detected: true, Duration: d, Text: text, Source: SourceExplicitTimer}
		}
	}

	// 2. Video duration.
	var seconds float64
	err := p.Evaluate(ctx, `(() => { const v = document.querySelector('video'); return v && isFinite(v.duration) ? v.duration : 0; })()`, &seconds)
	if err != nil {
		r.logger.Debug("Video duration probe failed", zap.Error(err))
	} else if seconds > 0 {
		d := VideoDuration(seconds)
		r.logger.Info("Detected video duration", zap.Duration("duration", d))
		return Requirement{
			Detected: true,
			Duration: d,
			IsVideo:  true,
			Text:     fmt.Sprintf("Video (%d seconds)", int(math.Ceil(seconds))),
			Source:   SourceVideo,
		}
	}

	// 3. Reading-time estimate from content length.
	var contentLength int
	err = p.Evaluate(ctx, `(() => { const c = document.querySelector('.content, .lesson-content, article, .course-material'); return c ? c.textContent.length : 0; })()`, &contentLength)
	if err != nil {
		r.logger.Debug("Content length probe failed", zap.Error(err))
	} else if contentLength > 0 {
		d := ReadingEstimate(contentLength)
		r.logger.Info("Estimated reading time", zap.Duration("duration", d))
		return Requirement{
			Detected: false,
			Duration: d,
			Text:     fmt.Sprintf("Estimated reading time: %d minute(s)", int(d.Minutes())),
			Source:   SourceEstimate,
		}
	}

	// 4. Default fallback.
	r.logger.Info("No time requirement detected, using default", zap.Duration("duration", DefaultWait))
	return Requirement{Duration: DefaultWait, Text: "Default time requirement", Source: SourceDefault}
}

func indicatorText(ctx context.Context, p Page, selector, attribute string) (string, error) {
	n, err := p.Count(ctx, selector)
	if err != nil || n == 0 {
		return "", err
	}
	var out string
	var script string
	if attribute == "textContent" {
		script = fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? el.textContent : ""; })()`, selector)
	} else {
		script = fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? (el.getAttribute(%q) || "") : ""; })()`, selector, attribute)
	}
	if err := p.Evaluate(ctx, script, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Satisfy dwells on the page until the requirement is met. Callers that
// need the Next control follow up with WaitForNextEnabled.
func (r *Resolver) Satisfy(ctx context.Context, p Page, req Requirement) error {
	if req.IsVideo {
		if err := r.playVideo(ctx, p, req); err != nil {
			return err
		}
	} else {
		if err := r.waitWithUpdates(ctx, p, req.Duration); err != nil {
			return err
		}
	}
	observability.Emit(r.emitter, observability.LevelSuccess, "Time requirement satisfied")
	return nil
}

// waitWithUpdates waits the duration with ±1s jitter, emitting progress
// every 10 seconds and a keepalive micro-action every minute.
func (r *Resolver) waitWithUpdates(ctx context.Context, p Page, d time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(2*time.Second))) - time.Second
	total := d + jitter
	if total < 0 {
		total = d
	}
	observability.Emit(r.emitter, observability.LevelInfo,
		fmt.Sprintf("Waiting %d seconds to satisfy time requirement", int(math.Ceil(total.Seconds()))))

	const updateInterval = 10 * time.Second
	const keepAliveInterval = time.Minute

	start := time.Now()
	lastKeepalive := start
	for {
		elapsed := time.Since(start)
		if elapsed >= total {
			break
		}
		step := updateInterval
		if remaining := total - elapsed; remaining < step {
			step = remaining
		}
		if err := p.Sleep(ctx, step); err != nil {
			return err
		}
		remaining := total - time.Since(start)
		if remaining > 0 {
			observability.Emit(r.emitter, observability.LevelInfo,
				fmt.Sprintf("...waiting %ds more for time requirement", int(math.Ceil(remaining.Seconds()))))
		}
		if time.Since(lastKeepalive) >= keepAliveInterval {
			if err := p.Keepalive(ctx); err != nil {
				r.logger.Debug("Keepalive failed during wait", zap.Error(err))
			}
			lastKeepalive = time.Now()
		}
	}
	return nil
}

// playVideo starts playback and polls progress until the video finishes or
// the elapsed time exceeds 1.1x the duration.
func (r *Resolver) playVideo(ctx context.Context, p Page, req Requirement) error {
	observability.Emit(r.emitter, observability.LevelInfo, "Video content detected, ensuring playback")

	// Programmatic play with a muted-autoplay fallback.
	playScript := `(() => {
		const video = document.querySelector('video');
		if (video && video.paused) {
			video.muted = false;
			const pp = video.play();
			if (pp !== undefined) {
				pp.catch((e) => {
					if (e.name === 'NotAllowedError') {
						video.muted = true;
						video.play().catch(() => {});
					}
				});
			}
		}
	})()`
	if err := p.Evaluate(ctx, playScript, nil); err != nil {
		r.logger.Debug("Programmatic play failed", zap.Error(err))
	}

	// Some players only respond to their play control.
	for _, sel := range []string{"button.play-button", ".vjs-play-button", ".video-play", `[aria-label="Play"]`} {
		if n, err := p.Count(ctx, sel); err == nil && n > 0 {
			if err := p.Click(ctx, sel); err != nil {
				r.logger.Debug("Play button click failed", zap.String("selector", sel), zap.Error(err))
			}
			break
		}
	}

	var playing bool
	if err := p.Evaluate(ctx, `(() => { const v = document.querySelector('video'); return !!(v && !v.paused && !v.ended && v.currentTime > 0); })()`, &playing); err != nil {
		r.logger.Debug("Playback probe failed", zap.Error(err))
	}
	if !playing {
		observability.Emit(r.emitter, observability.LevelWarning,
			"Unable to start video automatically, waiting fallback time")
		return r.waitWithUpdates(ctx, p, time.Minute)
	}

	if req.Duration <= 0 {
		// Unknown duration: bounded wait.
		observability.Emit(r.emitter, observability.LevelInfo, "Video has unknown duration, waiting 2 minutes")
		return r.waitWithUpdates(ctx, p, 2*time.Minute)
	}

	if r.SpeedUpVideos {
		if err := p.Evaluate(ctx, `(() => { const v = document.querySelector('video'); if (v) v.playbackRate = 1.5; })()`, nil); err == nil {
			observability.Emit(r.emitter, observability.LevelInfo, "Increased video playback speed to 1.5x")
		}
	}

	checkInterval := req.Duration / 4
	if checkInterval > 30*time.Second {
		checkInterval = 30 * time.Second
	}
	if checkInterval < time.Second {
		checkInterval = time.Second
	}

	start := time.Now()
	lastReported := 0.0
	for {
		if err := p.Sleep(ctx, checkInterval); err != nil {
			return err
		}
		var progress float64
		err := p.Evaluate(ctx, `(() => {
			const v = document.querySelector('video');
			if (!v) return 1;
			if (v.ended) return 1;
			return v.duration > 0 ? v.currentTime / v.duration : 0;
		})()`, &progress)
		if err != nil {
			r.logger.Debug("Progress probe failed", zap.Error(err))
		}
		if math.Abs(progress-lastReported) > 0.2 {
			observability.Emit(r.emitter, observability.LevelInfo,
				fmt.Sprintf("Video progress: %d%%", int(math.Round(progress*100))))
			lastReported = progress
		}
		if progress >= 0.99 || time.Since(start) > time.Duration(float64(req.Duration)*1.1) {
			observability.Emit(r.emitter, observability.LevelSuccess, "Video playback completed")
			return nil
		}
		if err := p.Keepalive(ctx); err != nil {
			r.logger.Debug("Keepalive failed during video", zap.Error(err))
		}
	}
}

// nextSelectors are the candidate Next/Continue controls.
var nextSelectors = []string{
	".next-button",
	".btn-next",
	`[aria-label="Next"]`,
	".pagination-next",
	".continue-button",
	".btn-continue",
}

// nextEnabledScript scans selector candidates plus button/link text for an
// enabled Next control.
const nextEnabledScript = `(() => {
	const disabled = (el) =>
		el.disabled ||
		el.getAttribute('aria-disabled') === 'true' ||
		el.classList.contains('disabled') ||
		parseFloat(getComputedStyle(el).opacity) < 0.5;
	const bySelector = document.querySelector(%q);
	if (bySelector) return !disabled(bySelector);
	const candidates = document.querySelectorAll('button, a');
	for (const el of candidates) {
		const text = (el.textContent || '').trim().toLowerCase();
		if (text === 'next' || text === 'continue') return !disabled(el);
	}
	return null;
})()`

// NextEnabled reports whether a Next control exists and is enabled.
func (r *Resolver) NextEnabled(ctx context.Context, p Page) (found bool, enabled bool) {
	script := fmt.Sprintf(nextEnabledScript, strings.Join(nextSelectors, ", "))
	var result *bool
	if err := p.Evaluate(ctx, script, &result); err != nil {
		r.logger.Debug("Next control probe failed", zap.Error(err))
		return false, false
	}
	if result == nil {
		return false, false
	}
	return true, *result
}

// WaitForNextEnabled polls until the Next control enables or the cap
// elapses. A timeout is reported as false, not as an error.
func (r *Resolver) WaitForNextEnabled(ctx context.Context, p Page) bool {
	maxWait := r.MaxNextWait
	if maxWait <= 0 {
		maxWait = 60 * time.Second
	}
	ok, err := retry.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		found, enabled := r.NextEnabled(ctx, p)
		if found && enabled {
			return true, nil
		}
		if err := p.Keepalive(ctx); err != nil {
			r.logger.Debug("Keepalive failed while waiting for Next", zap.Error(err))
		}
		return false, nil
	}, 5*time.Second, maxWait)
	if err != nil {
		return false
	}
	if !ok {
		observability.Emit(r.emitter, observability.LevelWarning,
			"Timed out waiting for Next control to become enabled")
	}
	return ok
}
