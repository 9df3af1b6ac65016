// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/browser/stealth"
	"github.com/xkilldash9x/lms-autopilot/internal/config"
	"github.com/xkilldash9x/lms-autopilot/internal/humanize"
)

// Session manages a single, isolated browser tab. All input goes through the
// humanize actor so interaction timing looks organic.
type Session struct {
	id           string
	globalConfig *config.Config
	logger       *zap.Logger

	sessionContext context.Context
	sessionCancel  context.CancelFunc
	actor          *humanize.Actor

	// onClose signals the manager exactly once when the session closes.
	onClose func()

	recording bool
	isClosed  bool
	mu        sync.Mutex
}

func newSession(allocCtx context.Context, cfg *config.Config, logger *zap.Logger, persona stealth.Persona) (*Session, error) {
	id := uuid.New().String()
	sessionCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:             id,
		globalConfig:   cfg,
		logger:         logger.With(zap.String("session_id", id[:8])),
		sessionContext: sessionCtx,
		sessionCancel:  cancel,
		actor:          humanize.New(0),
	}

	if err := chromedp.Run(sessionCtx, stealth.Apply(persona, s.logger)); err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("failed to apply stealth persona: %w", err)
	}

	if cfg.Browser.RecordVideos {
		if err := s.startRecording(cfg.Browser.VideosDir); err != nil {
			// Recording is an artifact concern, never fatal to the session.
			s.logger.Warn("Failed to start session recording", zap.Error(err))
		}
	}

	s.logger.Info("Browser session initialized.")
	return s, nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string {
	return s.id
}

// Context returns the underlying chromedp session context.
func (s *Session) Context() context.Context {
	return s.sessionContext
}

// run executes actions on the session context bounded by the caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.sessionContext
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.sessionContext, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// navCtx bounds a navigation-class operation with the configured timeout,
// unless the caller already carries a tighter deadline.
func (s *Session) navCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	t := s.globalConfig.Automation.NavigationTimeout
	if t <= 0 {
		return ctx, func() {}
	}
	if d, ok := ctx.Deadline(); ok && time.Until(d) <= t {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t)
}

// Navigate loads a URL and waits for the page to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	ctx, cancel := s.navCtx(ctx)
	defer cancel()
	return s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if s.globalConfig.Browser.DisableCache {
				return network.SetCacheDisabled(true).Do(ctx)
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Wait for async operations to settle.
		chromedp.Sleep(s.globalConfig.Browser.PostLoadWait),
	)
}

// Reload refreshes the current page.
func (s *Session) Reload(ctx context.Context) error {
	ctx, cancel := s.navCtx(ctx)
	defer cancel()
	return s.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.globalConfig.Browser.PostLoadWait),
	)
}

// Back navigates one step back in history.
func (s *Session) Back(ctx context.Context) error {
	ctx, cancel := s.navCtx(ctx)
	defer cancel()
	return s.run(ctx,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until the selector is visible, bounded by the
// navigation timeout.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	ctx, cancel := s.navCtx(ctx)
	defer cancel()
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click performs a human-like click, honoring the configured slow-mo pause.
func (s *Session) Click(ctx context.Context, selector string) error {
	if s.globalConfig.Browser.SlowMo > 0 {
		if err := s.Sleep(ctx, s.globalConfig.Browser.SlowMo); err != nil {
			return err
		}
	}
	return s.run(ctx, s.actor.Click(selector))
}

// Type performs human-like typing into the selector.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	return s.run(ctx, s.actor.Type(selector, text))
}

// Keepalive performs a minimal humanized action to keep the session warm.
func (s *Session) Keepalive(ctx context.Context) error {
	return s.run(ctx, s.actor.Keepalive())
}

// Text returns the text content of the first match.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery))
	return out, err
}

// Count returns how many elements match the selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	err := s.run(ctx, chromedp.Evaluate(script, &n))
	return n, err
}

// BodyText returns the visible text of the whole page.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &out))
	return out, err
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Title(&out))
	return out, err
}

// URL returns the current page location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var out string
	err := s.run(ctx, chromedp.Location(&out))
	return out, err
}

// Evaluate runs a script and unmarshals the result into out (pass nil to
// discard).
func (s *Session) Evaluate(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

// Sleep waits for the duration, respecting both contexts.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.sessionContext.Done():
		return s.sessionContext.Err()
	}
}

// Close safely terminates the browser tab. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	sessionCancel := s.sessionCancel
	sessionContext := s.sessionContext
	onClose := s.onClose
	s.mu.Unlock()

	s.stopRecording(ctx)

	if sessionCancel != nil {
		sessionCancel()
	}

	if sessionContext != nil {
		// Wait for the tab to shut down, bounded by the caller's deadline
		// and a hard cap.
		waitCtx, cancelWait := context.WithTimeout(ctx, 10*time.Second)
		defer cancelWait()

		select {
		case <-sessionContext.Done():
			s.logger.Debug("Browser session closed gracefully.")
		case <-waitCtx.Done():
			s.logger.Warn("Deadline exceeded waiting for browser session to close.", zap.Error(waitCtx.Err()))
		}
	}

	if onClose != nil {
		onClose()
	}
	return nil
}
