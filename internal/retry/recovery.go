// File: internal/retry/recovery.go
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Page is the narrow browser surface the recovery helpers need. It is
// implemented by browser.Session and faked in tests.
type Page interface {
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	BodyText(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
}

// navigationRetryable matches the transient error classes worth retrying:
// timeouts, network-level failures, and mid-navigation races.
var navigationRetryable = []string{
	"timeout",
	"deadline exceeded",
	"net::err",
	"navigation",
	"detached",
	"context was destroyed",
	"target closed",
	"connection refused",
	"connection reset",
}

// IsNavigationError reports whether err looks like a transient
// navigation or network failure.
func IsNavigationError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range navigationRetryable {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// Navigation retries fn with navigation-aware error filtering. Between
// attempts it probes the page: a browser error page triggers Back, a page
// offering a reload affordance triggers Reload.
func Navigation(ctx context.Context, p Page, fn func(ctx context.Context) error, opts Options) error {
	opts = opts.withDefaults()
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = IsNavigationError
	}
	userHook := opts.OnRetry
	opts.OnRetry = func(ctx context.Context, err error, attempt int, delay time.Duration) {
		recoverNavigation(ctx, p, opts.Logger)
		if userHook != nil {
			userHook(ctx, err, attempt, delay)
		}
	}
	return Do(ctx, func(ctx context.Context, _ int) error {
		return fn(ctx)
	}, opts)
}

func recoverNavigation(ctx context.Context, p Page, logger *zap.Logger) {
	if p == nil {
		return
	}
	body, err := p.BodyText(ctx)
	if err != nil {
		logger.Debug("Recovery probe failed to read page", zap.Error(err))
		return
	}
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "this site can't be reached"),
		strings.Contains(lower, "err_"),
		strings.Contains(lower, "page not found"):
		logger.Debug("Error page detected, navigating back")
		if err := p.Back(ctx); err != nil {
			logger.Debug("Back navigation failed during recovery", zap.Error(err))
		}
	case strings.Contains(lower, "reload"), strings.Contains(lower, "try again"):
		logger.Debug("Reload affordance detected, reloading page")
		if err := p.Reload(ctx); err != nil {
			logger.Debug("Reload failed during recovery", zap.Error(err))
		}
	}
}

// Interaction retries an element interaction. It asserts the element is
// attached before invoking fn, and once the primary selector is exhausted it
// walks the alternative selectors a single time each.
func Interaction(ctx context.Context, p Page, selector string, fn func(ctx context.Context, selector string) error, opts Options, alternatives ...string) error {
	attempt := func(sel string, o Options) error {
		return Do(ctx, func(ctx context.Context, _ int) error {
			n, err := p.Count(ctx, sel)
			if err != nil {
				return fmt.Errorf("failed to locate element %q: %w", sel, err)
			}
			if n == 0 {
				return fmt.Errorf("element %q is not attached", sel)
			}
			return fn(ctx, sel)
		}, o)
	}

	err := attempt(selector, opts)
	if err == nil {
		return nil
	}
	logger := opts.withDefaults().Logger
	altOpts := opts
	altOpts.MaxRetries = 0
	for _, alt := range alternatives {
		logger.Debug("Primary selector exhausted, trying alternative",
			zap.String("primary", selector), zap.String("alternative", alt))
		if altErr := attempt(alt, altOpts); altErr == nil {
			return nil
		}
	}
	return err
}

// Strategies selects which recovery steps AttemptRecovery runs, in order.
type Strategies struct {
	Refresh      bool
	GoBack       bool
	CheckSession bool
	CheckErrors  bool
	WaitAndRetry bool

	// Wait is the pause used by WaitAndRetry. Zero means 5s.
	Wait time.Duration

	// SessionExpired reports whether the page shows a logged-out state.
	// Required when CheckSession is set.
	SessionExpired func(ctx context.Context) (bool, error)

	Logger *zap.Logger
}

// AttemptRecovery runs the enabled strategies against a wedged page. It
// returns recovered=true when a strategy completed without error, and
// needsLogin=true when the session has expired. The two outcomes are
// distinct: an expired session is not recoverable here and must be handled
// by the caller with a fresh login.
func AttemptRecovery(ctx context.Context, p Page, s Strategies) (recovered bool, needsLogin bool) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if s.CheckSession && s.SessionExpired != nil {
		expired, err := s.SessionExpired(ctx)
		if err != nil {
			logger.Debug("Session check failed during recovery", zap.Error(err))
		} else if expired {
			logger.Warn("Session expired, login required")
			return false, true
		}
	}

	if s.CheckErrors {
		if dismissed := dismissErrorDialogs(ctx, p, logger); dismissed {
			recovered = true
		}
	}

	if s.Refresh {
		if err := p.Reload(ctx); err != nil {
			logger.Debug("Refresh failed during recovery", zap.Error(err))
		} else {
			recovered = true
		}
	}

	if s.GoBack && !recovered {
		if err := p.Back(ctx); err != nil {
			logger.Debug("Back failed during recovery", zap.Error(err))
		} else {
			recovered = true
		}
	}

	if s.WaitAndRetry {
		wait := s.Wait
		if wait <= 0 {
			wait = 5 * time.Second
		}
		select {
		case <-time.After(wait):
			recovered = true
		case <-ctx.Done():
		}
	}

	return recovered, false
}

var dialogDismissSelectors = []string{
	".modal .close",
	".modal button.btn-primary",
	"button[aria-label='Close']",
	".alert .close",
	".error-dialog button",
}

func dismissErrorDialogs(ctx context.Context, p Page, logger *zap.Logger) bool {
	dismissed := false
	for _, sel := range dialogDismissSelectors {
		n, err := p.Count(ctx, sel)
		if err != nil || n == 0 {
			continue
		}
		if err := p.Click(ctx, sel); err != nil {
			logger.Debug("Failed to dismiss dialog", zap.String("selector", sel), zap.Error(err))
			continue
		}
		dismissed = true
	}
	return dismissed
}
