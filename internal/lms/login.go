// File: internal/lms/login.go
package lms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
)

// ErrHumanInterventionRequired signals a challenge the automation cannot
// solve, such as a full CAPTCHA puzzle.
var ErrHumanInterventionRequired = errors.New("human intervention required")

const (
	usernameSelector = "#username"
	passwordSelector = "#password"
	loginButton      = ".btn-login"
	loginButtonAlt   = `button[type="submit"]`

	maxLoginAttempts = 3
)

// loggedInScript checks for post-login chrome: the login button is gone and a
// navigation shell is present.
const loggedInScript = `(() => {
	return !document.querySelector('.btn-login') &&
		!!(document.querySelector('#navTop') ||
			document.querySelector('.navbar') ||
			document.querySelector('.optionsRight') ||
			document.querySelector('.dashboard'));
})()`

// simpleCaptchaScript clicks nothing; it only reports whether the challenge
// is a plain checkbox and tags it for a humanized click.
const simpleCaptchaScript = `(() => {
	const box = document.querySelector('.captcha-checkbox, input[type="checkbox"][name*="captcha"], .recaptcha-checkbox');
	if (box) { box.setAttribute('data-autopilot-captcha', '1'); return true; }
	return false;
})()`

// LoginDeps carries everything the login flow needs.
type LoginDeps struct {
	Page     Page
	URL      string
	Username string
	Password string
	Logger   *zap.Logger
	Emitter  observability.Emitter
}

type loginState int

const (
	stateAttempt loginState = iota
	stateRecovering
	stateSucceeded
	stateFailed
)

// Login signs the session in. The flow is a bounded state machine: each
// attempt either succeeds, moves to recovery (cool down, reload, try again),
// or fails for good after the attempt budget is spent. A CAPTCHA that is more
// than a checkbox ends the run with ErrHumanInterventionRequired.
func Login(ctx context.Context, deps LoginDeps) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("login")

	state := stateAttempt
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch state {
		case stateAttempt:
			attempts++
			observability.Emit(deps.Emitter, observability.LevelInfo,
				fmt.Sprintf("Logging in (attempt %d of %d)...", attempts, maxLoginAttempts))

			err := attemptLogin(ctx, deps, logger)
			switch {
			case err == nil:
				state = stateSucceeded
			case errors.Is(err, ErrHumanInterventionRequired):
				return err
			case attempts >= maxLoginAttempts:
				logger.Error("Login failed", zap.Int("attempts", attempts), zap.Error(err))
				state = stateFailed
			default:
				logger.Warn("Login attempt failed, recovering", zap.Int("attempt", attempts), zap.Error(err))
				state = stateRecovering
			}

		case stateRecovering:
			// Cool down before the next attempt so the cadence does not look
			// like a scripted hammer.
			delay := time.Duration(attempts) * 3 * time.Second
			if err := deps.Page.Sleep(ctx, delay); err != nil {
				return err
			}
			if err := deps.Page.Reload(ctx); err != nil {
				logger.Debug("Reload during login recovery failed", zap.Error(err))
			}
			state = stateAttempt

		case stateSucceeded:
			observability.Emit(deps.Emitter, observability.LevelSuccess, "Successfully logged in")
			return nil

		case stateFailed:
			observability.Emit(deps.Emitter, observability.LevelError, "Failed to log in")
			return fmt.Errorf("login failed after %d attempts", attempts)
		}
	}
}

func attemptLogin(ctx context.Context, deps LoginDeps, logger *zap.Logger) error {
	p := deps.Page

	if err := p.Navigate(ctx, deps.URL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	// Already signed in from a previous session.
	if loggedIn(ctx, p) {
		logger.Info("Session already authenticated")
		return nil
	}

	if err := p.WaitVisible(ctx, usernameSelector); err != nil {
		return fmt.Errorf("login form not visible: %w", err)
	}

	if classify.CaptchaPresent(ctx, p, logger) {
		if err := solveCheckboxCaptcha(ctx, p, logger); err != nil {
			return err
		}
	}

	if err := p.Type(ctx, usernameSelector, deps.Username); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := p.Type(ctx, passwordSelector, deps.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	button := loginButton
	if n, err := p.Count(ctx, button); err != nil || n == 0 {
		button = loginButtonAlt
	}
	if err := p.Click(ctx, button); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}

	if err := p.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}

	if !loggedIn(ctx, p) {
		return errors.New("logged-in indicators not found after submit")
	}
	return nil
}

func loggedIn(ctx context.Context, p Page) bool {
	var ok bool
	if err := p.Evaluate(ctx, loggedInScript, &ok); err != nil {
		return false
	}
	return ok
}

// solveCheckboxCaptcha handles the only challenge variant worth attempting.
// Anything past a checkbox needs a human.
func solveCheckboxCaptcha(ctx context.Context, p Page, logger *zap.Logger) error {
	var simple bool
	if err := p.Evaluate(ctx, simpleCaptchaScript, &simple); err != nil || !simple {
		return fmt.Errorf("captcha challenge detected: %w", ErrHumanInterventionRequired)
	}
	logger.Info("Checkbox captcha detected, clicking it")
	if err := p.Click(ctx, `[data-autopilot-captcha="1"]`); err != nil {
		return fmt.Errorf("captcha challenge detected: %w", ErrHumanInterventionRequired)
	}
	return p.Sleep(ctx, 2*time.Second)
}
