// File: internal/classify/page.go
package classify

import (
	"context"

	"go.uber.org/zap"
)

// PageKind is the coarse classification of the current page.
type PageKind string

const (
	PageError      PageKind = "error"
	PageCompleted  PageKind = "completed"
	PageTimeLocked PageKind = "time-locked"
	PageQuiz       PageKind = "quiz"
	PageAssignment PageKind = "assignment"
	PageLogin      PageKind = "login"
	PageUnknown    PageKind = "unknown"
)

// assignmentContentSelectors indicate ordinary lesson material.
const assignmentContentSelectors = ".content, .lesson-content, article, .course-material"

// ClassifyPage resolves the page to a single kind. Precedence when multiple
// detectors fire: error > login > completed > time-locked > quiz >
// assignment > unknown. Login outranks completion because an expired
// session can render stale completion chrome.
func ClassifyPage(ctx context.Context, p Probe, t Thresholds, logger *zap.Logger) PageKind {
	if logger == nil {
		logger = zap.NewNop()
	}

	if NewDetector("error", ErrorIndicators, logger).Score(ctx, p).Score >= 8 {
		return PageError
	}
	if NewDetector("login", LoginIndicators, logger).Score(ctx, p).Score >= 10 {
		return PageLogin
	}
	if NewDetector("completion", CompletionIndicators, logger).Score(ctx, p).Score >= 8 {
		return PageCompleted
	}
	if NewDetector("timelock", TimeLockIndicators, logger).Score(ctx, p).Score >= 10 {
		return PageTimeLocked
	}
	if info := ClassifyQuiz(ctx, p, t, logger); info.IsQuiz {
		return PageQuiz
	}
	if n, err := p.Count(ctx, assignmentContentSelectors); err == nil && n > 0 {
		return PageAssignment
	}
	return PageUnknown
}

// SessionExpired reports whether the page shows a logged-out state. Used by
// the recovery engine and the orchestrator's session-expiry policy.
func SessionExpired(ctx context.Context, p Probe, logger *zap.Logger) (bool, error) {
	det := NewDetector("login", LoginIndicators, logger)
	res := det.Score(ctx, p)
	return res.Score >= 10, nil
}

// CaptchaPresent reports whether a human-verification challenge is visible.
func CaptchaPresent(ctx context.Context, p Probe, logger *zap.Logger) bool {
	return NewDetector("captcha", CaptchaIndicators, logger).Score(ctx, p).Score >= 8
}
