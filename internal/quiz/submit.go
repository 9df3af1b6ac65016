// File: internal/quiz/submit.go
package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
)

// submitSelectors are the ordered submit-control candidates.
var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	".submit-button",
	".quiz-submit",
	".exam-submit",
	"#submit-quiz",
	"#submit-exam",
	"#finish-quiz",
	"#complete-quiz",
}

// resultConfirmSelectors confirm a completed submission.
const resultConfirmSelectors = ".success-message, .confirmation, .quiz-results, .exam-results, .quiz-complete, .exam-complete"

// SubmitAnswer commits a generated answer to the page: clicking the chosen
// option for choice questions, typing the response for text questions.
func SubmitAnswer(ctx context.Context, p Page, q Question, a Answer, opts retry.Options, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !a.Success {
		logger.Error("Cannot submit answer", zap.String("reason", a.Err))
		return false
	}

	switch q.Kind {
	case classify.KindMultipleChoice, classify.KindMultipleSelect:
		if a.OptionIndex < 0 || a.OptionIndex >= len(q.Options) {
			logger.Error("Answer option index out of range", zap.Int("index", a.OptionIndex))
			return false
		}
		opt := q.Options[a.OptionIndex]
		if opt.Selector == "" {
			logger.Error("No selector available for the selected option")
			return false
		}
		alternatives := []string{
			fmt.Sprintf(`input[value=%q]`, opt.Value),
		}
		err := retry.Interaction(ctx, p, opt.Selector, func(ctx context.Context, sel string) error {
			return p.Click(ctx, sel)
		}, opts, alternatives...)
		if err != nil {
			logger.Error("Failed to select answer option", zap.Int("question", q.Index), zap.Error(err))
			return false
		}
		logger.Info("Selected answer option", zap.Int("question", q.Index))
		return true

	case classify.KindFreeResponse, classify.KindFillInBlank:
		if q.Selector == "" {
			logger.Error("No selector available for the text field")
			return false
		}
		err := retry.Interaction(ctx, p, q.Selector, func(ctx context.Context, sel string) error {
			return p.Type(ctx, sel, a.Response)
		}, opts)
		if err != nil {
			logger.Error("Failed to enter text response", zap.Int("question", q.Index), zap.Error(err))
			return false
		}
		logger.Info("Entered text response", zap.Int("question", q.Index))
		return true
	}

	logger.Error("Unsupported question type", zap.String("kind", string(q.Kind)))
	return false
}

// SubmitQuiz walks the submit-control candidates, skips disabled ones, and
// clicks the first enabled control. Confirmation is a results element, a
// navigation, or the control disappearing; a vanished control counts as
// success. Returns false when no enabled control exists.
func SubmitQuiz(ctx context.Context, p Page, opts retry.Options, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Attempting to submit the quiz...")

	candidates := append([]string{}, submitSelectors...)
	if sel := findSubmitByText(ctx, p, logger); sel != "" {
		candidates = append(candidates, sel)
	}

	for _, selector := range candidates {
		n, err := p.Count(ctx, selector)
		if err != nil || n == 0 {
			continue
		}

		disabled, err := controlDisabled(ctx, p, selector)
		if err != nil {
			logger.Debug("Disabled-state probe failed", zap.String("selector", selector), zap.Error(err))
			continue
		}
		if disabled {
			logger.Warn("Submit control is disabled, trying next candidate", zap.String("selector", selector))
			continue
		}

		err = retry.Interaction(ctx, p, selector, func(ctx context.Context, sel string) error {
			return p.Click(ctx, sel)
		}, opts)
		if err != nil {
			logger.Error("Failed to click submit control", zap.String("selector", selector), zap.Error(err))
			continue
		}

		return confirmSubmission(ctx, p, selector, logger)
	}

	logger.Error("Could not find or click any enabled submit control")
	return false
}

// findSubmitByText scans buttons and links for submit-like labels, tagging
// the match so it can be clicked by selector.
func findSubmitByText(ctx context.Context, p Page, logger *zap.Logger) string {
	const script = `(() => {
		const labels = ['submit quiz', 'submit exam', 'submit assessment', 'submit', 'finish', 'complete'];
		const candidates = document.querySelectorAll('button, a, input[type="button"]');
		for (const el of candidates) {
			const text = (el.textContent || el.value || '').trim().toLowerCase();
			if (labels.includes(text)) {
				el.setAttribute('data-autopilot-submit', '1');
				return true;
			}
		}
		return false;
	})()`
	var found bool
	if err := p.Evaluate(ctx, script, &found); err != nil {
		logger.Debug("Submit text scan failed", zap.Error(err))
		return ""
	}
	if !found {
		return ""
	}
	return `[data-autopilot-submit="1"]`
}

func controlDisabled(ctx context.Context, p Page, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return true;
		return el.disabled ||
			el.getAttribute('aria-disabled') === 'true' ||
			el.classList.contains('disabled') ||
			parseFloat(getComputedStyle(el).opacity) < 0.5;
	})()`, selector)
	var disabled bool
	err := p.Evaluate(ctx, script, &disabled)
	return disabled, err
}

// confirmSubmission waits briefly for evidence the submission landed.
func confirmSubmission(ctx context.Context, p Page, clicked string, logger *zap.Logger) bool {
	ok, _ := retry.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		if n, err := p.Count(ctx, resultConfirmSelectors); err == nil && n > 0 {
			return true, nil
		}
		// The control disappearing is implicit success.
		if n, err := p.Count(ctx, clicked); err == nil && n == 0 {
			return true, nil
		}
		return false, nil
	}, time.Second, 10*time.Second)

	if ok {
		logger.Info("Quiz submission confirmed")
		return true
	}
	// No confirmation, but the click landed. Proceed.
	logger.Warn("No confirmation of successful submission, proceeding")
	return true
}

// feedbackSelectors show inline per-question grading after an answer.
const feedbackSelectors = ".feedback-incorrect, .incorrect-answer, .answer-feedback.incorrect, .feedback.wrong"

// IncorrectFeedback returns the visible feedback text when the page flags
// the last answer as wrong, or empty when it doesn't.
func IncorrectFeedback(ctx context.Context, p Page) string {
	const script = `(() => {
		const el = document.querySelector('.feedback-incorrect, .incorrect-answer, .answer-feedback.incorrect, .feedback.wrong');
		if (el) return el.textContent.trim();
		const modal = document.querySelector('.modal.show, .modal[style*="display: block"]');
		if (modal && /incorrect|try again|wrong/i.test(modal.textContent)) return modal.textContent.trim();
		return '';
	})()`
	var text string
	if err := p.Evaluate(ctx, script, &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
