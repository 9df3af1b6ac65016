// File: internal/orchestrator/assignment.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/lms"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
	"github.com/xkilldash9x/lms-autopilot/internal/scratch"
)

type assignmentOutcome struct {
	completed  bool
	needsLogin bool
	err        string
}

// processAssignment opens one assignment and drives it to completion:
// classify the page, satisfy any time gate, then complete the quiz, text
// response, or paced content it holds. Failures are recorded, never thrown.
func (r *Runner) processAssignment(ctx context.Context, session Session, a lms.Assignment, courseID string) assignmentOutcome {
	logger := r.logger.With(zap.String("assignment", a.Name))
	observability.Emit(r.emitter, observability.LevelInfo, fmt.Sprintf("Starting assignment: %s", a.Name))

	if a.URL != "" {
		err := retry.Navigation(ctx, session, func(ctx context.Context) error {
			return session.Navigate(ctx, a.URL)
		}, r.retryOpts)
		if err != nil {
			if expired, _ := classify.SessionExpired(ctx, session, logger); expired {
				return assignmentOutcome{needsLogin: true}
			}
			return assignmentOutcome{err: fmt.Sprintf("failed to open assignment: %v", err)}
		}
	}

	if err := scratch.Collect(ctx, session, courseID, r.store, logger); err != nil {
		logger.Debug("Page context collection failed", zap.Error(err))
	}
	courseContext := r.store.PromptContext(courseID)

	thresholds := r.engine.Thresholds
	kind := classify.ClassifyPage(ctx, session, thresholds, logger)
	logger.Info("Classified assignment page", zap.String("kind", string(kind)))

	switch kind {
	case classify.PageLogin:
		return assignmentOutcome{needsLogin: true}

	case classify.PageCompleted:
		observability.Emit(r.emitter, observability.LevelInfo,
			fmt.Sprintf("Assignment already completed: %s", a.Name))
		return assignmentOutcome{completed: true}

	case classify.PageError:
		recovered, needsLogin := retry.AttemptRecovery(ctx, session, retry.Strategies{
			Refresh:      true,
			GoBack:       true,
			CheckSession: true,
			CheckErrors:  true,
			WaitAndRetry: true,
			SessionExpired: func(ctx context.Context) (bool, error) {
				return classify.SessionExpired(ctx, session, logger)
			},
			Logger: logger,
		})
		if needsLogin {
			return assignmentOutcome{needsLogin: true}
		}
		if !recovered {
			return assignmentOutcome{err: "assignment page showed an error and recovery failed"}
		}
		kind = classify.ClassifyPage(ctx, session, thresholds, logger)

	case classify.PageTimeLocked:
		req := r.resolver.Detect(ctx, session)
		if err := r.resolver.Satisfy(ctx, session, req); err != nil {
			return assignmentOutcome{err: fmt.Sprintf("time gate not satisfied: %v", err)}
		}
		// Satisfying the gate also means waiting out the Next control when
		// the page has one still disabled.
		if found, enabled := r.resolver.NextEnabled(ctx, session); found && !enabled {
			r.resolver.WaitForNextEnabled(ctx, session)
		}
		kind = classify.ClassifyPage(ctx, session, thresholds, logger)
	}

	var outcome assignmentOutcome
	switch kind {
	case classify.PageQuiz:
		outcome = r.completeQuiz(ctx, session, courseContext)
	case classify.PageLogin:
		return assignmentOutcome{needsLogin: true}
	case classify.PageCompleted:
		outcome = assignmentOutcome{completed: true}
	default:
		outcome = r.completeContent(ctx, session, courseContext, logger)
	}

	if outcome.completed {
		r.screenshots.Capture(ctx, session, "assignment")
		observability.Emit(r.emitter, observability.LevelSuccess,
			fmt.Sprintf("Assignment completed: %s", a.Name))
	} else if outcome.err != "" {
		observability.Emit(r.emitter, observability.LevelError,
			fmt.Sprintf("Failed to complete assignment: %s", a.Name))
	}
	return outcome
}

func (r *Runner) completeQuiz(ctx context.Context, session Session, courseContext string) assignmentOutcome {
	result := r.engine.Complete(ctx, session, courseContext)
	if !result.Success {
		return assignmentOutcome{err: result.Err}
	}
	if result.Results.Passed != nil && !*result.Results.Passed {
		return assignmentOutcome{err: "quiz submitted but not passed"}
	}
	return assignmentOutcome{completed: true}
}

// completeContent handles non-quiz material: a text-response form when one
// exists, otherwise paced pages advanced with the Next control.
func (r *Runner) completeContent(ctx context.Context, session Session, courseContext string, logger *zap.Logger) assignmentOutcome {
	if done, handled := r.handleTextAssignment(ctx, session, courseContext, logger); handled {
		return done
	}

	pages, err := r.engine.AdvancePaced(ctx, session, courseContext)
	if err != nil {
		return assignmentOutcome{err: fmt.Sprintf("paced content failed after %d pages: %v", pages, err)}
	}
	logger.Info("Paced content finished", zap.Int("pages", pages))

	kind := classify.ClassifyPage(ctx, session, r.engine.Thresholds, logger)
	switch kind {
	case classify.PageCompleted:
		return assignmentOutcome{completed: true}
	case classify.PageLogin:
		return assignmentOutcome{needsLogin: true}
	}
	if pages > 0 {
		// The content ran out of Next pages without explicit completion
		// chrome. Count it done; the list page is the source of truth.
		return assignmentOutcome{completed: true}
	}
	return assignmentOutcome{err: "no completable content found on assignment page"}
}

// handleTextAssignment fills and submits a free-response form. The second
// return reports whether such a form was present at all.
func (r *Runner) handleTextAssignment(ctx context.Context, session Session, courseContext string, logger *zap.Logger) (assignmentOutcome, bool) {
	const responseField = `textarea[name="response"], textarea.assignment-response`
	n, err := session.Count(ctx, responseField)
	if err != nil || n == 0 {
		return assignmentOutcome{}, false
	}

	prompt := "Complete the assignment."
	if text, err := session.Text(ctx, ".assignment-prompt"); err == nil && text != "" {
		prompt = text
	}

	logger.Info("Generating response for text assignment")
	response, err := r.assistant.GenerateText(ctx, prompt, courseContext)
	if err != nil {
		return assignmentOutcome{err: fmt.Sprintf("failed to generate response: %v", err)}, true
	}

	if err := session.Type(ctx, responseField, response); err != nil {
		return assignmentOutcome{err: fmt.Sprintf("failed to enter response: %v", err)}, true
	}
	if err := session.Click(ctx, `button[type="submit"]`); err != nil {
		return assignmentOutcome{err: fmt.Sprintf("failed to submit response: %v", err)}, true
	}

	confirmed, _ := retry.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		n, err := session.Count(ctx, ".submission-confirmation")
		return err == nil && n > 0, nil
	}, time.Second, 10*time.Second)
	if !confirmed {
		logger.Warn("No submission confirmation appeared, proceeding")
	}
	return assignmentOutcome{completed: true}, true
}
