// File: internal/quiz/engine.go
package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/llm"
	"github.com/xkilldash9x/lms-autopilot/internal/observability"
	"github.com/xkilldash9x/lms-autopilot/internal/retry"
	"github.com/xkilldash9x/lms-autopilot/internal/timegate"
)

// Engine orchestrates quiz completion on a page.
type Engine struct {
	Assistant     llm.Assistant
	Resolver      *timegate.Resolver
	Thresholds    classify.Thresholds
	PassThreshold float64
	MaxPacedPages int
	RetryOpts     retry.Options

	Logger  *zap.Logger
	Emitter observability.Emitter

	rng *rand.Rand
}

// NewEngine creates a quiz engine.
func NewEngine(assistant llm.Assistant, resolver *timegate.Resolver, logger *zap.Logger, emitter observability.Emitter) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Assistant:     assistant,
		Resolver:      resolver,
		PassThreshold: DefaultPassThreshold,
		MaxPacedPages: 50,
		Logger:        logger.Named("quiz"),
		Emitter:       emitter,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Probe adapts the quiz Page to the classifier's read surface.
type pageProbe struct{ p Page }

func (pp pageProbe) Count(ctx context.Context, sel string) (int, error) { return pp.p.Count(ctx, sel) }
func (pp pageProbe) BodyText(ctx context.Context) (string, error)       { return pp.p.BodyText(ctx) }
func (pp pageProbe) Title(ctx context.Context) (string, error)          { return pp.p.Title(ctx) }

// Complete runs the whole quiz flow on the current page: detect, extract,
// answer and submit each question, submit the quiz, parse results. A failed
// question is skipped, never a guess; the loop continues.
func (e *Engine) Complete(ctx context.Context, p Page, courseContext string) Outcome {
	emit := func(level observability.Level, msg string) {
		observability.Emit(e.Emitter, level, msg)
	}
	emit(observability.LevelInfo, "Starting quiz completion process")

	info := classify.ClassifyQuiz(ctx, pageProbe{p}, e.Thresholds, e.Logger)
	if !info.IsQuiz {
		emit(observability.LevelWarning, "This does not appear to be a quiz page")
		return Outcome{Err: "not a quiz page"}
	}

	kind := "quiz"
	if info.IsExam {
		kind = "exam"
	}
	emit(observability.LevelInfo, fmt.Sprintf("Detected %s with %d questions", kind, info.QuestionCount))

	questions, err := ExtractQuestions(ctx, p, info, e.Logger)
	if err != nil {
		emit(observability.LevelError, "Failed to extract questions from the quiz")
		return Outcome{Err: err.Error()}
	}
	if len(questions) == 0 {
		emit(observability.LevelError, "Could not extract any questions from the quiz")
		return Outcome{Err: "no questions extracted"}
	}

	answered := 0
	for i, q := range questions {
		emit(observability.LevelInfo, fmt.Sprintf("Processing question %d of %d", i+1, len(questions)))

		answer := AnswerQuestion(ctx, e.Assistant, q, courseContext, e.Logger)
		if !answer.Success {
			emit(observability.LevelError, fmt.Sprintf("Failed to generate answer for question %d: %s", i+1, answer.Err))
			continue
		}

		if !SubmitAnswer(ctx, p, q, answer, e.RetryOpts, e.Logger) {
			emit(observability.LevelError, fmt.Sprintf("Failed to submit answer for question %d", i+1))
			continue
		}
		answered++

		// One bounded second attempt when the page flags the answer wrong.
		if feedback := IncorrectFeedback(ctx, p); feedback != "" {
			if e.retryWithFeedback(ctx, p, q, answer, feedback, courseContext) {
				emit(observability.LevelInfo, fmt.Sprintf("Re-answered question %d after feedback", i+1))
			}
		}

		// Inter-question pause so the cadence reads as human.
		delay := time.Second + time.Duration(e.rng.Int63n(int64(2*time.Second)))
		if err := p.Sleep(ctx, delay); err != nil {
			return Outcome{AnsweredCount: answered, TotalQuestions: len(questions), Err: err.Error()}
		}
	}

	level := observability.LevelSuccess
	if answered < len(questions) {
		level = observability.LevelWarning
	}
	emit(level, fmt.Sprintf("Answered %d out of %d questions", answered, len(questions)))

	submitted := SubmitQuiz(ctx, p, e.RetryOpts, e.Logger)
	if !submitted {
		emit(observability.LevelError, "Failed to submit the quiz")
		return Outcome{
			AnsweredCount:  answered,
			TotalQuestions: len(questions),
			Err:            "failed to submit quiz",
		}
	}

	results := CheckResults(ctx, p, e.PassThreshold, e.Logger)
	return Outcome{
		Success:        true,
		AnsweredCount:  answered,
		TotalQuestions: len(questions),
		Submitted:      true,
		Results:        results,
	}
}

// retryWithFeedback re-asks the assistant with the grading feedback and the
// options minus the one already tried, then submits the new pick. One
// attempt only.
func (e *Engine) retryWithFeedback(ctx context.Context, p Page, q Question, prev Answer, feedback, courseContext string) bool {
	if q.Kind != classify.KindMultipleChoice && q.Kind != classify.KindMultipleSelect {
		return false
	}
	remaining := make([]Option, 0, len(q.Options))
	for i, opt := range q.Options {
		if i == prev.OptionIndex {
			continue
		}
		remaining = append(remaining, opt)
	}
	if len(remaining) == 0 {
		return false
	}

	texts := make([]string, len(remaining))
	for i, opt := range remaining {
		texts[i] = opt.Text
	}
	prompt := fmt.Sprintf("%s\n\nYour previous answer was marked incorrect. Feedback: %s", q.Text, feedback)

	selected, err := e.Assistant.SelectChoice(ctx, prompt, texts, courseContext)
	if err != nil || selected < 1 || selected > len(remaining) {
		e.Logger.Warn("Feedback retry failed to produce a valid choice", zap.Error(err))
		return false
	}

	retryQ := q
	retryQ.Options = remaining
	answer := Answer{Success: true, OptionIndex: selected - 1, Confidence: ConfidenceLow}
	return SubmitAnswer(ctx, p, retryQ, answer, e.RetryOpts, e.Logger)
}

// AdvancePaced works through paced content: on each page it satisfies any
// time gate, completes any quiz, then clicks Next. The loop is bounded by
// MaxPacedPages so a circular course can never spin forever.
func (e *Engine) AdvancePaced(ctx context.Context, p Page, courseContext string) (int, error) {
	maxPages := e.MaxPacedPages
	if maxPages <= 0 {
		maxPages = 50
	}

	tgPage, tgOK := any(p).(timegate.Page)
	pages := 0
	for pages < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		if tgOK && e.Resolver != nil {
			req := e.Resolver.Detect(ctx, tgPage)
			if err := e.Resolver.Satisfy(ctx, tgPage, req); err != nil {
				return pages, fmt.Errorf("time gate on paced page %d: %w", pages+1, err)
			}
		}

		if info := classify.ClassifyQuiz(ctx, pageProbe{p}, e.Thresholds, e.Logger); info.IsQuiz {
			outcome := e.Complete(ctx, p, courseContext)
			if !outcome.Success {
				e.Logger.Warn("Quiz on paced page did not complete", zap.String("error", outcome.Err))
			}
		}

		if tgOK && e.Resolver != nil && !e.Resolver.WaitForNextEnabled(ctx, tgPage) {
			// No Next control or it never enabled; end of the paced section.
			return pages, nil
		}
		if !clickNext(ctx, p, e.Logger) {
			return pages, nil
		}
		pages++
	}

	e.Logger.Warn("Paced content page cap reached", zap.Int("pages", pages))
	return pages, nil
}

func clickNext(ctx context.Context, p Page, logger *zap.Logger) bool {
	const script = `(() => {
		const sels = ['.next-button', '.btn-next', '[aria-label="Next"]', '.pagination-next'];
		for (const s of sels) {
			const el = document.querySelector(s);
			if (el) { el.setAttribute('data-autopilot-next', '1'); return true; }
		}
		for (const el of document.querySelectorAll('button, a')) {
			const text = (el.textContent || '').trim().toLowerCase();
			if (text === 'next' || text === 'continue') {
				el.setAttribute('data-autopilot-next', '1');
				return true;
			}
		}
		return false;
	})()`
	var found bool
	if err := p.Evaluate(ctx, script, &found); err != nil || !found {
		return false
	}
	if err := p.Click(ctx, `[data-autopilot-next="1"]`); err != nil {
		logger.Debug("Next click failed", zap.Error(err))
		return false
	}
	return true
}
