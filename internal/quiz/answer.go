// File: internal/quiz/answer.go
package quiz

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
	"github.com/xkilldash9x/lms-autopilot/internal/llm"
)

// maxBlankLength caps fill-in-blank answers.
const maxBlankLength = 50

// AnswerQuestion generates an answer for one question. For choice questions
// the assistant's 1-based index is validated in range; out-of-range answers
// produce a failed Answer and nothing is ever guessed or submitted.
func AnswerQuestion(ctx context.Context, assistant llm.Assistant, q Question, courseContext string, logger *zap.Logger) Answer {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch q.Kind {
	case classify.KindMultipleChoice, classify.KindMultipleSelect:
		return answerChoice(ctx, assistant, q, courseContext, logger)
	case classify.KindFreeResponse:
		text, err := assistant.GenerateText(ctx, q.Text, courseContext)
		if err != nil {
			return Answer{Err: fmt.Sprintf("failed to generate response: %v", err)}
		}
		logger.Info("Generated free response answer", zap.Int("length", len(text)))
		return Answer{Success: true, Response: text, Confidence: ConfidenceMedium}
	case classify.KindFillInBlank:
		prompt := q.Text + " (Provide a very brief answer, preferably a single word or short phrase)"
		text, err := assistant.GenerateText(ctx, prompt, courseContext)
		if err != nil {
			return Answer{Err: fmt.Sprintf("failed to generate response: %v", err)}
		}
		short := TruncateBlank(text)
		logger.Info("Generated fill-in-blank answer", zap.String("answer", short))
		return Answer{Success: true, Response: short, Confidence: ConfidenceMedium}
	default:
		return Answer{Err: fmt.Sprintf("unsupported question type: %s", q.Kind)}
	}
}

func answerChoice(ctx context.Context, assistant llm.Assistant, q Question, courseContext string, logger *zap.Logger) Answer {
	if len(q.Options) == 0 {
		return Answer{Err: "question has no options"}
	}

	texts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		texts[i] = opt.Text
	}

	selected, err := assistant.SelectChoice(ctx, q.Text, texts, courseContext)
	if err != nil {
		return Answer{Err: fmt.Sprintf("failed to select option: %v", err)}
	}

	zeroBased := selected - 1
	if zeroBased < 0 || zeroBased >= len(q.Options) {
		logger.Error("Assistant returned out-of-range option index",
			zap.Int("index", selected), zap.Int("options", len(q.Options)))
		return Answer{OptionIndex: 0, Confidence: ConfidenceLow, Err: "invalid option index"}
	}

	logger.Info("Selected answer option",
		zap.Int("index", zeroBased),
		zap.String("text", truncateForLog(q.Options[zeroBased].Text)))
	return Answer{Success: true, OptionIndex: zeroBased, Confidence: ConfidenceHigh}
}

// TruncateBlank reduces generated text to a single short line suitable for a
// fill-in-blank field: the first line, capped at 50 characters.
func TruncateBlank(text string) string {
	line := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if len(line) > maxBlankLength {
		line = line[:maxBlankLength]
	}
	return line
}

func truncateForLog(s string) string {
	if len(s) > 30 {
		return s[:30] + "..."
	}
	return s
}
