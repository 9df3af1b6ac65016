// File: internal/llm/assistant.go
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Assistant is the surface the quiz engine depends on.
type Assistant interface {
	// SelectChoice picks one option for a multiple-choice question and
	// returns its 1-based index.
	SelectChoice(ctx context.Context, question string, options []string, courseContext string) (int, error)

	// GenerateText writes a free-response answer to the prompt.
	GenerateText(ctx context.Context, prompt string, courseContext string) (string, error)
}

const choiceSystemPrompt = `You are a diligent student completing an online course assignment.
You will be given a question and a numbered list of answer options.
Respond with ONLY the number of the best option. No explanation, no punctuation, just the number.`

const textSystemPrompt = `You are a diligent student completing an online course assignment.
Write a clear, correct answer to the prompt in plain prose.
Do not mention that you are an AI. Keep the answer focused and concise.`

// ClientAssistant adapts a Client (usually a Router) to the Assistant
// interface: choice selection goes to the fast tier, text generation to the
// powerful tier.
type ClientAssistant struct {
	client Client
	logger *zap.Logger
}

// NewAssistant wraps a client.
func NewAssistant(client Client, logger *zap.Logger) *ClientAssistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientAssistant{client: client, logger: logger.Named("assistant")}
}

// SelectChoice asks the fast tier to pick an option and parses the reply as
// a strict 1-based integer.
func (a *ClientAssistant) SelectChoice(ctx context.Context, question string, options []string, courseContext string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options provided")
	}

	var sb strings.Builder
	if courseContext != "" {
		sb.WriteString("COURSE CONTEXT:\n")
		sb.WriteString(courseContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString("QUESTION:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nOPTIONS:\n")
	for i, opt := range options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, opt)
	}
	fmt.Fprintf(&sb, "\nAnswer with the number of the best option (1-%d).", len(options))

	raw, err := a.client.Generate(ctx, GenerationRequest{
		SystemPrompt: choiceSystemPrompt,
		UserPrompt:   sb.String(),
		Tier:         TierFast,
		Temperature:  0.1,
	})
	if err != nil {
		return 0, fmt.Errorf("choice generation: %w", err)
	}

	idx, err := ParseChoiceIndex(raw)
	if err != nil {
		return 0, fmt.Errorf("parse choice response %q: %w", raw, err)
	}
	a.logger.Debug("Assistant selected option", zap.Int("index", idx))
	return idx, nil
}

// GenerateText asks the powerful tier for a free-response answer.
func (a *ClientAssistant) GenerateText(ctx context.Context, prompt string, courseContext string) (string, error) {
	var sb strings.Builder
	if courseContext != "" {
		sb.WriteString("COURSE CONTEXT:\n")
		sb.WriteString(courseContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString("PROMPT:\n")
	sb.WriteString(prompt)

	text, err := a.client.Generate(ctx, GenerationRequest{
		SystemPrompt: textSystemPrompt,
		UserPrompt:   sb.String(),
		Tier:         TierPowerful,
		Temperature:  0.7,
	})
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}
	return strings.TrimSpace(text), nil
}

var leadingInt = regexp.MustCompile(`\d+`)

// ParseChoiceIndex extracts a positive integer from a model reply. Replies
// like "2", "2.", or "Option 2" all resolve to 2; anything without a digit
// is an error.
func ParseChoiceIndex(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("index %d is not positive", n)
		}
		return n, nil
	}
	m := leadingInt.FindString(trimmed)
	if m == "" {
		return 0, fmt.Errorf("no integer in response")
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("index %d is not positive", n)
	}
	return n, nil
}
