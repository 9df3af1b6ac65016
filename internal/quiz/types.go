// File: internal/quiz/types.go

// Package quiz extracts questions from assessment pages, answers them with
// the LLM assistant, submits them, and parses the results.
package quiz

import (
	"context"
	"time"

	"github.com/xkilldash9x/lms-autopilot/internal/classify"
)

// Page is the browser surface the quiz engine needs. browser.Session
// implements it; tests use fakes.
type Page interface {
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	BodyText(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Evaluate(ctx context.Context, script string, out interface{}) error
	Sleep(ctx context.Context, d time.Duration) error
	Title(ctx context.Context) (string, error)
}

// Option is a single answer choice.
type Option struct {
	Text     string `json:"text"`
	Value    string `json:"value"`
	Selector string `json:"selector"`
}

// Question is one extracted quiz question.
type Question struct {
	Index    int                   `json:"index"`
	Text     string                `json:"text"`
	Kind     classify.QuestionKind `json:"kind"`
	Selector string                `json:"selector,omitempty"`
	Options  []Option              `json:"options,omitempty"`
}

// Confidence grades how much to trust a generated answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Answer is the assistant's response to a question. OptionIndex is 0-based
// into Question.Options and only meaningful for choice questions.
type Answer struct {
	Success     bool
	OptionIndex int
	Response    string
	Confidence  Confidence
	Err         string
}

// Score is a parsed numeric result.
type Score struct {
	Earned     float64
	Total      float64
	Percentage float64
	HasRatio   bool
	Raw        string
}

// Results is the outcome of a quiz submission.
type Results struct {
	Found    bool
	Passed   *bool
	Score    *Score
	Feedback string
}

// Outcome summarizes a complete quiz run.
type Outcome struct {
	Success        bool
	AnsweredCount  int
	TotalQuestions int
	Submitted      bool
	Results        Results
	Err            string
}
