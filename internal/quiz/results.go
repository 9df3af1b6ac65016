// File: internal/quiz/results.go
package quiz

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultPassThreshold applies when a results page shows only a numeric
// score with no explicit pass or fail text.
const DefaultPassThreshold = 70.0

var resultContainerSelectors = []string{
	".quiz-results",
	".exam-results",
	".results-container",
	".score-container",
	".grade-container",
	".feedback-container",
	".quiz-feedback",
	".quiz-score",
	".exam-score",
	".quiz-grade",
	".exam-grade",
}

var (
	ratioPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// ParseScore extracts a numeric score from results text. Ratio form
// ("8/10") is preferred over a bare percentage. Returns nil when the text
// holds no score.
func ParseScore(text string) *Score {
	if m := ratioPattern.FindStringSubmatch(text); m != nil {
		earned, err1 := strconv.ParseFloat(m[1], 64)
		total, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && total > 0 {
			return &Score{
				Earned:     earned,
				Total:      total,
				Percentage: earned / total * 100,
				HasRatio:   true,
				Raw:        strings.TrimSpace(m[0]),
			}
		}
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &Score{Percentage: pct, Raw: strings.TrimSpace(m[0])}
		}
	}
	return nil
}

// DecidePassed resolves pass/fail: explicit text wins, then the threshold
// against the numeric score. Returns nil when neither is available.
func DecidePassed(bodyText string, score *Score, threshold float64) *bool {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}
	lower := strings.ToLower(bodyText)

	yes, no := true, false
	for _, phrase := range []string{"passed", "congratulations", "well done", "success"} {
		if strings.Contains(lower, phrase) {
			return &yes
		}
	}
	for _, phrase := range []string{"failed", "not passed", "try again", "unsuccessful"} {
		if strings.Contains(lower, phrase) {
			return &no
		}
	}

	if score != nil {
		if score.Percentage >= threshold {
			return &yes
		}
		return &no
	}
	return nil
}

// CheckResults reads the results page after submission. Absence of results
// is reported with Found=false, never as an error.
func CheckResults(ctx context.Context, p Page, passThreshold float64, logger *zap.Logger) Results {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Checking quiz results...")

	found := false
	for _, sel := range resultContainerSelectors {
		if n, err := p.Count(ctx, sel); err == nil && n > 0 {
			found = true
			break
		}
	}

	body, err := p.BodyText(ctx)
	if err != nil {
		logger.Warn("Could not read page while checking results", zap.Error(err))
		return Results{Found: false}
	}

	if !found {
		lower := strings.ToLower(body)
		hinted := false
		for _, word := range []string{"score", "grade", "result", "passed", "failed"} {
			if strings.Contains(lower, word) {
				hinted = true
				break
			}
		}
		if !hinted {
			logger.Warn("No indication of quiz results found")
			return Results{Found: false}
		}
	}

	// Prefer a dedicated score element over scanning the whole body.
	scoreText := body
	const scoreSelector = ".score, .grade, .result, .points, .percentage"
	if n, err := p.Count(ctx, scoreSelector); err == nil && n > 0 {
		var elText string
		script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? el.textContent : ""; })()`, scoreSelector)
		if err := p.Evaluate(ctx, script, &elText); err == nil && elText != "" {
			scoreText = elText
		}
	}

	score := ParseScore(scoreText)
	if score == nil && scoreText != body {
		score = ParseScore(body)
	}
	passed := DecidePassed(body, score, passThreshold)

	feedback := ""
	const feedbackSelector = ".feedback, .comments, .instructor-feedback"
	if n, err := p.Count(ctx, feedbackSelector); err == nil && n > 0 {
		script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? el.textContent.trim() : ""; })()`, feedbackSelector)
		if err := p.Evaluate(ctx, script, &feedback); err != nil {
			feedback = ""
		}
	}

	if score != nil {
		if score.HasRatio {
			logger.Info("Quiz score",
				zap.Float64("earned", score.Earned),
				zap.Float64("total", score.Total),
				zap.Float64("percentage", score.Percentage))
		} else {
			logger.Info("Quiz score", zap.Float64("percentage", score.Percentage))
		}
	}
	if passed != nil {
		logger.Info("Quiz result", zap.Bool("passed", *passed))
	}

	return Results{Found: true, Passed: passed, Score: score, Feedback: feedback}
}
