// File: internal/classify/classify.go

// Package classify decides what kind of page the agent is looking at using
// weighted indicator scoring. Detection never hard-fails: an absent
// indicator contributes zero, and probe errors are logged and treated as
// no-match so classification stays usable on a half-loaded page.
package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Probe is the read-only page surface classification needs. It is
// implemented by browser.Session and faked in tests.
type Probe interface {
	Count(ctx context.Context, selector string) (int, error)
	BodyText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
}

// Indicator is a single weighted signal. Exactly one of Selector or Text is
// set: Selector matches when at least one element exists, Text matches when
// the page body contains the phrase (case-insensitive).
type Indicator struct {
	Selector string
	Text     string
	Weight   int
}

// Result is the outcome of scoring a detector's indicator set.
type Result struct {
	Score   int
	Matched []string
}

// Detector scores a page against a named indicator set.
type Detector struct {
	Name       string
	Indicators []Indicator
	logger     *zap.Logger
}

// NewDetector builds a detector over the given indicators.
func NewDetector(name string, indicators []Indicator, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{Name: name, Indicators: indicators, logger: logger.Named("classify")}
}

// Score sums the weights of all matching indicators. The body text is
// fetched once and reused for all text indicators.
func (d *Detector) Score(ctx context.Context, p Probe) Result {
	var res Result
	var bodyLower string
	bodyFetched := false

	for _, ind := range d.Indicators {
		switch {
		case ind.Selector != "":
			n, err := p.Count(ctx, ind.Selector)
			if err != nil {
				d.logger.Debug("Indicator probe failed",
					zap.String("detector", d.Name),
					zap.String("selector", ind.Selector),
					zap.Error(err))
				continue
			}
			if n > 0 {
				res.Score += ind.Weight
				res.Matched = append(res.Matched, ind.Selector)
			}
		case ind.Text != "":
			if !bodyFetched {
				body, err := p.BodyText(ctx)
				if err != nil {
					d.logger.Debug("Body text probe failed",
						zap.String("detector", d.Name), zap.Error(err))
					bodyFetched = true
					continue
				}
				bodyLower = strings.ToLower(body)
				bodyFetched = true
			}
			if bodyLower != "" && strings.Contains(bodyLower, strings.ToLower(ind.Text)) {
				res.Score += ind.Weight
				res.Matched = append(res.Matched, ind.Text)
			}
		}
	}
	return res
}

// Matches reports whether any indicator in the set matches at all.
func (d *Detector) Matches(ctx context.Context, p Probe) bool {
	return d.Score(ctx, p).Score > 0
}
