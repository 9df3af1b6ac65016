// File: internal/llm/client.go

// Package llm provides the assistant that answers quiz questions and writes
// free-response text. Requests are routed across a fast and a powerful model
// tier and paced by a shared rate limiter.
package llm

import (
	"context"
)

// ModelTier selects which class of model handles a request.
type ModelTier string

const (
	// TierFast serves cheap, low-latency calls like option selection.
	TierFast ModelTier = "fast"
	// TierPowerful serves calls that need quality, like essay generation.
	TierPowerful ModelTier = "powerful"
)

// GenerationRequest is a provider-agnostic completion request.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tier         ModelTier
	Temperature  float64
	MaxTokens    int
}

// Client generates a text completion for a request.
type Client interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
