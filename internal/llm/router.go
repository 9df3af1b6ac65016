// File: internal/llm/router.go
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Router implements Client and routes requests to the tier's client. All
// requests share one rate limiter so the two tiers together stay under the
// provider budget.
type Router struct {
	logger  *zap.Logger
	clients map[ModelTier]Client
	limiter *rate.Limiter
}

// NewRouter creates a router with the specified clients for each tier.
// requestsPerMinute <= 0 disables pacing.
func NewRouter(logger *zap.Logger, fastClient, powerfulClient Client, requestsPerMinute int) (*Router, error) {
	if fastClient == nil || powerfulClient == nil {
		return nil, fmt.Errorf("both fast and powerful tier clients must be provided")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
	}

	return &Router{
		logger: logger.Named("llm_router"),
		clients: map[ModelTier]Client{
			TierFast:     fastClient,
			TierPowerful: powerfulClient,
		},
		limiter: limiter,
	}, nil
}

// Generate selects the appropriate client based on the request's tier.
func (r *Router) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	tier := req.Tier
	if tier == "" {
		tier = TierPowerful
	}

	client, ok := r.clients[tier]
	if !ok {
		return "", fmt.Errorf("no LLM client configured for tier: %s", tier)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))
	return client.Generate(ctx, req)
}
