// File: internal/llm/factory.go
package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lms-autopilot/internal/config"
)

// NewFromConfig builds the tiered router from configuration. The fast and
// powerful tiers are looked up in the models map by the configured names;
// when only one model is configured it serves both tiers.
func NewFromConfig(cfg config.LLMRouterConfig, logger *zap.Logger) (*Router, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("no LLM models configured")
	}

	fastClient, err := clientForTier(cfg, cfg.DefaultFastModel, logger)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	powerfulClient, err := clientForTier(cfg, cfg.DefaultPowerfulModel, logger)
	if err != nil {
		return nil, fmt.Errorf("powerful tier: %w", err)
	}

	return NewRouter(logger, fastClient, powerfulClient, cfg.RequestsPerMinute)
}

func clientForTier(cfg config.LLMRouterConfig, name string, logger *zap.Logger) (Client, error) {
	modelCfg, ok := cfg.Models[name]
	if !ok {
		// Fall back to the sole configured model.
		if len(cfg.Models) == 1 {
			for fallbackName, m := range cfg.Models {
				logger.Warn("Model name not configured, falling back to only model",
					zap.String("requested", name), zap.String("using", fallbackName))
				modelCfg = m
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("model %q is not configured", name)
		}
	}

	switch modelCfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(modelCfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(modelCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %q", modelCfg.Provider, name)
	}
}
