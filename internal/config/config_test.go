// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LMS.URL = "https://lms.example.com/login"
	cfg.LMS.Username = "user"
	cfg.LMS.Password = "pass"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "lms-autopilot", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, int64(1280), cfg.Browser.ViewportW)
	assert.Equal(t, 3, cfg.Automation.MaxRetries)
	assert.Equal(t, time.Second, cfg.Automation.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Automation.MaxRetryDelay)
	assert.Equal(t, 70.0, cfg.Automation.PassThreshold)
	assert.Equal(t, 15, cfg.Automation.QuizThreshold)
	assert.Equal(t, 20, cfg.Automation.ExamThreshold)
	assert.Equal(t, 50, cfg.Automation.MaxPacedPages)
	assert.Equal(t, 2, cfg.Automation.MaxConcurrent)
	assert.Equal(t, SessionExpiredAbortCourse, cfg.Automation.OnSessionExpired)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
}

func TestEnvAndFilePrecedence(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	// An explicit Set (flag/file level) overrides the default.
	v.Set("automation.max_retries", 7)
	v.Set("lms.url", "https://other.example.com")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Automation.MaxRetries)
	assert.Equal(t, "https://other.example.com", cfg.LMS.URL)
	// Untouched keys keep their defaults.
	assert.Equal(t, 70.0, cfg.Automation.PassThreshold)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	noURL := validConfig()
	noURL.LMS.URL = ""
	assert.Error(t, noURL.Validate())

	noCreds := validConfig()
	noCreds.LMS.Password = ""
	assert.Error(t, noCreds.Validate())

	badPolicy := validConfig()
	badPolicy.Automation.OnSessionExpired = "shrug"
	assert.Error(t, badPolicy.Validate())

	badProvider := validConfig()
	badProvider.LLM.Models = map[string]LLMModelConfig{
		"fast": {Provider: "anthropic", Model: "x"},
	}
	assert.Error(t, badProvider.Validate())

	goodProvider := validConfig()
	goodProvider.LLM.Models = map[string]LLMModelConfig{
		"fast":     {Provider: ProviderGemini, Model: "gemini-1.5-flash", APIKey: "k"},
		"powerful": {Provider: ProviderOpenAI, Model: "gpt-4o", APIKey: "k"},
	}
	assert.NoError(t, goodProvider.Validate())

	negRetries := validConfig()
	negRetries.Automation.MaxRetries = -1
	assert.Error(t, negRetries.Validate())
}
