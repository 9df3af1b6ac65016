// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SessionExpiredPolicy decides what happens when a logged-in session is
// detected to have expired mid-run.
type SessionExpiredPolicy string

const (
	// SessionExpiredResume logs in again and retries the interrupted assignment once.
	SessionExpiredResume SessionExpiredPolicy = "resume"
	// SessionExpiredAbortCourse abandons the current course and moves on.
	SessionExpiredAbortCourse SessionExpiredPolicy = "abort-course"
	// SessionExpiredAbortRun terminates the whole run.
	SessionExpiredAbortRun SessionExpiredPolicy = "abort-run"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	LMS        LMSConfig        `mapstructure:"lms"`
	Automation AutomationConfig `mapstructure:"automation"`
	LLM        LLMRouterConfig  `mapstructure:"llm"`
}

// LoggerConfig holds all configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"`
	SlowMo       time.Duration `mapstructure:"slow_mo"`
	DisableCache bool          `mapstructure:"disable_cache"`
	Args         []string      `mapstructure:"args"`
	ViewportW    int64         `mapstructure:"viewport_width"`
	ViewportH    int64         `mapstructure:"viewport_height"`
	PostLoadWait time.Duration `mapstructure:"post_load_wait"`
	UserDataDir  string        `mapstructure:"user_data_dir"`
	RecordVideos bool          `mapstructure:"record_videos"`
	VideosDir    string        `mapstructure:"videos_dir"`
}

// LMSConfig identifies the target LMS and the account to automate.
type LMSConfig struct {
	URL            string   `mapstructure:"url"`
	AssignmentsURL string   `mapstructure:"assignments_url"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	CourseIDs      []string `mapstructure:"course_ids"`
}

// AutomationConfig tunes the behavior of the automation run itself.
type AutomationConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay     time.Duration `mapstructure:"max_retry_delay"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SaveScreenshots   bool          `mapstructure:"save_screenshots"`
	ScreenshotDir     string        `mapstructure:"screenshot_dir"`
	SpeedUpVideos     bool          `mapstructure:"speed_up_videos"`
	MaxTimeGateWait   time.Duration `mapstructure:"max_time_gate_wait"`
	MaxPacedPages     int           `mapstructure:"max_paced_pages"`
	Parallel          bool          `mapstructure:"parallel"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`

	// PassThreshold is the fallback percentage used to decide pass or fail
	// when a results page shows only a numeric score.
	PassThreshold float64 `mapstructure:"pass_threshold"`

	// QuizThreshold and ExamThreshold are the cumulative indicator scores at
	// which a page is treated as a quiz or an exam.
	QuizThreshold int `mapstructure:"quiz_threshold"`
	ExamThreshold int `mapstructure:"exam_threshold"`

	OnSessionExpired SessionExpiredPolicy `mapstructure:"on_session_expired"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model"`
	RequestsPerMinute    int                       `mapstructure:"requests_per_minute"`
	Models               map[string]LLMModelConfig `mapstructure:"models"`
}

// LLMModelConfig defines the configuration for a single model endpoint.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "lms-autopilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// Browser defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.record_videos", false)
	v.SetDefault("browser.videos_dir", "artifacts/videos")

	// Automation defaults
	v.SetDefault("automation.max_retries", 3)
	v.SetDefault("automation.retry_delay", "1s")
	v.SetDefault("automation.max_retry_delay", "30s")
	v.SetDefault("automation.navigation_timeout", "30s")
	v.SetDefault("automation.save_screenshots", true)
	v.SetDefault("automation.screenshot_dir", "artifacts/screenshots")
	v.SetDefault("automation.speed_up_videos", false)
	v.SetDefault("automation.max_time_gate_wait", "60s")
	v.SetDefault("automation.max_paced_pages", 50)
	v.SetDefault("automation.parallel", false)
	v.SetDefault("automation.max_concurrent", 2)
	v.SetDefault("automation.pass_threshold", 70.0)
	v.SetDefault("automation.quiz_threshold", 15)
	v.SetDefault("automation.exam_threshold", 20)
	v.SetDefault("automation.on_session_expired", string(SessionExpiredAbortCourse))

	// LLM defaults
	v.SetDefault("llm.default_fast_model", "fast")
	v.SetDefault("llm.default_powerful_model", "powerful")
	v.SetDefault("llm.requests_per_minute", 30)
}

// FromViper unmarshals the resolved viper state into a typed Config.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		// Defaults must always unmarshal.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return cfg
}

// Validate checks that the configuration is sufficient to start a run.
func (c *Config) Validate() error {
	if c.LMS.URL == "" {
		return fmt.Errorf("lms.url is required")
	}
	if c.LMS.Username == "" || c.LMS.Password == "" {
		return fmt.Errorf("lms.username and lms.password are required")
	}
	if c.Automation.MaxRetries < 0 {
		return fmt.Errorf("automation.max_retries must not be negative")
	}
	if c.Automation.MaxConcurrent < 1 {
		return fmt.Errorf("automation.max_concurrent must be at least 1")
	}
	switch c.Automation.OnSessionExpired {
	case SessionExpiredResume, SessionExpiredAbortCourse, SessionExpiredAbortRun:
	default:
		return fmt.Errorf("automation.on_session_expired must be one of resume, abort-course, abort-run (got %q)",
			c.Automation.OnSessionExpired)
	}
	for name, m := range c.LLM.Models {
		switch m.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return fmt.Errorf("llm.models.%s.provider must be gemini or openai (got %q)", name, m.Provider)
		}
	}
	return nil
}
