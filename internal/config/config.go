package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	ChatGPT    ChatGPTConfig    `yaml:"chatgpt" mapstructure:"chatgpt"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin" mapstructure:"linkedin"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result files and answer cache.
type StoreConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	CachePath     string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ChatGPTConfig configures the headless browser session.
type ChatGPTConfig struct {
	URL                   string `yaml:"url" mapstructure:"url"`
	Headless              bool   `yaml:"headless" mapstructure:"headless"`
	NavigationTimeoutSecs int    `yaml:"navigation_timeout_secs" mapstructure:"navigation_timeout_secs"`
	ResponseTimeoutSecs   int    `yaml:"response_timeout_secs" mapstructure:"response_timeout_secs"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	FlashModel   string `yaml:"flash_model" mapstructure:"flash_model"`
	SummaryModel string `yaml:"summary_model" mapstructure:"summary_model"`
}

// LinkedInConfig configures the web search scraper.
type LinkedInConfig struct {
	SearchBaseURL     string  `yaml:"search_base_url" mapstructure:"search_base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RetryConfig configures per-source retry behavior.
type RetryConfig struct {
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RateLimitDelaySecs int `yaml:"rate_limit_delay_secs" mapstructure:"rate_limit_delay_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	SourceTimeoutSecs int `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.cache_path", "data/answers.db")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("chatgpt.url", "https://chat.openai.com/")
	v.SetDefault("chatgpt.headless", true)
	v.SetDefault("chatgpt.navigation_timeout_secs", 30)
	v.SetDefault("chatgpt.response_timeout_secs", 90)
	v.SetDefault("gemini.flash_model", "gemini-2.0-flash")
	v.SetDefault("gemini.summary_model", "gemini-1.5-flash")
	v.SetDefault("linkedin.search_base_url", "https://www.google.com/search")
	v.SetDefault("linkedin.requests_per_second", 0.5)
	v.SetDefault("linkedin.timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.rate_limit_delay_secs", 10)
	v.SetDefault("batch.source_timeout_secs", 180)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that credentials required for a discovery run are
// present. Missing keys must surface before the first company is touched,
// not as per-company failures.
func (c *Config) Validate() error {
	if c.Gemini.Key == "" {
		return eris.New("config: gemini.key is required (set CHRO_GEMINI_KEY)")
	}
	if c.Perplexity.Key == "" {
		return eris.New("config: perplexity.key is required (set CHRO_PERPLEXITY_KEY)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
