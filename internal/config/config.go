package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/sales-skills-engine/internal/constants"
)

type Config struct {
	LLM      LLMConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Rubric   RubricConfig
	Coach    CoachConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

type LLMConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	GeminiAPIKey string
	Timeout      time.Duration
	MaxRetries   int
	JudgeModel   string
	CoachModel   string

	// BreakerThreshold of 0 disables the provider breaker.
	BreakerThreshold int
	BreakerReset     time.Duration
}

type CacheConfig struct {
	Backend       string
	Version       string
	QualifyTTL    time.Duration
	AssessmentTTL time.Duration
	RoleplayTTL   time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RubricConfig struct {
	DefaultSet string
	File       string
	DBDriver   string
	DBDSN      string
}

type CoachConfig struct {
	Company  string
	Vertical string
	Buyers   string
}

type ServerConfig struct {
	Addr        string
	MetricsAddr string
	AllowOrigin string
}

type PipelineConfig struct {
	Concurrency int
}

type LoggingConfig struct {
	Level string
	File  string
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenRouter)),
			APIKey:       getEnvAny([]string{"LLM_API_KEY", "OPENROUTER_KEY"}, ""),
			BaseURL:      strings.TrimRight(getEnvAny([]string{"LLM_BASE_URL", "OPENROUTER_BASE_URL"}, constants.LLMConfig.DefaultBaseURL), "/"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Timeout:      time.Duration(getEnvIntAny([]string{"LLM_TIMEOUT_MS", "OPENROUTER_TIMEOUT_MS"}, int(constants.LLMConfig.DefaultTimeout/time.Millisecond))) * time.Millisecond,
			MaxRetries:   getEnvInt("LLM_MAX_RETRIES", constants.RetryConfig.MaxRetries),
			JudgeModel:   getEnv("JUDGE_MODEL", ""),
			CoachModel:   getEnv("COACH_MODEL", constants.LLMConfig.DefaultCoachModel),

			BreakerThreshold: getEnvInt("LLM_BREAKER_THRESHOLD", constants.LLMConfig.BreakerThreshold),
			BreakerReset:     time.Duration(getEnvInt("LLM_BREAKER_RESET_MS", int(constants.LLMConfig.BreakerReset/time.Millisecond))) * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
			Version:       getEnv("CACHE_VERSION", constants.DefaultCacheVersion),
			QualifyTTL:    ttlFromEnv("QUALIFY_TTL_SECS", constants.CacheTTL.Qualify),
			AssessmentTTL: ttlFromEnv("ASSESSMENT_TTL_SECS", constants.CacheTTL.Assessment),
			RoleplayTTL:   ttlFromEnv("ROLEPLAY_TTL_SECS", constants.CacheTTL.Roleplay),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Rubric: RubricConfig{
			DefaultSet: getEnv("DEFAULT_RUBRIC_SET", constants.DefaultRubricSet),
			File:       getEnv("RUBRIC_FILE", ""),
			DBDriver:   getEnv("RUBRIC_DB_DRIVER", ""),
			DBDSN:      getEnv("RUBRIC_DB_DSN", ""),
		},
		Coach: CoachConfig{
			Company:  getEnv("COACH_COMPANY", "Turnitin"),
			Vertical: getEnv("COACH_VERTICAL", "EdTech / Education"),
			Buyers:   getEnv("COACH_BUYERS", "educational institutions (universities, colleges, schools)"),
		},
		Server: ServerConfig{
			Addr:        getEnv("SERVER_ADDR", constants.ServerConfig.DefaultAddr),
			MetricsAddr: getEnv("METRICS_ADDR", constants.ServerConfig.DefaultMetricsAddr),
			AllowOrigin: getEnv("ALLOW_ORIGIN", "*"),
		},
		Pipeline: PipelineConfig{
			Concurrency: getEnvInt("FANOUT_CONCURRENCY", constants.PipelineConfig.DefaultConcurrency),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY (or OPENROUTER_KEY) is required")
		}
		if c.LLM.JudgeModel == "" {
			return fmt.Errorf("JUDGE_MODEL is required")
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		if c.LLM.JudgeModel == "" {
			c.LLM.JudgeModel = "gemini-2.5-flash"
		}
		if c.LLM.CoachModel == constants.LLMConfig.DefaultCoachModel {
			c.LLM.CoachModel = "gemini-2.5-flash"
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_MS must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Cache.Version == "" {
		return fmt.Errorf("CACHE_VERSION must not be empty")
	}
	if (c.Rubric.DBDriver == "") != (c.Rubric.DBDSN == "") {
		return fmt.Errorf("RUBRIC_DB_DRIVER and RUBRIC_DB_DSN must be set together")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("FANOUT_CONCURRENCY must be positive")
	}
	return nil
}

// ttlFromEnv reads a per-namespace TTL; KV_TTL_SECS overrides every namespace.
func ttlFromEnv(key string, fallback time.Duration) time.Duration {
	secs := getEnvIntAny([]string{"KV_TTL_SECS", key}, int(fallback/time.Second))
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvIntAny(keys []string, defaultValue int) int {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			if intVal, err := strconv.Atoi(value); err == nil {
				return intVal
			}
		}
	}
	return defaultValue
}
