package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Matching   MatchingConfig
	HouseBrand HouseBrandConfig
	Vision     ProviderConfig
	ReRank     ProviderConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig tunes the weighted matching pipeline
type MatchingConfig struct {
	AcceptanceThreshold float64            `mapstructure:"acceptance_threshold"`
	CandidateLimit      int                `mapstructure:"candidate_limit"`
	CandidateMinScore   float64            `mapstructure:"candidate_min_score"`
	DimensionTolerance  float64            `mapstructure:"dimension_tolerance"`
	ReRankConfidence    float64            `mapstructure:"rerank_confidence"`
	Weights             map[string]float64 `mapstructure:"weights"`
	EnforceOneToOne     bool               `mapstructure:"enforce_one_to_one"`
	EnableDebugLogging  bool               `mapstructure:"enable_debug_logging"`
}

// HouseBrandConfig tunes cross-brand equivalence matching
type HouseBrandConfig struct {
	PriceTolerance float64 `mapstructure:"price_tolerance"`
	SizeTolerance  float64 `mapstructure:"size_tolerance"`
}

// ProviderConfig holds one external provider's settings
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds per-provider outbound rate limits (requests/hour)
type RateLimitConfig struct {
	Vision int `mapstructure:"vision"`
	ReRank int `mapstructure:"rerank"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if present (development convenience)
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricematch/")

	// Environment variable settings
	v.SetEnvPrefix("PRICEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads a .env file from the working directory and exports
// its variables. Existing environment variables are never overridden.
func loadEnvFile() error {
	file, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Matching defaults
	v.SetDefault("matching.acceptance_threshold", 60.0)
	v.SetDefault("matching.candidate_limit", 10)
	v.SetDefault("matching.candidate_min_score", 30.0)
	v.SetDefault("matching.dimension_tolerance", 0.10)
	v.SetDefault("matching.rerank_confidence", 60.0)
	v.SetDefault("matching.enforce_one_to_one", false)
	v.SetDefault("matching.enable_debug_logging", false)

	// House-brand defaults
	v.SetDefault("housebrand.price_tolerance", 0.30)
	v.SetDefault("housebrand.size_tolerance", 0.10)

	// Provider defaults; both stay off until configured.
	// Empty-string defaults register the keys so env overrides unmarshal.
	v.SetDefault("vision.enabled", false)
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.base_url", "")
	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.api_key", "")
	v.SetDefault("rerank.base_url", "")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Rate limit defaults (requests per hour)
	v.SetDefault("ratelimit.vision", 1000)
	v.SetDefault("ratelimit.rerank", 500)
}

// validate validates the configuration. Errors here are fatal at startup;
// the engine never silently repairs a bad table mid-run.
func validate(config *Config) error {
	m := &config.Matching
	if m.AcceptanceThreshold < 0 || m.AcceptanceThreshold > 100 {
		return fmt.Errorf("matching.acceptance_threshold must be in [0,100], got: %v", m.AcceptanceThreshold)
	}
	if m.CandidateMinScore < 0 || m.CandidateMinScore > 100 {
		return fmt.Errorf("matching.candidate_min_score must be in [0,100], got: %v", m.CandidateMinScore)
	}
	if m.CandidateLimit < 1 {
		return fmt.Errorf("matching.candidate_limit must be at least 1, got: %d", m.CandidateLimit)
	}
	if m.DimensionTolerance <= 0 || m.DimensionTolerance > 1 {
		return fmt.Errorf("matching.dimension_tolerance must be in (0,1], got: %v", m.DimensionTolerance)
	}

	if len(m.Weights) > 0 {
		var sum float64
		for attr, weight := range m.Weights {
			if weight < 0 {
				return fmt.Errorf("matching.weights.%s is negative (%v)", attr, weight)
			}
			sum += weight
		}
		if sum <= 0 {
			return fmt.Errorf("matching.weights must sum to a positive value, got: %v", sum)
		}
	}

	hb := &config.HouseBrand
	if hb.PriceTolerance <= 0 || hb.PriceTolerance > 1 {
		return fmt.Errorf("housebrand.price_tolerance must be in (0,1], got: %v", hb.PriceTolerance)
	}
	if hb.SizeTolerance <= 0 || hb.SizeTolerance > 1 {
		return fmt.Errorf("housebrand.size_tolerance must be in (0,1], got: %v", hb.SizeTolerance)
	}

	if config.Vision.Enabled && config.Vision.BaseURL == "" {
		return fmt.Errorf("vision.base_url is required when vision is enabled (set PRICEMATCH_VISION_BASE_URL)")
	}
	if config.ReRank.Enabled && config.ReRank.BaseURL == "" {
		return fmt.Errorf("rerank.base_url is required when rerank is enabled (set PRICEMATCH_RERANK_BASE_URL)")
	}

	return nil
}
