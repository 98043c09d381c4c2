package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string        `mapstructure:"addr"`
			Password string        `mapstructure:"password"`
			DB       int           `mapstructure:"db"`
			TTL      time.Duration `mapstructure:"ttl"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Places    PlacesConfig    `mapstructure:"places"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Language  LanguageConfig  `mapstructure:"language"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// LLMConfig selects the generative provider. Provider is "gemini" or "openai".
type LLMConfig struct {
	Provider           string  `mapstructure:"provider"`
	APIKey             string  `mapstructure:"apiKey"`
	Model              string  `mapstructure:"model"`
	EmbeddingModel     string  `mapstructure:"embeddingModel"`
	EmbeddingDimension int     `mapstructure:"embeddingDimension"`
	Temperature        float32 `mapstructure:"temperature"`
}

// PlacesConfig selects the search provider ("backend" or "googlemaps").
type PlacesConfig struct {
	Provider       string `mapstructure:"provider"`
	GoogleMapsKey  string `mapstructure:"googleMapsKey"`
	Region         string `mapstructure:"region"`
	CatalogBaseURL string `mapstructure:"catalogBaseURL"`
	MaxRadius      int    `mapstructure:"maxRadius"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type KnowledgeConfig struct {
	TopK       int `mapstructure:"topK"`
	RerankTopK int `mapstructure:"rerankTopK"`
	ChunkSize  int `mapstructure:"chunkSize"`
}

type PlannerConfig struct {
	DefaultDays int   `mapstructure:"defaultDays"`
	MaxDays     int   `mapstructure:"maxDays"`
	Seed        int64 `mapstructure:"seed"`
}

// LanguageConfig: Corpus is the language places and knowledge documents are stored in,
// Base the language response templates are written in.
type LanguageConfig struct {
	Corpus string `mapstructure:"corpus"`
	Base   string `mapstructure:"base"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// LLM_APIKEY overrides llm.apiKey, and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&config)
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

func applyDefaults(c *Config) {
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8000"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 120 * time.Second
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 10
	}
	if c.Knowledge.RerankTopK == 0 {
		c.Knowledge.RerankTopK = 3
	}
	if c.Knowledge.ChunkSize == 0 {
		c.Knowledge.ChunkSize = 800
	}
	if c.Planner.DefaultDays == 0 {
		c.Planner.DefaultDays = 3
	}
	if c.Planner.MaxDays == 0 {
		c.Planner.MaxDays = 14
	}
	if c.Language.Corpus == "" {
		c.Language.Corpus = "ko"
	}
	if c.Language.Base == "" {
		c.Language.Base = "en"
	}
	if c.Places.MaxRadius == 0 {
		c.Places.MaxRadius = 10000
	}
	if c.LLM.EmbeddingDimension == 0 {
		c.LLM.EmbeddingDimension = 1024
	}
}
