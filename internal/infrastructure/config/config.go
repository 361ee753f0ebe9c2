package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/poly-workshop/go-webmods/app"
	"github.com/spf13/viper"
)

const (
	DriverREST = "rest"
	DriverSDK  = "sdk"
)

type AppConfig struct {
	HTTP struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"http"`

	// GRPC serves the grpc.health.v1 endpoint when Listen is set.
	GRPC struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"grpc"`

	LLM struct {
		Driver  string        `mapstructure:"driver"`
		BaseURL string        `mapstructure:"base_url"`
		APIKey  string        `mapstructure:"api_key"`
		Model   string        `mapstructure:"model"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"llm"`

	Upload struct {
		Dir      string `mapstructure:"dir"`
		MaxBytes int64  `mapstructure:"max_bytes"`
	} `mapstructure:"upload"`

	Auth struct {
		ServiceTokens []struct {
			Name  string `mapstructure:"name"`
			Token string `mapstructure:"token"`
		} `mapstructure:"service_tokens"`
	} `mapstructure:"auth"`

	UsageCallback struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"usage_callback"`
}

// LoadDotEnv loads env files (default ".env") into the process environment.
// Variables already set are kept and missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadApp reads the config initialized by app.InitWithConfigPath.
func LoadApp() (AppConfig, error) {
	v := app.Config()
	if v == nil {
		return AppConfig{}, fmt.Errorf("app.Config() is nil: did you call app.Init(...) first?")
	}
	return Load(v)
}

func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{}

	if err := unmarshalViper(v, &cfg); err != nil {
		return cfg, err
	}

	if cfg.HTTP.Listen == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		cfg.HTTP.Listen = ":" + port
	}
	if cfg.LLM.Driver == "" {
		cfg.LLM.Driver = DriverREST
	}
	if cfg.LLM.Driver != DriverREST && cfg.LLM.Driver != DriverSDK {
		return cfg, fmt.Errorf("invalid config: llm.driver must be %q or %q, got %q", DriverREST, DriverSDK, cfg.LLM.Driver)
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Driver == DriverREST {
		cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		return cfg, fmt.Errorf("missing config: llm.api_key (or GEMINI_API_KEY)")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "uploads"
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = 20 << 20
	}
	if cfg.UsageCallback.Timeout == 0 {
		cfg.UsageCallback.Timeout = 3 * time.Second
	}

	return cfg, nil
}

func unmarshalViper(v *viper.Viper, out any) error {
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
