package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	ChatModel        string
	VectorStoreID    string
	ServerAddr       string
	PgConn           string
	MaxMessageChars  int
	UpstreamTimeout  time.Duration
	BodyLimit        int
	CORSAllowOrigins string
	LogLevel         string
	LogFormat        string
	DocsDir          string
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4.1-mini")
	v.SetDefault("PORT", "3000")
	v.SetDefault("MAX_MESSAGE_CHARS", 1500)
	v.SetDefault("UPSTREAM_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", 1<<20)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DOCS_DIR", "docs")

	addr := v.GetString("SERVER_ADDR")
	if addr == "" {
		addr = ":" + v.GetString("PORT")
	}

	cfg := &Config{
		OpenAIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:    strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
		ChatModel:        v.GetString("OPENAI_MODEL"),
		VectorStoreID:    v.GetString("VECTOR_STORE_ID"),
		ServerAddr:       addr,
		PgConn:           v.GetString("PG_CONN"),
		MaxMessageChars:  v.GetInt("MAX_MESSAGE_CHARS"),
		UpstreamTimeout:  v.GetDuration("UPSTREAM_TIMEOUT"),
		BodyLimit:        v.GetInt("BODY_LIMIT"),
		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:        strings.ToLower(v.GetString("LOG_FORMAT")),
		DocsDir:          v.GetString("DOCS_DIR"),
	}

	if cfg.MaxMessageChars <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_CHARS must be positive, got %d", cfg.MaxMessageChars)
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", cfg.UpstreamTimeout)
	}
	return cfg, nil
}

// RequireServer checks the settings the chat relay cannot start without.
func (c *Config) RequireServer() error {
	var errs []error
	if c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.VectorStoreID == "" {
		errs = append(errs, errors.New("VECTOR_STORE_ID is required"))
	}
	return errors.Join(errs...)
}

// RequireSetup checks the settings the vector store setup needs.
func (c *Config) RequireSetup() error {
	if c.OpenAIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}
