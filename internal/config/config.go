package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema           string        `mapstructure:"DB_SCHEMA"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StorageTimeout     time.Duration `mapstructure:"STORAGE_TIMEOUT"`
	ReportTemplatePath string        `mapstructure:"REPORT_TEMPLATE_PATH"`
	PhotoSize          int           `mapstructure:"PHOTO_SIZE"`
	PhotoDisplayInches float64       `mapstructure:"PHOTO_DISPLAY_INCHES"`
	ConverterBinary    string        `mapstructure:"CONVERTER_BINARY"`
	ConverterTimeout   time.Duration `mapstructure:"CONVERTER_TIMEOUT"`
	ReportCacheTTL     time.Duration `mapstructure:"REPORT_CACHE_TTL"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REDIS_URL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "STORAGE_TIMEOUT", "REPORT_TEMPLATE_PATH", "PHOTO_SIZE",
	"PHOTO_DISPLAY_INCHES", "CONVERTER_BINARY", "CONVERTER_TIMEOUT", "REPORT_CACHE_TTL",
	"MIGRATIONS_DIR",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORAGE_TIMEOUT", "5s")
	v.SetDefault("REPORT_TEMPLATE_PATH", "template.docx")
	v.SetDefault("PHOTO_SIZE", 144)
	v.SetDefault("PHOTO_DISPLAY_INCHES", 1.5)
	v.SetDefault("CONVERTER_BINARY", "soffice")
	v.SetDefault("CONVERTER_TIMEOUT", "60s")
	v.SetDefault("REPORT_CACHE_TTL", "24h")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.PhotoSize <= 0 {
		return fmt.Errorf("PHOTO_SIZE must be positive, got %d", c.PhotoSize)
	}
	if c.PhotoDisplayInches <= 0 {
		return fmt.Errorf("PHOTO_DISPLAY_INCHES must be positive, got %g", c.PhotoDisplayInches)
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":   c.RequestTimeout,
		"STORAGE_TIMEOUT":   c.StorageTimeout,
		"CONVERTER_TIMEOUT": c.ConverterTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ReportTemplatePath == "" {
		return fmt.Errorf("REPORT_TEMPLATE_PATH is required")
	}
	return nil
}
