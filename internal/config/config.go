package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"duobudget/internal/log"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable pointing at an optional TOML file.
const FileEnv = "DUOBUDGET_CONFIG"

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	CacheTTL     time.Duration
	SeedDemoData bool

	// AMQP change feed, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Budget math
	SavingsNormalization string

	// Category advisor, disabled without an API key
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Google Sheets import
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	SheetsDir                string

	// Worker
	AlertCheckInterval time.Duration
}

var defaults = map[string]any{
	"port":                        "8081",
	"data_backend":                "sqlite",
	"sqlite_db_path":              "./data/duobudget.db",
	"cache_ttl":                   5 * time.Minute,
	"seed_demo_data":              true,
	"amqp_url":                    "",
	"amqp_exchange":               "duobudget",
	"amqp_queue":                  "collection_changes",
	"log_level":                   "info",
	"log_format":                  "text",
	"savings_normalization":       "face_value",
	"llm_api_key":                 "",
	"llm_base_url":                "",
	"llm_model":                   "gpt-4o-mini",
	"google_service_account_file": "",
	"google_service_account_json": "",
	"sheets_dir":                  "",
	"alert_check_interval":        time.Hour,
}

// Load reads defaults, the optional TOML file named by DUOBUDGET_CONFIG and
// the environment, in increasing order of precedence. Environment variables
// use the upper-case key, e.g. DATA_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Port: v.GetString("port"),

		DataBackend:  strings.ToLower(strings.TrimSpace(v.GetString("data_backend"))),
		SQLiteDBPath: v.GetString("sqlite_db_path"),
		CacheTTL:     v.GetDuration("cache_ttl"),
		SeedDemoData: v.GetBool("seed_demo_data"),

		AMQPURL:      strings.TrimSpace(v.GetString("amqp_url")),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		SavingsNormalization: strings.ToLower(strings.TrimSpace(v.GetString("savings_normalization"))),

		LLMAPIKey:  strings.TrimSpace(v.GetString("llm_api_key")),
		LLMBaseURL: strings.TrimSpace(v.GetString("llm_base_url")),
		LLMModel:   v.GetString("llm_model"),

		GoogleServiceAccountFile: v.GetString("google_service_account_file"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),
		SheetsDir:                v.GetString("sheets_dir"),

		AlertCheckInterval: v.GetDuration("alert_check_interval"),
	}, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.SavingsNormalization {
	case "face_value", "monthly_equivalent":
	default:
		errors = append(errors, fmt.Sprintf("invalid savings normalization '%s': must be face_value or monthly_equivalent", c.SavingsNormalization))
	}

	if c.LLMBaseURL != "" {
		if u, err := url.Parse(c.LLMBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid LLM base URL '%s': must be an http(s) URL", c.LLMBaseURL))
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.AlertCheckInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be at least 1 minute", c.AlertCheckInterval))
	} else if c.AlertCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be at most 24 hours", c.AlertCheckInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return l, nil
}

// AMQPEnabled reports whether the change feed is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// LLMEnabled reports whether the LLM advisor is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// SheetsEnabled reports whether Google Sheets credentials are configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleServiceAccountFile) != "" || strings.TrimSpace(c.GoogleServiceAccountJSON) != ""
}
