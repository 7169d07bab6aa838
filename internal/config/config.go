package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort          int
	DatabasePath        string
	JWTSecret           string
	JWTSecretGenerated  bool // no JWT_SECRET was configured; sessions end with the process
	SessionTTL          time.Duration
	Env                 string
	LogLevel            string
	LogPretty           bool
	AIModel             string
	AITimeout           time.Duration
	StaticDir           string
	AllowedOrigins      []string
	RetentionDays       int
	MaintenanceSchedule string
}

// Production reports whether the app runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

var defaults = map[string]any{
	"port":                   3000,
	"database_path":          "./tutoriq.db",
	"jwt_secret":             "",
	"session_ttl":            "24h",
	"app_env":                "development",
	"log_level":              "info",
	"ai_model":               "gemini-flash-latest",
	"ai_timeout":             "60s",
	"static_dir":             "./client",
	"allowed_origins":        "http://localhost:3000",
	"history_retention_days": 0,
	"maintenance_schedule":   "@daily",
}

// NewViper returns a viper instance bound to the environment and, when
// configFile is not empty, to that file. Environment variables win over the file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:          v.GetInt("port"),
		DatabasePath:        v.GetString("database_path"),
		JWTSecret:           v.GetString("jwt_secret"),
		SessionTTL:          v.GetDuration("session_ttl"),
		Env:                 strings.ToLower(v.GetString("app_env")),
		LogLevel:            v.GetString("log_level"),
		AIModel:             v.GetString("ai_model"),
		AITimeout:           v.GetDuration("ai_timeout"),
		StaticDir:           v.GetString("static_dir"),
		AllowedOrigins:      splitList(v.GetStringSlice("allowed_origins")),
		RetentionDays:       v.GetInt("history_retention_days"),
		MaintenanceSchedule: v.GetString("maintenance_schedule"),
	}

	if v.IsSet("log_pretty") {
		cfg.LogPretty = v.GetBool("log_pretty")
	} else {
		cfg.LogPretty = !cfg.Production()
	}

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", v.GetString("port"))
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL %q", v.GetString("session_ttl"))
	}
	if cfg.AITimeout <= 0 {
		return nil, fmt.Errorf("invalid AI_TIMEOUT %q", v.GetString("ai_timeout"))
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("invalid HISTORY_RETENTION_DAYS %d", cfg.RetentionDays)
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("DATABASE_PATH must not be empty")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString() + uuid.NewString()
		cfg.JWTSecretGenerated = true
	}
	return cfg, nil
}

// splitList accepts both list values and comma separated strings.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
