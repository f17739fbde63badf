// Package config loads the mailagent configuration from an optional file,
// a .env file and MAILAGENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tbxark/mailagent/transport"
)

const EnvPrefix = "MAILAGENT"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type HistoryConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type Config struct {
	Log      LogConfig            `mapstructure:"log"`
	LLM      LLMConfig            `mapstructure:"llm"`
	SMTP     transport.SMTPConfig `mapstructure:"smtp"`
	Contacts map[string]string    `mapstructure:"contacts"`
	Server   ServerConfig         `mapstructure:"server"`
	History  HistoryConfig        `mapstructure:"history"`
	Session  SessionConfig        `mapstructure:"session"`
}

var defaults = map[string]any{
	"log.level":            "info",
	"log.format":           "text",
	"llm.api_key":          "",
	"llm.base_url":         "",
	"llm.model":            "gpt-4o-mini",
	"smtp.host":            "",
	"smtp.port":            587,
	"smtp.username":        "",
	"smtp.password":        "",
	"smtp.from":            "",
	"smtp.tls":             transport.TLSStartTLS,
	"server.addr":          ":8080",
	"history.max_messages": 40,
	"session.idle_timeout": "30m",
}

// Load reads path (json, yaml or toml by extension) when it is not empty,
// then overlays the environment. A .env file in the working directory is
// loaded first if there is one.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SMTPEnabled reports whether delivery over SMTP is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// Validate rejects a partially configured SMTP block and unknown log
// settings.
func (c *Config) Validate() error {
	if c.SMTP.Host != "" || c.SMTP.From != "" {
		if c.SMTP.Host == "" || c.SMTP.From == "" || c.SMTP.Port <= 0 {
			return errors.New("smtp requires host, port and from")
		}
		if (c.SMTP.Username == "") != (c.SMTP.Password == "") {
			return errors.New("smtp username and password must be set together")
		}
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("session idle timeout must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return level, nil
}

// Logger builds the process logger from the log settings.
func (c *Config) Logger() *slog.Logger {
	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
