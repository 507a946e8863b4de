// Package config loads deskbot configuration from a JSON file or from
// DESKBOT_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level deskbot configuration.
type Config struct {
	Server        ServerConfig     `json:"server"`
	Completion    CompletionConfig `json:"completion"`
	Tickets       TicketsConfig    `json:"tickets"`
	Sessions      SessionsConfig   `json:"sessions"`
	Notify        NotifyConfig     `json:"notify"`
	KnowledgeBase string           `json:"knowledge_base,omitempty"` // path to a YAML file; empty = built-in
	DataDir       string           `json:"data_dir"`
}

// ServerConfig holds REST API server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key,omitempty"` // empty disables auth
}

// CompletionConfig holds chat-completion service settings. An empty APIKey
// is valid: the bot then runs on the local rule-based responder only.
type CompletionConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TicketsConfig holds CRM ticket backend settings. An empty BaseURL keeps
// tickets in process memory.
type TicketsConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// SessionsConfig holds session lifecycle settings.
type SessionsConfig struct {
	TTLMinutes    int    `json:"ttl_minutes"`
	SweepSchedule string `json:"sweep_schedule,omitempty"` // cron expression or @every form
}

// NotifyConfig holds escalation notification settings.
type NotifyConfig struct {
	Slack *SlackConfig `json:"slack,omitempty"`
}

// SlackConfig holds Slack notifier settings.
type SlackConfig struct {
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

// Defaults applied by Load and LoadFromEnv.
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8090
	DefaultTTLMinutes    = 60
	DefaultSweepSchedule = "@every 5m"
	DefaultDataDir       = "/data"
)

// TTL returns the session time-to-live as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// Load reads configuration from a JSON file, applies defaults, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the
// DESKBOT_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getenv("DESKBOT_API_HOST", DefaultHost),
			Port: getenvInt("DESKBOT_API_PORT", DefaultPort),
			Key:  os.Getenv("DESKBOT_API_KEY"),
		},
		Completion: CompletionConfig{
			APIKey:  os.Getenv("DESKBOT_OPENAI_API_KEY"),
			BaseURL: os.Getenv("DESKBOT_OPENAI_BASE_URL"),
			Model:   os.Getenv("DESKBOT_MODEL"),
		},
		Tickets: TicketsConfig{
			BaseURL: os.Getenv("DESKBOT_TICKETS_URL"),
			APIKey:  os.Getenv("DESKBOT_TICKETS_API_KEY"),
		},
		Sessions: SessionsConfig{
			TTLMinutes:    getenvInt("DESKBOT_SESSION_TTL_MINUTES", DefaultTTLMinutes),
			SweepSchedule: getenv("DESKBOT_SWEEP_SCHEDULE", DefaultSweepSchedule),
		},
		KnowledgeBase: os.Getenv("DESKBOT_KNOWLEDGE_BASE"),
		DataDir:       getenv("DESKBOT_DATA_DIR", DefaultDataDir),
	}

	if token := os.Getenv("DESKBOT_SLACK_BOT_TOKEN"); token != "" {
		cfg.Notify.Slack = &SlackConfig{
			BotToken: token,
			Channel:  os.Getenv("DESKBOT_SLACK_CHANNEL"),
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Sessions.TTLMinutes == 0 {
		c.Sessions.TTLMinutes = DefaultTTLMinutes
	}
	if c.Sessions.SweepSchedule == "" {
		c.Sessions.SweepSchedule = DefaultSweepSchedule
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
}

// Validate checks for inconsistent settings. All problems are reported at
// once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Sessions.TTLMinutes < 0 {
		errs = append(errs, "sessions.ttl_minutes must not be negative")
	}
	if c.Tickets.BaseURL != "" && !strings.HasPrefix(c.Tickets.BaseURL, "http") {
		errs = append(errs, fmt.Sprintf("tickets.base_url %q is not an http(s) URL", c.Tickets.BaseURL))
	}
	if c.Completion.BaseURL != "" && !strings.HasPrefix(c.Completion.BaseURL, "http") {
		errs = append(errs, fmt.Sprintf("completion.base_url %q is not an http(s) URL", c.Completion.BaseURL))
	}
	if s := c.Notify.Slack; s != nil {
		if s.BotToken == "" {
			errs = append(errs, "notify.slack.bot_token is required")
		}
		if s.Channel == "" {
			errs = append(errs, "notify.slack.channel is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
