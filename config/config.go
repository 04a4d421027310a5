// Package config provides configuration for the verimeet service. It
// supports loading from a YAML file, environment variables, and the system
// keyring for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verimeet/verimeet/credentials"
	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/integrations/gcal"
	"github.com/verimeet/verimeet/pkg/integrations/gmail"
	"github.com/verimeet/verimeet/pkg/integrations/meetstream"
	"github.com/verimeet/verimeet/pkg/integrations/notion"
	"github.com/verimeet/verimeet/pkg/integrations/websearch"
)

// Default configuration values.
const (
	DefaultConfigDir     = ".verimeet"
	DefaultConfigFile    = "config.yaml"
	DefaultServerHost    = "0.0.0.0"
	DefaultServerPort    = 8000
	DefaultLLMModel      = "gpt-4o-mini"
	DefaultLLMTimeout    = 60 * time.Second
	DefaultMeetstreamURL = "https://api.meetstream.ai"
	DefaultRedisAddr     = "localhost:6379"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	PublicURL    string   `yaml:"public_url"`
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"-"`
}

// RedisConfig holds event publishing settings. Disabled by default; the
// in-process WebSocket hub still broadcasts without it.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AppConfig is the full service configuration.
type AppConfig struct {
	Server     ServerConfig      `yaml:"server"`
	Logging    LoggingConfig     `yaml:"logging"`
	LLM        LLMConfig         `yaml:"llm"`
	Meetstream meetstream.Config `yaml:"meetstream"`
	Search     websearch.Config  `yaml:"search"`
	Notion     notion.Config     `yaml:"notion"`
	Calendar   gcal.Config       `yaml:"calendar"`
	Gmail      gmail.Config      `yaml:"gmail"`
	Recipients []string          `yaml:"summary_recipients,omitempty"`
	Redis      RedisConfig       `yaml:"redis"`
}

// Default returns an AppConfig with default values.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
		LLM: LLMConfig{
			Model:   DefaultLLMModel,
			Timeout: DefaultLLMTimeout,
		},
		Meetstream: meetstream.Config{APIURL: DefaultMeetstreamURL},
		Redis:      RedisConfig{Addr: DefaultRedisAddr},
	}
}

// Dir returns the configuration directory. Uses $VERIMEET_CONFIG_DIR when
// set, otherwise ~/.verimeet.
func Dir() (string, error) {
	if dir := os.Getenv("VERIMEET_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// Path returns the full path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads configuration in this order, later sources overriding
// earlier: defaults, config file, environment variables, then the keyring
// for secrets that are still empty.
func Load() (*AppConfig, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)
	fillFromKeyring(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	// Duration fields come in as strings.
	var durations struct {
		LLM struct {
			Timeout string `yaml:"timeout"`
		} `yaml:"llm"`
	}
	if err := yaml.Unmarshal(data, &durations); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if durations.LLM.Timeout != "" {
		timeout, err := time.ParseDuration(durations.LLM.Timeout)
		if err != nil {
			return fmt.Errorf("parsing llm timeout: %w", err)
		}
		cfg.LLM.Timeout = timeout
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = DefaultLLMTimeout
	}

	return nil
}

// loadFromEnv overlays VERIMEET_* environment variables.
func loadFromEnv(cfg *AppConfig) {
	setString := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	setString(&cfg.Server.Host, "VERIMEET_SERVER_HOST")
	if v := os.Getenv("VERIMEET_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setString(&cfg.Server.PublicURL, "VERIMEET_PUBLIC_URL")

	setString(&cfg.Logging.Level, "VERIMEET_LOG_LEVEL")
	if v := os.Getenv("VERIMEET_LOG_JSON"); v == "false" || v == "0" {
		cfg.Logging.JSON = false
	}

	setString(&cfg.LLM.APIKey, "VERIMEET_OPENAI_API_KEY")
	setString(&cfg.LLM.Model, "VERIMEET_OPENAI_MODEL")
	setString(&cfg.LLM.BaseURL, "VERIMEET_OPENAI_BASE_URL")

	setString(&cfg.Meetstream.APIURL, "VERIMEET_MEETSTREAM_API_URL")
	setString(&cfg.Meetstream.APIKey, "VERIMEET_MEETSTREAM_API_KEY")

	setString(&cfg.Search.SerperAPIKey, "VERIMEET_SERPER_API_KEY")
	setString(&cfg.Search.TavilyAPIKey, "VERIMEET_TAVILY_API_KEY")
	setString(&cfg.Search.GoogleAPIKey, "VERIMEET_GOOGLE_SEARCH_API_KEY")
	setString(&cfg.Search.GoogleEngineID, "VERIMEET_GOOGLE_SEARCH_ENGINE_ID")

	setString(&cfg.Notion.APIKey, "VERIMEET_NOTION_API_KEY")
	setString(&cfg.Notion.DatabaseID, "VERIMEET_NOTION_DATABASE_ID")

	setString(&cfg.Calendar.Token, "VERIMEET_GOOGLE_CALENDAR_TOKEN")
	setString(&cfg.Calendar.CalendarID, "VERIMEET_GOOGLE_CALENDAR_ID")

	setString(&cfg.Gmail.Token, "VERIMEET_GMAIL_TOKEN")
	setString(&cfg.Gmail.Sender, "VERIMEET_GMAIL_SENDER")

	if v := os.Getenv("VERIMEET_SUMMARY_RECIPIENTS"); v != "" {
		parts := strings.Split(v, ",")
		recipients := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				recipients = append(recipients, p)
			}
		}
		cfg.Recipients = recipients
	}

	if v := os.Getenv("VERIMEET_REDIS_ENABLED"); v == "true" || v == "1" {
		cfg.Redis.Enabled = true
	}
	setString(&cfg.Redis.Addr, "VERIMEET_REDIS_ADDR")
	setString(&cfg.Redis.Password, "VERIMEET_REDIS_PASSWORD")
	if v := os.Getenv("VERIMEET_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}

	// Mirror the upstream variable names as a convenience.
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
}

// fillFromKeyring resolves secrets still empty after file and env loading
// from the system keyring. Missing entries are left empty; Validate
// decides which ones matter.
func fillFromKeyring(cfg *AppConfig) {
	store := credentials.NewStore()
	fill := func(target *string, name string) {
		if *target != "" {
			return
		}
		if v, err := store.Get(name); err == nil {
			*target = v
		}
	}

	fill(&cfg.LLM.APIKey, credentials.KeyOpenAI)
	fill(&cfg.Meetstream.APIKey, credentials.KeyMeetstream)
	fill(&cfg.Search.SerperAPIKey, credentials.KeySerper)
	fill(&cfg.Search.TavilyAPIKey, credentials.KeyTavily)
	fill(&cfg.Search.GoogleAPIKey, credentials.KeyGoogleSearch)
	fill(&cfg.Notion.APIKey, credentials.KeyNotion)
	fill(&cfg.Calendar.Token, credentials.KeyGoogleCalendar)
	fill(&cfg.Gmail.Token, credentials.KeyGmail)
}

// Propagate to the Meetstream client which derives the webhook callback.
func (c *AppConfig) Finalize() {
	c.Meetstream.PublicURL = c.Server.PublicURL
}

// Validate checks the settings required to run the server. Optional
// integrations (search, calendar, gmail, redis) are allowed to be absent.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if c.Meetstream.APIKey == "" {
		missing = append(missing, "meetstream.api_key")
	}
	if c.Server.PublicURL == "" {
		missing = append(missing, "server.public_url")
	}
	if c.Notion.APIKey != "" && c.Notion.DatabaseID == "" {
		missing = append(missing, "notion.database_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s",
			vmerrors.ErrValidation, strings.Join(missing, ", "))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port %d", vmerrors.ErrValidation, c.Server.Port)
	}
	return nil
}

// Save writes the configuration to the config file, creating the
// directory if needed.
func (c *AppConfig) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
