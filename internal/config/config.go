// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CHATBOX_* and DATABASE_URL)
//  2. Config file (~/.chatinabox/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - LLM: Ollama host, chat model, embedder model, sampling options
//   - Memory: conversation window size
//   - Agents: interpreter binary, agent module directory, advertised base URL
//   - Storage: PostgreSQL connection for the document store
//   - Serve: CORS origins, proxy trust, rate limit burst
//
// Security: the PostgreSQL password is masked in MarshalJSON so a
// logged config never leaks credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Defaults and bounds for the conversation window.
const (
	// DefaultMaxHistoryTurns is the default sliding-window size for
	// conversation memory.
	DefaultMaxHistoryTurns = 10

	// MinHistoryTurns is the smallest usable window.
	MinHistoryTurns = 1

	// MaxHistoryTurns is the absolute maximum to prevent unbounded growth.
	MaxHistoryTurns = 1000
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// LLM configuration (Ollama-compatible endpoint)
	OllamaHost    string  `mapstructure:"ollama_host" json:"ollama_host"`
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	TopP          float32 `mapstructure:"top_p" json:"top_p"`

	// Outbound model call pacing; 0 disables
	LLMRatePerSecond float64 `mapstructure:"llm_rate_per_second" json:"llm_rate_per_second"`
	LLMRateBurst     int     `mapstructure:"llm_rate_burst" json:"llm_rate_burst"`

	// Conversation memory
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Agent execution
	Interpreter  string `mapstructure:"interpreter" json:"interpreter"`
	AgentsDir    string `mapstructure:"agents_dir" json:"agents_dir"`
	AgentBaseURL string `mapstructure:"agent_base_url" json:"agent_base_url"`

	// Document store (PostgreSQL + pgvector); empty host disables retrieval
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
	RetrievalTopK    int    `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`

	// Serve-mode security
	CORSOrigins   []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy    bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RatePerSecond float64  `mapstructure:"rate_per_second" json:"rate_per_second"`
	RateBurst     int      `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Configuration directory: ~/.chatinabox/
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".chatinabox"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("CHATBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* keys.
	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// LLM defaults (Ollama local install)
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("model_name", "llama3.2")
	v.SetDefault("embedder_model", "nomic-embed-text")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("top_p", 0.9)
	v.SetDefault("llm_rate_per_second", 0)
	v.SetDefault("llm_rate_burst", 1)

	v.SetDefault("max_history_turns", DefaultMaxHistoryTurns)

	// Agent execution defaults
	v.SetDefault("interpreter", "python3")
	v.SetDefault("agents_dir", "agents")
	v.SetDefault("agent_base_url", "http://localhost:3000")

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "chatbox")
	v.SetDefault("postgres_db_name", "chatbox")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("retrieval_top_k", 4)

	// Serve defaults
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_per_second", 10)
	v.SetDefault("rate_burst", 60)
}

// parseDatabaseURL applies a postgres:// connection URL on top of the
// individual postgres_* settings. An empty URL is a no-op.
func (c *Config) parseDatabaseURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidPostgresHost, u.Scheme)
	}

	if h := u.Hostname(); h != "" {
		c.PostgresHost = h
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("%w: port %q", ErrInvalidPostgresPort, p)
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			c.PostgresUser = name
		}
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// DatabaseURL renders the PostgreSQL settings as a connection URL
// suitable for pgxpool and golang-migrate.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	if c.PostgresUser != "" {
		if c.PostgresPassword != "" {
			u.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
		} else {
			u.User = url.User(c.PostgresUser)
		}
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// MarshalJSON masks sensitive fields so a config dump is loggable.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // drop methods to avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "****"
	}
	return json.Marshal(masked)
}
