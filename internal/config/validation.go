package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for configuration validation. Callers can match
// with errors.Is() and wrap with fmt.Errorf("%w: ...").
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopP indicates top_p is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidOllamaHost indicates the Ollama host URL is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidHistoryTurns indicates the memory window is out of range.
	ErrInvalidHistoryTurns = errors.New("invalid max history turns")

	// ErrInvalidInterpreter indicates the interpreter binary is unset.
	ErrInvalidInterpreter = errors.New("invalid interpreter")

	// ErrInvalidAgentBaseURL indicates the agent base URL is invalid.
	ErrInvalidAgentBaseURL = errors.New("invalid agent base URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the SSL mode is not recognized.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for the fields every mode uses.
// Fail-fast: called by Load() before the config reaches any component.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("%w: %v (must be in [0, 1])", ErrInvalidTopP, c.TopP)
	}
	if err := validateHTTPURL(c.OllamaHost); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOllamaHost, err)
	}
	if c.MaxHistoryTurns < MinHistoryTurns || c.MaxHistoryTurns > MaxHistoryTurns {
		return fmt.Errorf("%w: %d (must be in [%d, %d])",
			ErrInvalidHistoryTurns, c.MaxHistoryTurns, MinHistoryTurns, MaxHistoryTurns)
	}
	if strings.TrimSpace(c.Interpreter) == "" {
		return fmt.Errorf("%w: interpreter binary must not be empty", ErrInvalidInterpreter)
	}
	if err := validateHTTPURL(c.AgentBaseURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAgentBaseURL, err)
	}

	return nil
}

// ValidateServe checks the additional settings serve mode requires.
// The document store is optional (empty host disables retrieval), but
// when configured it must be complete.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.PostgresHost == "" {
		return nil // retrieval disabled
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// validateHTTPURL checks that s parses as an absolute http(s) URL.
func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
