// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config controls the construction of the orchestrator and the stores it
// wires together.
type Config struct {
	SQLitePath string
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		SQLitePath: filepath.Join("data", "quizmatch.db"),
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("QUIZ_CATALOG_PATH")); value != "" {
		cfg.SQLitePath = value
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		cfg.SQLitePath = defaults.SQLitePath
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("sqlite path required")
	}
	return nil
}
