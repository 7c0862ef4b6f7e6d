package subscription

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/groupcast/groupcast-go/pkg/history"
)

// Default table limits.
const (
	DefaultMaxSubscriptions   = 1024
	DefaultMaxGroups          = 256
	DefaultMaxPredicateLength = 1024
)

// Config holds subscription table configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of entries in the table.
	MaxSubscriptions int `yaml:"max_subscriptions"`

	// MaxGroups is the maximum number of distinct groups.
	MaxGroups int `yaml:"max_groups"`

	// DefaultHistoryTimeout is used for windows created without a timeout.
	DefaultHistoryTimeout time.Duration `yaml:"default_history_timeout"`

	// MaxPredicateLength bounds predicate expressions in bytes.
	MaxPredicateLength int `yaml:"max_predicate_length"`

	// ConsolidateOnSubscribe folds each new subscription into the group
	// aggregate with Includes and Merge.
	ConsolidateOnSubscribe bool `yaml:"consolidate_on_subscribe"`

	// TraceMatches emits a Match event for every dispatched message.
	TraceMatches bool `yaml:"trace_matches"`

	// EventLogPath, when set, is where the CBOR event trace is written.
	EventLogPath string `yaml:"event_log_path"`
}

// DefaultConfig returns the default table configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:       DefaultMaxSubscriptions,
		MaxGroups:              DefaultMaxGroups,
		DefaultHistoryTimeout:  history.DefaultTimeout,
		MaxPredicateLength:     DefaultMaxPredicateLength,
		ConsolidateOnSubscribe: true,
	}
}

// normalize replaces zero or negative limits with defaults.
func (c Config) normalize() Config {
	if c.MaxSubscriptions <= 0 {
		c.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if c.MaxGroups <= 0 {
		c.MaxGroups = DefaultMaxGroups
	}
	if c.DefaultHistoryTimeout <= 0 {
		c.DefaultHistoryTimeout = history.DefaultTimeout
	}
	if c.MaxPredicateLength <= 0 || c.MaxPredicateLength > 0xFFFF {
		c.MaxPredicateLength = DefaultMaxPredicateLength
	}
	return c
}

// ParseConfig parses YAML on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.normalize(), nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}
