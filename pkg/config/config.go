/*
Package config manages TOML config for simserve.
*/
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bastiangx/simserve/internal/utils"
	"github.com/bastiangx/simserve/pkg/measure"
	"github.com/bastiangx/simserve/pkg/ngram"
	"github.com/charmbracelet/log"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the entire config structure
type Config struct {
	Index  IndexConfig  `toml:"index"`
	Search SearchConfig `toml:"search"`
	Dict   DictConfig   `toml:"dict"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// IndexConfig fixes how features are extracted. Changing it requires a rebuild.
type IndexConfig struct {
	NgramSize int    `toml:"ngram_size"`
	Lowercase bool   `toml:"lowercase"`
	Normalize string `toml:"normalize"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	Measure      string  `toml:"measure"`
	Threshold    float64 `toml:"threshold"`
	BatchWorkers int     `toml:"batch_workers"`
}

// DictConfig holds dictionary loading options.
type DictConfig struct {
	MaxWords       int  `toml:"max_words"`
	SkipDuplicates bool `toml:"skip_duplicates"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxQueryLen int `toml:"max_query_len"`
	PrefixLimit int `toml:"prefix_limit"`
}

// LogConfig sets the global log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			NgramSize: ngram.DefaultSize,
			Lowercase: false,
			Normalize: "",
		},
		Search: SearchConfig{
			Measure:      "cosine",
			Threshold:    0.7,
			BatchWorkers: 4,
		},
		Dict: DictConfig{
			MaxWords:       0,
			SkipDuplicates: false,
		},
		Server: ServerConfig{
			MaxQueryLen: 256,
			PrefixLimit: 64,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Keys missing from the file keep their
// defaults; a file that fails to decode is recovered section by section.
// A config that fails Validate is replaced by the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config, err = tryPartialParse(configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		log.Warnf("Config %s rejected: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value and defaults the rest
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		if val, ok := utils.ExtractString(section, "level"); ok {
			config.Log.Level = val
		}
	}
	return config, nil
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractInt64(data, "ngram_size"); ok {
		index.NgramSize = val
	}
	if val, ok := utils.ExtractBool(data, "lowercase"); ok {
		index.Lowercase = val
	}
	if val, ok := utils.ExtractString(data, "normalize"); ok {
		index.Normalize = val
	}
}

func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractString(data, "measure"); ok {
		search.Measure = val
	}
	if val, ok := utils.ExtractFloat(data, "threshold"); ok {
		search.Threshold = val
	}
	if val, ok := utils.ExtractInt64(data, "batch_workers"); ok {
		search.BatchWorkers = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractInt64(data, "max_words"); ok {
		dict.MaxWords = val
	}
	if val, ok := utils.ExtractBool(data, "skip_duplicates"); ok {
		dict.SkipDuplicates = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_query_len"); ok {
		server.MaxQueryLen = val
	}
	if val, ok := utils.ExtractInt64(data, "prefix_limit"); ok {
		server.PrefixLimit = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Validate reports the first out-of-range value.
func (c *Config) Validate() error {
	if c.Index.NgramSize < 1 {
		return fmt.Errorf("%w: index.ngram_size must be at least 1, got %d", ErrInvalidConfig, c.Index.NgramSize)
	}
	switch ngram.Normalization(strings.ToLower(c.Index.Normalize)) {
	case ngram.NormalizeNone, ngram.NormalizeNFC, ngram.NormalizeNFKC:
	default:
		return fmt.Errorf("%w: index.normalize %q is not one of \"\", nfc, nfkc", ErrInvalidConfig, c.Index.Normalize)
	}
	if _, err := measure.Lookup(c.Search.Measure); err != nil {
		return fmt.Errorf("%w: search.measure: %w", ErrInvalidConfig, err)
	}
	// written so that NaN fails too
	if !(c.Search.Threshold >= 0 && c.Search.Threshold <= 1) {
		return fmt.Errorf("%w: search.threshold must be in [0,1], got %v", ErrInvalidConfig, c.Search.Threshold)
	}
	if c.Search.BatchWorkers < 0 {
		return fmt.Errorf("%w: search.batch_workers must not be negative, got %d", ErrInvalidConfig, c.Search.BatchWorkers)
	}
	if c.Dict.MaxWords < 0 {
		return fmt.Errorf("%w: dict.max_words must not be negative, got %d", ErrInvalidConfig, c.Dict.MaxWords)
	}
	if c.Server.MaxQueryLen < 1 {
		return fmt.Errorf("%w: server.max_query_len must be at least 1, got %d", ErrInvalidConfig, c.Server.MaxQueryLen)
	}
	if c.Server.PrefixLimit < 1 {
		return fmt.Errorf("%w: server.prefix_limit must be at least 1, got %d", ErrInvalidConfig, c.Server.PrefixLimit)
	}
	return nil
}

// Extractor builds the n-gram extractor described by the index section.
func (c *Config) Extractor() (*ngram.Extractor, error) {
	var opts []ngram.Option
	if c.Index.Lowercase {
		opts = append(opts, ngram.WithLowercase())
	}
	if c.Index.Normalize != "" {
		opts = append(opts, ngram.WithNormalization(ngram.Normalization(strings.ToLower(c.Index.Normalize))))
	}
	return ngram.New(c.Index.NgramSize, opts...)
}

// Measure resolves the configured similarity measure.
func (c *Config) Measure() (measure.Measure, error) {
	return measure.Lookup(c.Search.Measure)
}
