package server

import (
	"fmt"
	"io"
	"os"

	"github.com/bastiangx/simserve/internal/logger"
	"github.com/bastiangx/simserve/pkg/config"
	"github.com/bastiangx/simserve/pkg/dictionary"
	"github.com/bastiangx/simserve/pkg/index"
	"github.com/bastiangx/simserve/pkg/match"
)

// NewMatcher builds a SyncMatcher as cfg describes it and fills it from
// dictPath, a dictionary file or a directory of dict_NNNN.bin chunks.
// An empty dictPath starts with an empty dictionary; a nil cfg uses the defaults.
//
// The log level from cfg is applied first so that every component logger
// starts at it.
func NewMatcher(cfg *config.Config, dictPath string) (*match.SyncMatcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	extractor, err := cfg.Extractor()
	if err != nil {
		return nil, err
	}
	ms, err := cfg.Measure()
	if err != nil {
		return nil, err
	}
	matcher := match.NewSync(match.New(index.New(extractor), ms))
	if dictPath == "" {
		return matcher, nil
	}

	info, err := os.Stat(dictPath)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", dictPath, err)
	}
	loader := dictionary.NewLoader(cfg.Dict.MaxWords, cfg.Dict.SkipDuplicates)
	var stats dictionary.LoadStats
	if info.IsDir() {
		stats, err = loader.LoadDir(matcher, dictPath)
	} else {
		stats, err = loader.LoadFile(matcher, dictPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	logger.New("server").Infof("Loaded %d words from %s (%d duplicates skipped, truncated=%v)",
		stats.Added, dictPath, stats.Duplicates, stats.Truncated)
	return matcher, nil
}

// NewFromConfig is NewMatcher followed by NewServer.
func NewFromConfig(cfg *config.Config, dictPath string, r io.Reader, w io.Writer) (*Server, error) {
	matcher, err := NewMatcher(cfg, dictPath)
	if err != nil {
		return nil, err
	}
	return NewServer(matcher, cfg, r, w), nil
}
