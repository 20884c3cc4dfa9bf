package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/simserve/internal/logger"
	"github.com/bastiangx/simserve/pkg/config"
	"github.com/bastiangx/simserve/pkg/dictionary"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "error"
	return cfg
}

func writeDict(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewFromConfigAppliesIndexAndDict(t *testing.T) {
	cfg := quietConfig()
	cfg.Index.NgramSize = 2
	cfg.Dict.MaxWords = 3
	dict := writeDict(t, "totucuong\nalice\nhanh\nto\n")

	input := encode(t,
		Request{ID: "s", Op: "stats"},
		Request{ID: "h1", Op: "has", Query: "hanh"},
		Request{ID: "h2", Op: "has", Query: "to"},
	)
	var out bytes.Buffer
	srv, err := NewFromConfig(cfg, dict, input, &out)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	replies := decodeAll(t, &out)
	require.Len(t, replies, 3)
	assert.Equal(t, 3, replies[0].Stats["strings"])
	// "totucuong" has 8 bigrams, it would have 7 trigrams
	assert.Equal(t, 8, replies[0].Stats["maxSize"])
	assert.True(t, replies[1].Found)
	assert.False(t, replies[2].Found, "max_words stops before the fourth entry")
}

func TestNewMatcherOptions(t *testing.T) {
	cfg := quietConfig()
	cfg.Index.Lowercase = true
	cfg.Dict.SkipDuplicates = true

	m, err := NewMatcher(cfg, writeDict(t, "Alice\nalice\nBob\nAlice\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, m.NgramSize())
	assert.Equal(t, 3, m.Stats().Strings)

	// features are lowercased, stored strings are not
	got, err := m.Search("ALICE", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "alice"}, got)
}

func TestNewMatcherChunkDir(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, dictionary.WriteChunk(&buf, []dictionary.Entry{{Word: "hanh", Rank: 1}, {Word: "to", Rank: 2}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, dictionary.ChunkFilename(1)), buf.Bytes(), 0o644))

	m, err := NewMatcher(quietConfig(), dir)
	require.NoError(t, err)
	assert.True(t, m.Contains("hanh"))
	assert.True(t, m.Contains("to"))
}

func TestNewMatcherAppliesLogLevel(t *testing.T) {
	defer logger.SetLevel(log.ErrorLevel)

	cfg := quietConfig()
	cfg.Log.Level = "debug"
	_, err := NewMatcher(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestNewMatcherErrors(t *testing.T) {
	cfg := quietConfig()
	cfg.Search.Threshold = 2
	_, err := NewMatcher(cfg, "")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewMatcher(quietConfig(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = NewFromConfig(quietConfig(), t.TempDir(), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err, "a directory without chunks")
}
