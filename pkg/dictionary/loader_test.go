package dictionary

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bastiangx/simserve/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// recorder is a Target that keeps insertions in order.
type recorder struct {
	words []string
}

func (r *recorder) Add(s string) index.SID {
	r.words = append(r.words, s)
	return index.SID(len(r.words) - 1)
}

func (r *recorder) Contains(s string) bool {
	for _, w := range r.words {
		if w == s {
			return true
		}
	}
	return false
}

func writeChunkFile(t *testing.T, dir string, id int, words ...string) string {
	t.Helper()
	entries := make([]Entry, len(words))
	for i, w := range words {
		entries[i] = Entry{Word: w, Rank: uint16(i + 1)}
	}
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, entries))
	path := filepath.Join(dir, ChunkFilename(id))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadText(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
		desc     string
	}{
		{"alice\nbob\n", []string{"alice", "bob"}, "Plain lines"},
		{"alice\r\nbob\r\n", []string{"alice", "bob"}, "CRLF endings"},
		{"alice  \n\n\t\nbob\t\n", []string{"alice", "bob"}, "Trailing whitespace and blank lines"},
		{"  indented\n", []string{"  indented"}, "Leading whitespace kept"},
		{"new york\n", []string{"new york"}, "Inner spaces kept"},
		{"", nil, "Empty input"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ReadText(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestChunkRoundTrip(t *testing.T) {
	entries := []Entry{{"the", 1}, {"café", 2}, {"", 3}, {"totucuong", 65535}}

	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, entries))
	// header + 4 * (len + rank) + word bytes
	assert.Equal(t, 4+4*4+len("the")+len("café")+len("totucuong"), buf.Len())

	got, err := ReadChunk(&buf)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadChunkErrors(t *testing.T) {
	_, err := ReadChunk(bytes.NewReader([]byte{1, 0}))
	assert.Error(t, err, "short header")

	_, err = ReadChunk(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	assert.Error(t, err, "negative count")

	// one entry announced, word cut short
	_, err = ReadChunk(bytes.NewReader([]byte{1, 0, 0, 0, 5, 0, 'a', 'b'}))
	assert.Error(t, err)

	// count larger than the body stops at the end of the data
	got, err := ReadChunk(bytes.NewReader([]byte{2, 0, 0, 0, 1, 0, 'a', 7, 0}))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"a", 7}}, got)
}

func TestWriteChunkRejectsLongWord(t *testing.T) {
	err := WriteChunk(&bytes.Buffer{}, []Entry{{Word: strings.Repeat("x", 70000)}})
	assert.Error(t, err)
}

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()
	chunk := writeChunkFile(t, dir, 1, "a")
	text := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(text, []byte("a\n"), 0o644))
	bare := filepath.Join(dir, "words")
	require.NoError(t, os.WriteFile(bare, []byte("a\n"), 0o644))
	bad := filepath.Join(dir, "dict.bin")
	require.NoError(t, os.WriteFile(bad, []byte{1}, 0o644))
	other := filepath.Join(dir, "words.json")
	require.NoError(t, os.WriteFile(other, []byte("[]"), 0o644))

	testCases := []struct {
		path     string
		expected FileFormat
		wantErr  bool
	}{
		{chunk, FormatChunk, false},
		{text, FormatText, false},
		{bare, FormatText, false},
		{bad, FormatUnknown, true},
		{other, FormatUnknown, true},
		{filepath.Join(dir, "missing.txt"), FormatUnknown, true},
	}

	for _, tc := range testCases {
		t.Run(filepath.Base(tc.path), func(t *testing.T) {
			got, err := DetectFileFormat(tc.path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestGetAvailableChunks(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 10, "x", "y")
	writeChunkFile(t, dir, 2, "a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dict_abc.bin"), []byte{0, 0, 0, 0}, 0o644))

	chunks, err := GetAvailableChunks(dir)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].ID)
	assert.Equal(t, 1, chunks[0].WordCount)
	assert.Equal(t, 10, chunks[1].ID)
	assert.Equal(t, 2, chunks[1].WordCount)
}

func TestLoaderLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 2, "hanh", "to")
	writeChunkFile(t, dir, 1, "totucuong", "alice")

	r := &recorder{}
	st, err := NewLoader(0, false).LoadDir(r, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"totucuong", "alice", "hanh", "to"}, r.words)
	assert.Equal(t, LoadStats{Read: 4, Added: 4}, st)

	_, err = NewLoader(0, false).LoadDir(r, t.TempDir())
	assert.Error(t, err)
}

func TestLoaderMaxWords(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 1, "a", "b")
	writeChunkFile(t, dir, 2, "c", "d")

	r := &recorder{}
	st, err := NewLoader(3, false).LoadDir(r, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, r.words)
	assert.True(t, st.Truncated)
	assert.Equal(t, 3, st.Added)
}

func TestLoaderDuplicates(t *testing.T) {
	words := []string{"alice", "bob", "alice", "carol", "bob"}

	r := &recorder{}
	st := NewLoader(0, true).Into(r, words)
	assert.Equal(t, []string{"alice", "bob", "carol"}, r.words)
	assert.Equal(t, LoadStats{Read: 5, Added: 3, Duplicates: 2}, st)

	r = &recorder{}
	NewLoader(0, false).Into(r, words)
	assert.Equal(t, words, r.words)
}

func TestLoaderLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice\n\nbob  \n"), 0o644))

	r := &recorder{}
	st, err := NewLoader(0, false).LoadFile(r, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, r.words)
	assert.Equal(t, 2, st.Added)

	_, err = NewLoader(0, false).LoadFile(r, filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
