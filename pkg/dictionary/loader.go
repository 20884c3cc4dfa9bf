// Package dictionary reads word lists from disk and bulk-loads them into a matcher.
//
// Two sources are supported: plain text with one entry per line, and the
// chunked binary format (dict_0001.bin, dict_0002.bin, ...) where each file is
//
//	int32   entry count (little endian)
//	repeated:
//	  uint16  word length in bytes
//	  []byte  word
//	  uint16  rank
//
// Entries are inserted in file order, chunks in id order, so sids follow the
// on-disk order.
package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bastiangx/simserve/internal/logger"
	"github.com/bastiangx/simserve/pkg/index"
	"github.com/charmbracelet/log"
)

// Target receives loaded words. Both match.Matcher and match.SyncMatcher satisfy it.
type Target interface {
	Add(s string) index.SID
	Contains(s string) bool
}

// Entry is one record of a binary chunk.
type Entry struct {
	Word string
	Rank uint16
}

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ID        int
	Filename  string
	WordCount int
}

// LoadStats reports what one load call did.
type LoadStats struct {
	Read       int  // entries read from the source
	Added      int  // entries inserted
	Duplicates int  // entries skipped as already present
	Truncated  bool // max words reached before the source was exhausted
}

// Loader inserts dictionary entries into a Target, honoring a word limit and
// optional duplicate skipping. The limit counts insertions across calls.
type Loader struct {
	maxWords       int
	skipDuplicates bool
	added          int
	log            *log.Logger
}

// NewLoader creates a loader. maxWords <= 0 loads everything.
func NewLoader(maxWords int, skipDuplicates bool) *Loader {
	return &Loader{
		maxWords:       maxWords,
		skipDuplicates: skipDuplicates,
		log:            logger.New("dict"),
	}
}

// Into inserts words in order.
func (l *Loader) Into(t Target, words []string) LoadStats {
	st := LoadStats{}
	for _, w := range words {
		if l.maxWords > 0 && l.added >= l.maxWords {
			st.Truncated = true
			break
		}
		st.Read++
		if l.skipDuplicates && t.Contains(w) {
			st.Duplicates++
			continue
		}
		t.Add(w)
		st.Added++
		l.added++
	}
	return st
}

// LoadFile reads a text or chunk file and inserts its entries.
func (l *Loader) LoadFile(t Target, path string) (LoadStats, error) {
	words, err := ReadFile(path)
	if err != nil {
		return LoadStats{}, err
	}
	st := l.Into(t, words)
	l.log.Debugf("Loaded %s: read=%d added=%d duplicates=%d", path, st.Read, st.Added, st.Duplicates)
	return st, nil
}

// LoadDir loads every dict_NNNN.bin chunk in dir by ascending id.
func (l *Loader) LoadDir(t Target, dir string) (LoadStats, error) {
	chunks, err := GetAvailableChunks(dir)
	if err != nil {
		return LoadStats{}, err
	}
	if len(chunks) == 0 {
		return LoadStats{}, fmt.Errorf("no chunk files found in %s", dir)
	}
	l.log.Debugf("Found %d chunk files", len(chunks))

	total := LoadStats{}
	for _, chunk := range chunks {
		st, err := l.LoadFile(t, chunk.Filename)
		if err != nil {
			return total, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		total.Read += st.Read
		total.Added += st.Added
		total.Duplicates += st.Duplicates
		if st.Truncated {
			total.Truncated = true
			break
		}
	}
	return total, nil
}

// ReadFile returns the words of a dictionary file in file order.
func ReadFile(path string) ([]string, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	switch format {
	case FormatChunk:
		entries, err := ReadChunk(bufio.NewReader(file))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %s: %w", path, err)
		}
		words := make([]string, len(entries))
		for i, e := range entries {
			words[i] = e.Word
		}
		return words, nil
	default:
		return ReadText(file)
	}
}

// ReadText reads one entry per line. Trailing whitespace and CR are trimmed and
// blank lines skipped; leading whitespace is part of the entry.
func ReadText(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text dictionary: %w", err)
	}
	return words, nil
}

// ReadChunk decodes one binary chunk.
func ReadChunk(r io.Reader) ([]Entry, error) {
	var totalEntries int32
	if err := binary.Read(r, binary.LittleEndian, &totalEntries); err != nil {
		return nil, fmt.Errorf("failed to read chunk header: %w", err)
	}
	if totalEntries < 0 || totalEntries > maxChunkEntries {
		return nil, fmt.Errorf("invalid chunk entry count %d", totalEntries)
	}

	entries := make([]Entry, 0, totalEntries)
	for len(entries) < int(totalEntries) {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read word length: %w", err)
		}

		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(r, wordBytes); err != nil {
			return nil, fmt.Errorf("failed to read word: %w", err)
		}

		var rank uint16
		if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
			return nil, fmt.Errorf("failed to read rank: %w", err)
		}
		entries = append(entries, Entry{Word: string(wordBytes), Rank: rank})
	}
	return entries, nil
}

// WriteChunk encodes entries in the chunk format.
func WriteChunk(w io.Writer, entries []Entry) error {
	if len(entries) > maxChunkEntries {
		return fmt.Errorf("chunk holds at most %d entries, got %d", maxChunkEntries, len(entries))
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Word) > math.MaxUint16 {
			return fmt.Errorf("word of %d bytes exceeds chunk limit", len(e.Word))
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(e.Word))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.Word); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, e.Rank); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ChunkFilename returns the canonical file name of chunk id.
func ChunkFilename(id int) string {
	return fmt.Sprintf("dict_%04d.bin", id)
}

// GetAvailableChunks scans dir for chunk files, sorted by id
func GetAvailableChunks(dir string) ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		wordCount, err := getChunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
			wordCount = 0
		}
		chunks = append(chunks, ChunkInfo{
			ID:        chunkID,
			Filename:  file,
			WordCount: wordCount,
		})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

// getChunkWordCount reads the word count from a chunk file's header
func getChunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}
