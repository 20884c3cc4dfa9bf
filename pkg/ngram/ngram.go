// Package ngram turns strings into the character n-gram feature sets used by the index.
package ngram

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultSize is the trigram length used when no size is configured.
const DefaultSize = 3

// Pad is the sentinel rune used to left-pad strings shorter than the n-gram size.
// It is the SOH control character and is not expected in dictionary input.
const Pad = '\x01'

// Normalization selects the Unicode form applied before extraction.
type Normalization string

const (
	NormalizeNone Normalization = ""
	NormalizeNFC  Normalization = "nfc"
	NormalizeNFKC Normalization = "nfkc"
)

// Extractor produces feature sets of a fixed n-gram size.
// The size is fixed for the lifetime of an index: an index built with one
// size must be rebuilt from scratch to be queried with another.
type Extractor struct {
	size      int
	lowercase bool
	form      Normalization
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLowercase folds input to lower case before extraction.
func WithLowercase() Option {
	return func(e *Extractor) { e.lowercase = true }
}

// WithNormalization applies a Unicode normalization form before extraction.
func WithNormalization(form Normalization) Option {
	return func(e *Extractor) { e.form = form }
}

// New creates an extractor for n-grams of the given size.
func New(size int, opts ...Option) (*Extractor, error) {
	if size < 1 {
		return nil, fmt.Errorf("ngram size must be at least 1, got %d", size)
	}
	e := &Extractor{size: size}
	for _, opt := range opts {
		opt(e)
	}
	switch e.form {
	case NormalizeNone, NormalizeNFC, NormalizeNFKC:
	default:
		return nil, fmt.Errorf("unknown normalization form %q", e.form)
	}
	return e, nil
}

// Default returns a trigram extractor with no normalization.
func Default() *Extractor {
	return &Extractor{size: DefaultSize}
}

// Size returns the n-gram length.
func (e *Extractor) Size() int {
	return e.size
}

// Extract returns the feature set of s in window order.
//
// Every window of Size() runes becomes one feature. When a gram value occurs
// more than once, its c-th repeat is emitted as the value followed by c, so
// "ababab" with bigrams yields [ab ba ab1 ba1 ab2]. The result is a true set
// whose length equals the number of windows.
func (e *Extractor) Extract(s string) []string {
	runes := []rune(e.prepare(s))
	if len(runes) < e.size {
		padded := make([]rune, e.size)
		offset := e.size - len(runes)
		for i := 0; i < offset; i++ {
			padded[i] = Pad
		}
		copy(padded[offset:], runes)
		runes = padded
	}

	windows := len(runes) - e.size + 1
	features := make([]string, 0, windows)
	seen := make(map[string]int, windows)
	for i := 0; i < windows; i++ {
		gram := string(runes[i : i+e.size])
		c := seen[gram]
		seen[gram] = c + 1
		if c == 0 {
			features = append(features, gram)
			continue
		}
		features = append(features, gram+strconv.Itoa(c))
	}
	return features
}

func (e *Extractor) prepare(s string) string {
	switch e.form {
	case NormalizeNFC:
		s = norm.NFC.String(s)
	case NormalizeNFKC:
		s = norm.NFKC.String(s)
	}
	if e.lowercase {
		s = strings.ToLower(s)
	}
	return s
}
