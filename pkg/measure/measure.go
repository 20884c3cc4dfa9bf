// Package measure defines similarity measures over n-gram feature sets and the
// size and overlap bounds the matcher derives from them.
//
// A Measure must keep its bounds consistent with its score: for every pair of
// sets with Score >= alpha, the candidate size has to fall inside
// [MinSize, MaxSize] and the overlap has to reach MinOverlap. Looser bounds only
// cost speed, tighter ones make the matcher miss true matches.
package measure

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMeasure is returned by Lookup for unregistered names.
var ErrUnknownMeasure = errors.New("unknown similarity measure")

// tolerance absorbs float rounding in the bound formulas so that it can only
// widen the admissible ranges.
const tolerance = 1e-9

// Measure is a set similarity with the filtering bounds it implies.
// Sizes are feature set cardinalities and alpha is a threshold in [0,1].
type Measure interface {
	// Name identifies the measure in config and IPC requests.
	Name() string

	// MinSize is the smallest candidate size that can reach alpha.
	MinSize(querySize int, alpha float64) int

	// MaxSize is the largest candidate size that can reach alpha.
	MaxSize(querySize int, alpha float64) int

	// MinOverlap is the number of shared features a candidate of
	// candidateSize needs to reach alpha.
	MinOverlap(querySize, candidateSize int, alpha float64) int

	// Score computes the similarity of two feature sets directly.
	Score(a, b []string) float64
}

var registry = map[string]Measure{
	"cosine": Cosine{},
}

// Lookup returns the measure registered under name. Matching is case-insensitive.
func Lookup(name string) (Measure, error) {
	m, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return m, nil
}

// Names lists the registered measure names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Overlap counts the features shared by a and b.
func Overlap(a, b []string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]struct{}, len(a))
	for _, f := range a {
		set[f] = struct{}{}
	}
	n := 0
	for _, f := range b {
		if _, ok := set[f]; ok {
			n++
			delete(set, f)
		}
	}
	return n
}
