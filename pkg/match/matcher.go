package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/simserve/internal/logger"
	"github.com/bastiangx/simserve/pkg/index"
	"github.com/bastiangx/simserve/pkg/measure"
	"github.com/charmbracelet/log"
)

// ErrInvalidThreshold is returned for thresholds outside [0,1].
var ErrInvalidThreshold = errors.New("similarity threshold must be in [0,1]")

var errStopWalk = errors.New("stop walk")

// Matcher answers approximate queries against one index.
// It is not safe for concurrent use, wrap it in a SyncMatcher for that.
type Matcher struct {
	idx     *index.Index
	measure measure.Measure
	log     *log.Logger
}

// New creates a matcher over idx using m as its default measure.
// A nil idx starts an empty trigram index, a nil m selects cosine.
func New(idx *index.Index, m measure.Measure) *Matcher {
	if idx == nil {
		idx = index.New(nil)
	}
	if m == nil {
		m = measure.Cosine{}
	}
	return &Matcher{
		idx:     idx,
		measure: m,
		log:     logger.New("match"),
	}
}

// Index exposes the underlying index for read-only inspection.
func (m *Matcher) Index() *index.Index {
	return m.idx
}

// Measure returns the default measure used by Search.
func (m *Matcher) Measure() measure.Measure {
	return m.measure
}

// Add inserts one string and returns its sid.
func (m *Matcher) Add(s string) index.SID {
	return m.idx.Insert(s)
}

// AddAll inserts strings in order; sids follow the slice order.
func (m *Matcher) AddAll(strings []string) {
	for _, s := range strings {
		m.idx.Insert(s)
	}
	m.log.Debugf("Indexed %d strings, vocabulary now %d", len(strings), m.idx.Len())
}

// Search retrieves matches with the matcher's default measure.
func (m *Matcher) Search(query string, alpha float64) ([]string, error) {
	return m.Retrieve(query, m.measure, alpha)
}

// SearchOne returns the match with the lowest sid.
func (m *Matcher) SearchOne(query string, alpha float64) (string, bool, error) {
	return m.RetrieveOne(query, m.measure, alpha)
}

// RetrieveOne is SearchOne under ms. A nil ms selects the default measure.
func (m *Matcher) RetrieveOne(query string, ms measure.Measure, alpha float64) (string, bool, error) {
	ids, err := m.RetrieveIDs(query, ms, alpha)
	if err != nil {
		return "", false, err
	}
	if ids.IsEmpty() {
		return "", false, nil
	}
	s, ok := m.idx.Get(index.SID(ids.Minimum()))
	return s, ok, nil
}

// Retrieve returns every stored string whose similarity to query under ms
// reaches alpha. A nil ms selects the default measure.
func (m *Matcher) Retrieve(query string, ms measure.Measure, alpha float64) ([]string, error) {
	ids, err := m.RetrieveIDs(query, ms, alpha)
	if err != nil {
		return nil, err
	}
	return m.resolve(ids), nil
}

// RetrieveIDs is Retrieve without the vocabulary lookup.
func (m *Matcher) RetrieveIDs(query string, ms measure.Measure, alpha float64) (*roaring.Bitmap, error) {
	if err := checkThreshold(alpha); err != nil {
		return nil, err
	}
	if ms == nil {
		ms = m.measure
	}

	results := roaring.New()
	if m.idx.Size() == 0 {
		return results, nil
	}

	features := m.idx.Extractor().Extract(query)
	querySize := len(features)
	minSize := max(ms.MinSize(querySize, alpha), 1)
	maxSize := min(ms.MaxSize(querySize, alpha), m.idx.Size())

	for size := minSize; size <= maxSize; size++ {
		minOverlap := max(ms.MinOverlap(querySize, size, alpha), 1)
		ids, found := OverlapJoin(m.idx.SortedPostings(features, size), minOverlap)
		if !found {
			continue
		}
		for _, sid := range ids {
			results.Add(uint32(sid))
		}
	}

	m.log.Debug("Retrieved", "query", query, "measure", ms.Name(), "alpha", alpha,
		"sizes", fmt.Sprintf("[%d,%d]", minSize, maxSize), "matches", results.GetCardinality())
	return results, nil
}

func (m *Matcher) resolve(ids *roaring.Bitmap) []string {
	out := make([]string, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		if s, ok := m.idx.Get(index.SID(it.Next())); ok {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether exactly s was inserted.
func (m *Matcher) Contains(s string) bool {
	return len(m.idx.Find(s)) > 0
}

// Prefix lists up to limit distinct stored strings starting with prefix.
// limit <= 0 lists all of them.
func (m *Matcher) Prefix(prefix string, limit int) []string {
	var out []string
	err := m.idx.WithPrefix(prefix, func(s string, _ []index.SID) error {
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		m.log.Errorf("Error walking vocabulary: %v", err)
	}
	return out
}

func checkThreshold(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, alpha)
	}
	return nil
}
