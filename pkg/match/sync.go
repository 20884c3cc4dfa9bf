package match

import (
	"context"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/simserve/pkg/index"
	"github.com/bastiangx/simserve/pkg/measure"
	"golang.org/x/sync/errgroup"
)

// SyncMatcher guards a Matcher with a read/write lock.
// Inserts are exclusive; queries share the read lock and run concurrently.
type SyncMatcher struct {
	m  *Matcher
	mu sync.RWMutex
}

// NewSync wraps m. The caller must stop using m directly.
func NewSync(m *Matcher) *SyncMatcher {
	return &SyncMatcher{m: m}
}

func (s *SyncMatcher) Add(str string) index.SID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Add(str)
}

func (s *SyncMatcher) AddAll(strings []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.AddAll(strings)
}

func (s *SyncMatcher) Search(query string, alpha float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Search(query, alpha)
}

func (s *SyncMatcher) SearchOne(query string, alpha float64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.SearchOne(query, alpha)
}

func (s *SyncMatcher) RetrieveOne(query string, ms measure.Measure, alpha float64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.RetrieveOne(query, ms, alpha)
}

func (s *SyncMatcher) Retrieve(query string, ms measure.Measure, alpha float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Retrieve(query, ms, alpha)
}

func (s *SyncMatcher) RetrieveIDs(query string, ms measure.Measure, alpha float64) (*roaring.Bitmap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.RetrieveIDs(query, ms, alpha)
}

func (s *SyncMatcher) Contains(str string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Contains(str)
}

func (s *SyncMatcher) Prefix(prefix string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Prefix(prefix, limit)
}

func (s *SyncMatcher) Stats() index.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Index().Stats()
}

// NgramSize is the n-gram length of the underlying index.
func (s *SyncMatcher) NgramSize() int {
	return s.m.Index().Extractor().Size()
}

// SearchBatch runs Search for every query with at most workers queries in
// flight and returns the results in query order. workers <= 0 uses GOMAXPROCS.
//
// Cancelling ctx stops queries that have not started yet; a running query
// always completes.
func (s *SyncMatcher) SearchBatch(ctx context.Context, queries []string, alpha float64, workers int) ([][]string, error) {
	return s.RetrieveBatch(ctx, queries, nil, alpha, workers)
}

// RetrieveBatch is SearchBatch under ms. A nil ms selects the default measure.
func (s *SyncMatcher) RetrieveBatch(ctx context.Context, queries []string, ms measure.Measure, alpha float64, workers int) ([][]string, error) {
	if err := checkThreshold(alpha); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]string, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Retrieve(q, ms, alpha)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

var (
	_ StringMatcher = (*Matcher)(nil)
	_ StringMatcher = (*SyncMatcher)(nil)
)
