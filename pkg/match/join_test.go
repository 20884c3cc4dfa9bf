package match

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/bastiangx/simserve/pkg/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJoinIndex() *index.Index {
	idx := index.New(nil)
	idx.Insert("abcde") // abc bcd cde
	idx.Insert("abcdx") // abc bcd cdx
	idx.Insert("abyyy") // aby byy yyy
	idx.Insert("zbcde") // zbc bcd cde
	idx.Insert("qqqqq") // qqq qqq1 qqq2
	return idx
}

func TestOverlapJoin(t *testing.T) {
	idx := newJoinIndex()
	features := idx.Extractor().Extract("abcde")

	testCases := []struct {
		minOverlap int
		expected   []index.SID
		desc       string
	}{
		{3, []index.SID{0}, "All features shared"},
		{2, []index.SID{0, 1, 3}, "Two of three"},
		{1, []index.SID{0, 1, 3}, "Signature covers every list"},
		{0, []index.SID{0, 1, 3}, "Overlap below one is raised to one"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			ids, found := OverlapJoin(idx.SortedPostings(features, 3), tc.minOverlap)
			require.True(t, found)
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestOverlapJoinNoCandidates(t *testing.T) {
	idx := newJoinIndex()

	// size class never populated
	ids, found := OverlapJoin(idx.SortedPostings(idx.Extractor().Extract("abcde"), 7), 1)
	assert.False(t, found)
	assert.Nil(t, ids)

	// populated class, but no query feature occurs in it
	ids, found = OverlapJoin(idx.SortedPostings(idx.Extractor().Extract("mnopq"), 3), 1)
	assert.False(t, found)
	assert.Nil(t, ids)

	ids, found = OverlapJoin(nil, 1)
	assert.False(t, found)
	assert.Nil(t, ids)
}

func TestOverlapJoinEmptyButFound(t *testing.T) {
	idx := newJoinIndex()
	// only "mno" is unknown, the others are present but nothing shares 3
	features := []string{"abc", "yyy", "mno"}

	ids, found := OverlapJoin(idx.SortedPostings(features, 3), 3)
	assert.True(t, found)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	// more overlap than features can never be met
	ids, found = OverlapJoin(idx.SortedPostings(features, 3), 4)
	assert.True(t, found)
	assert.Empty(t, ids)
}

// naiveJoin counts every sid over every list.
func naiveJoin(postings []index.PostingList, minOverlap int) []index.SID {
	counts := map[index.SID]int{}
	for _, p := range postings {
		for _, sid := range p.IDs() {
			counts[sid]++
		}
	}
	out := []index.SID{}
	for sid, c := range counts {
		if c >= max(minOverlap, 1) {
			out = append(out, sid)
		}
	}
	slices.Sort(out)
	return out
}

func TestOverlapJoinMatchesNaiveCount(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	idx := index.New(nil)
	words := randomWords(r, 1500, "abcd", 3, 9)
	for _, w := range words {
		idx.Insert(w)
	}

	queries := randomWords(r, 60, "abcd", 0, 10)
	for _, q := range queries {
		features := idx.Extractor().Extract(q)
		for size := 1; size <= idx.Size(); size++ {
			postings := idx.SortedPostings(features, size)
			for minOverlap := 1; minOverlap <= len(features); minOverlap++ {
				ids, found := OverlapJoin(postings, minOverlap)
				if !found {
					assert.Empty(t, naiveJoin(postings, minOverlap))
					continue
				}
				require.Equal(t, naiveJoin(postings, minOverlap), ids,
					"query=%q size=%d minOverlap=%d", q, size, minOverlap)
			}
		}
	}
}

func randomWords(r *rand.Rand, n int, alphabet string, minLen, maxLen int) []string {
	letters := []rune(alphabet)
	words := make([]string, n)
	for i := range words {
		l := minLen + r.Intn(maxLen-minLen+1)
		w := make([]rune, l)
		for j := range w {
			w[j] = letters[r.Intn(len(letters))]
		}
		words[i] = string(w)
	}
	return words
}
