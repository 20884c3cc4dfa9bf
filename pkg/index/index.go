/*
Package index implements the in-memory n-gram index used for approximate dictionary matching.

The index holds two structures. The first is a slice of inverted lists, one per
size class, where the size of a string is the cardinality of its feature set:

	classes[0]   feature -> sids of strings with 1 feature
	classes[1]   feature -> sids of strings with 2 features
	...
	classes[n-1] feature -> sids of strings with n features

For example "vietnam" has the trigrams {vie iet etn tna nam}, so its sid is
appended to five lists of classes[4].

The second is the vocabulary, the slice of inserted strings indexed by sid.
A patricia trie over the vocabulary answers exact and prefix lookups.

Strings are appended in sid order, so every posting list stays strictly
ascending without sorting. There is no update or delete. An Index is not safe
for concurrent use; see match.SyncMatcher.
*/
package index

import (
	"errors"
	"fmt"

	"github.com/bastiangx/simserve/pkg/ngram"
	"github.com/tchap/go-patricia/v2/patricia"
)

// ErrUnsortedPostings reports a posting list that is not strictly ascending.
var ErrUnsortedPostings = errors.New("posting list not strictly ascending")

// invertedList maps a feature to the ascending sids containing it.
type invertedList map[string][]SID

// Index is the size-partitioned inverted index plus vocabulary.
type Index struct {
	extractor  *ngram.Extractor
	classes    []invertedList
	vocabulary []string
	trie       *patricia.Trie
	// the trie cannot key the empty string
	emptySIDs []SID
}

// New creates an empty index. A nil extractor falls back to ngram.Default.
func New(extractor *ngram.Extractor) *Index {
	if extractor == nil {
		extractor = ngram.Default()
	}
	return &Index{
		extractor:  extractor,
		classes:    make([]invertedList, 0, 64),
		vocabulary: make([]string, 0, 1024),
		trie:       patricia.NewTrie(),
	}
}

// Extractor returns the feature extractor the index was built with.
func (idx *Index) Extractor() *ngram.Extractor {
	return idx.extractor
}

// Insert adds s to the vocabulary and indexes its features.
func (idx *Index) Insert(s string) SID {
	sid := idx.addToVocabulary(s)
	idx.addToIndex(idx.extractor.Extract(s), sid)
	return sid
}

func (idx *Index) addToVocabulary(s string) SID {
	sid := SID(len(idx.vocabulary))
	idx.vocabulary = append(idx.vocabulary, s)

	if s == "" {
		idx.emptySIDs = append(idx.emptySIDs, sid)
		return sid
	}
	key := patricia.Prefix(s)
	if item := idx.trie.Get(key); item != nil {
		idx.trie.Set(key, append(item.([]SID), sid))
	} else {
		idx.trie.Insert(key, []SID{sid})
	}
	return sid
}

func (idx *Index) addToIndex(features []string, sid SID) {
	size := len(features)
	if size == 0 {
		return
	}
	for len(idx.classes) < size {
		idx.classes = append(idx.classes, nil)
	}
	class := idx.classes[size-1]
	if class == nil {
		class = make(invertedList)
		idx.classes[size-1] = class
	}
	for _, f := range features {
		class[f] = append(class[f], sid)
	}
}

// Lookup returns the posting list of feature in the given size class.
// Unpopulated or out of range classes yield an absent list.
func (idx *Index) Lookup(feature string, size int) PostingList {
	class := idx.class(size)
	if class == nil {
		return PostingList{}
	}
	ids, ok := class[feature]
	if !ok {
		return PostingList{}
	}
	return PostingList{ids: ids, present: true}
}

// SortedPostings looks up every feature in the size class and returns the
// lists ordered by ascending length with absent lists first.
func (idx *Index) SortedPostings(features []string, size int) []PostingList {
	lists := make([]PostingList, len(features))
	class := idx.class(size)
	if class == nil {
		return lists
	}
	for i, f := range features {
		if ids, ok := class[f]; ok {
			lists[i] = PostingList{ids: ids, present: true}
		}
	}
	sortByLength(lists)
	return lists
}

func (idx *Index) class(size int) invertedList {
	if size < 1 || size > len(idx.classes) {
		return nil
	}
	return idx.classes[size-1]
}

// Size returns the largest populated size class, 0 for an empty index.
// Candidate sizes above it cannot match anything.
func (idx *Index) Size() int {
	return len(idx.classes)
}

// Classes returns the number of populated size classes.
func (idx *Index) Classes() int {
	n := 0
	for _, class := range idx.classes {
		if class != nil {
			n++
		}
	}
	return n
}

// Len returns the number of inserted strings.
func (idx *Index) Len() int {
	return len(idx.vocabulary)
}

// Get returns the string with the given sid.
func (idx *Index) Get(sid SID) (string, bool) {
	if int(sid) >= len(idx.vocabulary) {
		return "", false
	}
	return idx.vocabulary[sid], true
}

// Find returns the sids of every insertion of exactly s.
func (idx *Index) Find(s string) []SID {
	if s == "" {
		return idx.emptySIDs
	}
	item := idx.trie.Get(patricia.Prefix(s))
	if item == nil {
		return nil
	}
	return item.([]SID)
}

// WithPrefix calls fn for every distinct vocabulary string starting with prefix.
// Returning an error from fn stops the walk.
func (idx *Index) WithPrefix(prefix string, fn func(s string, sids []SID) error) error {
	if prefix == "" && len(idx.emptySIDs) > 0 {
		if err := fn("", idx.emptySIDs); err != nil {
			return err
		}
	}
	visit := func(p patricia.Prefix, item patricia.Item) error {
		return fn(string(p), item.([]SID))
	}
	if prefix == "" {
		return idx.trie.Visit(visit)
	}
	return idx.trie.VisitSubtree(patricia.Prefix(prefix), visit)
}

// Validate checks that every posting list is strictly ascending and refers to
// known sids.
func (idx *Index) Validate() error {
	for i, class := range idx.classes {
		for feature, ids := range class {
			if !isStrictlyAscending(ids) {
				return fmt.Errorf("size %d feature %q: %w", i+1, feature, ErrUnsortedPostings)
			}
			if len(ids) > 0 && int(ids[len(ids)-1]) >= len(idx.vocabulary) {
				return fmt.Errorf("size %d feature %q: sid %d out of range", i+1, feature, ids[len(ids)-1])
			}
		}
	}
	return nil
}
