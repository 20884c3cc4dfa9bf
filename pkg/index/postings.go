package index

import (
	"fmt"
	"sort"
)

// SID identifies a vocabulary entry. SIDs are dense and assigned in insertion order.
type SID uint32

// PostingList is the result of looking up one feature in one size class.
// The zero value is an absent list: the feature never occurred in that class.
// A present list may still be empty.
type PostingList struct {
	ids     []SID
	present bool
}

// Present reports whether the feature occurs in the size class.
func (p PostingList) Present() bool {
	return p.present
}

// Len is the number of sids in the list, 0 when absent.
func (p PostingList) Len() int {
	return len(p.ids)
}

// IDs returns the ascending sids. The slice is owned by the index and must not be modified.
func (p PostingList) IDs() []SID {
	return p.ids
}

// Contains reports whether sid is in the list using binary search.
func (p PostingList) Contains(sid SID) bool {
	if len(p.ids) == 0 {
		return false
	}
	if checkInvariants && !isStrictlyAscending(p.ids) {
		panic(fmt.Sprintf("index: posting list not strictly ascending: %v", p.ids))
	}
	i := sort.Search(len(p.ids), func(i int) bool { return p.ids[i] >= sid })
	return i < len(p.ids) && p.ids[i] == sid
}

func isStrictlyAscending(ids []SID) bool {
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			return false
		}
	}
	return true
}

// sortByLength orders lists by ascending length, absent lists first.
// The sort is stable so equal-length lists keep query feature order.
func sortByLength(lists []PostingList) {
	sort.SliceStable(lists, func(i, j int) bool {
		a, b := lists[i], lists[j]
		if a.present != b.present {
			return !a.present
		}
		return len(a.ids) < len(b.ids)
	})
}
