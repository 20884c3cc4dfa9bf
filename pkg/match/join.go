package match

import (
	"slices"

	"github.com/bastiangx/simserve/pkg/index"
)

// OverlapJoin returns the sids that occur in at least minOverlap of the given
// posting lists, using the CP-Merge signature and pruning strategy.
//
// postings must come from index.SortedPostings, shortest lists first.
// found is false when every list is absent, meaning nothing of this size was
// indexed under any query feature. A present but fruitless join returns an
// empty slice with found set.
func OverlapJoin(postings []index.PostingList, minOverlap int) (ids []index.SID, found bool) {
	if !anyPresent(postings) {
		return nil, false
	}
	if minOverlap < 1 {
		minOverlap = 1
	}
	n := len(postings)
	if minOverlap > n {
		return []index.SID{}, true
	}

	// A sid missing from all of the first n-minOverlap+1 lists can collect at
	// most minOverlap-1 hits from the rest, so the signature sees every match.
	signature := n - minOverlap + 1
	counts := make(map[index.SID]int)
	for _, list := range postings[:signature] {
		for _, sid := range list.IDs() {
			counts[sid]++
		}
	}

	results := make([]index.SID, 0, len(counts))
	if signature == n {
		for sid, c := range counts {
			if c >= minOverlap {
				results = append(results, sid)
			}
		}
		slices.Sort(results)
		return results, true
	}

	retired := make([]index.SID, 0, len(counts))
	for k := signature; k < n && len(counts) > 0; k++ {
		list := postings[k]
		remaining := n - k - 1
		for sid, c := range counts {
			if list.Contains(sid) {
				c++
				counts[sid] = c
			}
			if c >= minOverlap {
				results = append(results, sid)
				retired = append(retired, sid)
			} else if c+remaining < minOverlap {
				retired = append(retired, sid)
			}
		}
		for _, sid := range retired {
			delete(counts, sid)
		}
		retired = retired[:0]
	}

	slices.Sort(results)
	return results, true
}

func anyPresent(postings []index.PostingList) bool {
	for _, p := range postings {
		if p.Present() {
			return true
		}
	}
	return false
}
