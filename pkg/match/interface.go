// Package match is the core of simserve: it joins query features against the
// size classes of an index and returns every stored string whose similarity to
// the query reaches a threshold.
//
// Results are sets. They are returned in sid order, which reflects insertion
// order and not similarity.
package match

// StringMatcher defines the interface for approximate dictionary matchers
type StringMatcher interface {
	// AddAll inserts every string once, in order
	AddAll(strings []string)

	// Search returns the stored strings whose similarity to query reaches alpha.
	// alpha is in [0,1]: 1 asks for near exact matches, lower values widen the set.
	Search(query string, alpha float64) ([]string, error)

	// SearchOne returns any single match, ok is false when nothing matches
	SearchOne(query string, alpha float64) (match string, ok bool, err error)
}
