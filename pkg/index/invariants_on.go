//go:build invariants

package index

// Built with -tags invariants, posting lookups panic on unsorted lists.
const checkInvariants = true
