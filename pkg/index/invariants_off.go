//go:build !invariants

package index

const checkInvariants = false
