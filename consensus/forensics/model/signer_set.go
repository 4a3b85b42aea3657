package model

import (
	"sort"
	"strings"
)

// SignerSet is a set of replica identities.
type SignerSet map[ReplicaID]struct{}

// NewSignerSet builds a set from the given identities.
func NewSignerSet(ids ...ReplicaID) SignerSet {
	set := make(SignerSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s SignerSet) Len() int { return len(s) }

func (s SignerSet) Contains(id ReplicaID) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the replicas contained in both sets.
func (s SignerSet) Intersect(other SignerSet) SignerSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	result := make(SignerSet)
	for id := range small {
		if large.Contains(id) {
			result[id] = struct{}{}
		}
	}
	return result
}

// Equal reports whether both sets contain exactly the same replicas.
func (s SignerSet) Equal(other SignerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every replica of s is contained in other.
func (s SignerSet) IsSubsetOf(other SignerSet) bool {
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Sorted returns the identities in lexicographic order.
func (s SignerSet) Sorted() []ReplicaID {
	ids := make([]ReplicaID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Strings returns the sorted identities as strings.
func (s SignerSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, string(id))
	}
	return out
}

func (s SignerSet) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}

// MinimumOverlap returns the minimal number of replicas any two quorums of size
// `quorum` must share when drawn from `total` replicas. A non-positive result
// means two quorums may be disjoint.
func MinimumOverlap(total, quorum uint) int {
	return 2*int(quorum) - int(total)
}
