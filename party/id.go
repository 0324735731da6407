// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package party models committee membership: dense party identifiers,
// the weighted access structure that decides which subsets of parties
// may speak for the committee, and the error type shared by every
// component that needs to blame a round on a specific party.
package party

import (
	"fmt"
	"sort"
)

// ID is a party's committee-assigned identifier. Dense in [1, N] and
// stable within an epoch (spec §3).
type ID uint32

// AuthorityName is the external, human/chain-readable name a Committee
// maps an ID to and from.
type AuthorityName string

func (id ID) String() string {
	return fmt.Sprintf("P%d", uint32(id))
}

// Set is a small helper around map[ID]struct{} used throughout the core
// for malicious-party and accusation bookkeeping.
type Set map[ID]struct{}

func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

// Union returns a new set containing every member of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the set's members in ascending order, for deterministic
// logging and hashing.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Committee is the fixed-for-an-epoch mapping between dense party IDs
// and the chain's authority names, plus the access structure derived
// from their weights. Ground: tss.PeerContext / tss.SortedPartyIDs,
// generalized from EC-point-derived keys to committee-assigned dense
// integers since this core never touches curve arithmetic directly.
type Committee struct {
	access *AccessStructure
	names  map[ID]AuthorityName
	ids    map[AuthorityName]ID
}

// NewCommittee builds a Committee from a weight table. IDs are assigned
// by ascending AuthorityName order, matching the teacher's
// SortPartyIDs-then-assign-Index convention.
func NewCommittee(weights map[AuthorityName]uint64, quorumBps, validityBps uint32) *Committee {
	names := make([]AuthorityName, 0, len(weights))
	for n := range weights {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	c := &Committee{
		names: make(map[ID]AuthorityName, len(names)),
		ids:   make(map[AuthorityName]ID, len(names)),
	}
	w := make(map[ID]uint64, len(names))
	var total uint64
	for i, n := range names {
		id := ID(i + 1)
		c.names[id] = n
		c.ids[n] = id
		w[id] = weights[n]
		total += weights[n]
	}
	c.access = &AccessStructure{
		weights:     w,
		totalWeight: total,
		quorumBps:   quorumBps,
		validityBps: validityBps,
	}
	return c
}

func (c *Committee) AccessStructure() *AccessStructure { return c.access }

func (c *Committee) NameOf(id ID) (AuthorityName, bool) {
	n, ok := c.names[id]
	return n, ok
}

func (c *Committee) IDOf(name AuthorityName) (ID, bool) {
	id, ok := c.ids[name]
	return id, ok
}

func (c *Committee) Size() int { return len(c.names) }
