// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

// AccessStructure is the weighted threshold predicate over subsets of
// PartyID described in spec §3/§6. Quorum and validity thresholds are
// both expressed in basis points (1/10000) of total committee weight,
// matching how the original dWallet committee expresses stake-weighted
// thresholds (original_source crates/ika-types/src/committee.rs).
type AccessStructure struct {
	weights     map[ID]uint64
	totalWeight uint64
	quorumBps   uint32
	validityBps uint32
}

const basisPointsDenominator = 10000

// IsAuthorized reports whether the given subset's combined weight meets
// the quorum threshold. This is the predicate every round-advancement
// decision (scheduler) and every cross-validator accusation agreement
// (reporter) is built on.
func (a *AccessStructure) IsAuthorized(subset Set) bool {
	return a.weightOf(subset)*basisPointsDenominator >= uint64(a.quorumBps)*a.totalWeight
}

// IsValid reports whether the subset meets the (generally lower)
// validity threshold used for proof-validity style checks where a
// weaker threshold than full quorum is sufficient.
func (a *AccessStructure) IsValid(subset Set) bool {
	return a.weightOf(subset)*basisPointsDenominator >= uint64(a.validityBps)*a.totalWeight
}

func (a *AccessStructure) weightOf(subset Set) uint64 {
	var sum uint64
	for id := range subset {
		sum += a.weights[id]
	}
	return sum
}

func (a *AccessStructure) Weight(id ID) uint64 { return a.weights[id] }

func (a *AccessStructure) TotalWeight() uint64 { return a.totalWeight }

// WeightVector returns each committee member's weight in ascending ID
// order (IDs are dense in [1, N], spec §3), for callers that need the
// full weight table serialized rather than queried member-by-member —
// e.g. the Event Router's Reconfiguration input (spec §4.5).
func (a *AccessStructure) WeightVector() []uint64 {
	out := make([]uint64, len(a.weights))
	for id, w := range a.weights {
		out[int(id)-1] = w
	}
	return out
}

func (a *AccessStructure) QuorumThresholdBps() uint32 { return a.quorumBps }

func (a *AccessStructure) ValidityThresholdBps() uint32 { return a.validityBps }

// AccessStructureProvider is the read-only external collaborator from
// spec §6.4, fixed for an epoch and shared read-only across sessions.
type AccessStructureProvider interface {
	AccessStructure() *AccessStructure
	NameOf(id ID) (AuthorityName, bool)
	IDOf(name AuthorityName) (ID, bool)
}

var _ AccessStructureProvider = (*Committee)(nil)
