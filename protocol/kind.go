// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package protocol defines the closed set of MPC protocol kinds a
// Session can run. Spec §9 calls for modeling the source's generic
// Party trait family as "an enum over the closed set of protocol kinds
// ... with a single byte-oriented advance dispatch per variant" — this
// is that enum.
package protocol

// Kind is one of the eight MPC protocols a Session may run (spec §3).
type Kind uint8

const (
	DkgFirst Kind = iota + 1
	DkgSecond
	Presign
	Sign
	NetworkKeyDkg
	Reshare
	EncryptedShareVerify
	PartialSigVerify
)

func (k Kind) String() string {
	switch k {
	case DkgFirst:
		return "DkgFirst"
	case DkgSecond:
		return "DkgSecond"
	case Presign:
		return "Presign"
	case Sign:
		return "Sign"
	case NetworkKeyDkg:
		return "NetworkKeyDkg"
	case Reshare:
		return "Reshare"
	case EncryptedShareVerify:
		return "EncryptedShareVerify"
	case PartialSigVerify:
		return "PartialSigVerify"
	default:
		return "Unknown"
	}
}

// IsSystem reports whether sessions of this kind are protocol-essential
// "system" sessions (spec §4.4: unbounded, FIFO, strictly event order)
// as opposed to throttled "user" sessions.
func (k Kind) IsSystem() bool {
	switch k {
	case NetworkKeyDkg, Reshare:
		return true
	default:
		return false
	}
}
