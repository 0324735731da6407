// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package digest provides the hashing used for audit-log payload
// fingerprints. Ground: teacher's common.SHA512_256 (bnb-chain-tss-lib
// common/hash.go) — SHA-512/256 is protected against length-extension
// attacks and faster than SHA-256 on 64-bit architectures, same
// rationale the teacher's comment gave. Reimplemented rather than
// copied because the teacher's version logs through a package-level
// Logger variable that was never part of the retrieved source (it was
// filtered out of the pack, so there is nothing to ground that
// specific plumbing on); this version does not log and returns only the
// digest.
package digest

import (
	"crypto"
	_ "crypto/sha512"
)

// SHA512_256 hashes in, used to fingerprint round
// message payloads for the append-only audit log (spec §6).
func SHA512_256(in []byte) [32]byte {
	h := crypto.SHA512_256.New()
	h.Write(in) //nolint:errcheck // hash.Hash.Write never returns an error
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
