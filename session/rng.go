// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package session

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

// deterministicRNG derives the seeded CSPRNG handed to the Party
// Adapter from (session_id, self_party, current_round) (spec §4.3: "so
// advancement is reproducible for a given validator across restarts").
// Ground: the teacher's direct dependency on golang.org/x/crypto
// (previously only exercised for EdDSA curve math) — here repurposed
// for HKDF-SHA256 seed derivation expanded into a ChaCha20 keystream,
// since the black-box Party is the only consumer of randomness and
// needs an io.Reader, not a *big.Int helper like the teacher's
// common/random package (which was Paillier-keygen-specific).
func deterministicRNG(sessionID wire.SessionID, self party.ID, round uint64) (io.Reader, error) {
	info := make([]byte, 4)
	binary.BigEndian.PutUint32(info, uint32(self))

	ikm := make([]byte, 0, len(sessionID)+8)
	ikm = append(ikm, sessionID[:]...)
	roundBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(roundBytes, round)
	ikm = append(ikm, roundBytes...)

	kdf := hkdf.New(sha256.New, ikm, nil, info)
	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	var nonce [chacha20.NonceSize]byte // all-zero: key is single-use per (session, party, round)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		return nil, err
	}
	return &keystreamReader{cipher: cipher}, nil
}

// keystreamReader exposes a chacha20.Cipher's keystream as an io.Reader
// by encrypting an all-zero buffer.
type keystreamReader struct {
	cipher *chacha20.Cipher
}

func (k *keystreamReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	k.cipher.XORKeyStream(p, p)
	return len(p), nil
}
