// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package manager

import (
	"sync"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

// bufferedMessage is one round message that arrived before its
// session existed.
type bufferedMessage struct {
	consensusRound uint64
	round          uint64
	sender         party.ID
	payload        wire.Payload
}

// reorderBuffer holds, per not-yet-admitted SessionID, up to cap
// messages (SPEC_FULL.md §9: "buffer briefly (bounded)... else drop").
// Once the session is admitted, buffer() is stopped and drain()
// returns (and forgets) everything held for it.
type reorderBuffer struct {
	mu    sync.Mutex
	cap   int
	byID  map[wire.SessionID][]bufferedMessage
}

func newReorderBuffer(cap int) *reorderBuffer {
	return &reorderBuffer{cap: cap, byID: make(map[wire.SessionID][]bufferedMessage)}
}

// buffer appends msg for an unseen session, dropping it once cap
// messages are already held (documented, not a guess: SPEC_FULL.md
// §9).
func (b *reorderBuffer) buffer(id wire.SessionID, c, r uint64, sender party.ID, payload wire.Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.byID[id]
	if len(existing) >= b.cap {
		return
	}
	b.byID[id] = append(existing, bufferedMessage{consensusRound: c, round: r, sender: sender, payload: payload})
}

// drain returns and forgets every message buffered for id.
func (b *reorderBuffer) drain(id wire.SessionID) []bufferedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.byID[id]
	delete(b.byID, id)
	return msgs
}
