// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package reporter

import (
	"fmt"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

// newAgreedAccusationError reports one (session, round) whose accused
// set was confirmed by an authorised subset of reporters, wrapped as a
// party.Error so callers can extract the culprit list programmatically
// (victim is left zero: the accusation has no single victim, it names
// the session instead via the wrapped cause).
func newAgreedAccusationError(session wire.SessionID, round uint64, accused []party.ID) error {
	cause := fmt.Errorf("session %s: agreed malicious parties", session)
	return party.NewError(cause, round, 0, accused...)
}
