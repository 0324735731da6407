// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package wire

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes a ConsensusMessage for publication to consensus.
func Marshal(msg ConsensusMessage) ([]byte, error) {
	return encMode.Marshal(msg)
}

// Unmarshal decodes a ConsensusMessage received from consensus.
func Unmarshal(bz []byte, out *ConsensusMessage) error {
	return decMode.Unmarshal(bz, out)
}

// MarshalPayload encodes an arbitrary round-message payload value. The
// Party Adapter uses this to produce the opaque bytes a RoundMessage
// carries; the scheduler and session never call it, since payload
// bytes are opaque to everything but the adapter (spec §3).
func MarshalPayload(v interface{}) (Payload, error) {
	bz, err := encMode.Marshal(v)
	return Payload(bz), err
}

// UnmarshalPayload decodes bytes produced by MarshalPayload. Returns an
// error for malformed bytes, which the adapter turns into a malicious-
// sender classification (spec §4.1).
func UnmarshalPayload(p Payload, out interface{}) error {
	return decMode.Unmarshal(p, out)
}
