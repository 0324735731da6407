// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package router

import (
	"github.com/pkg/errors"

	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/wire"
)

// dkgFirstInput/dkgSecondInput/... are the CBOR-encoded shapes fed to
// adapter.Context.PublicInput/PrivateInput, one per EventKind (spec
// §4.5, richness supplemented from original_source/mpc_events.rs — see
// SPEC_FULL.md §4.5).
type dkgFirstInput struct {
	DkgPublicParams []byte `cbor:"1,keyasint"`
}

type dkgSecondInput struct {
	DkgPublicParams        []byte `cbor:"1,keyasint"`
	FirstRoundPublicOutput []byte `cbor:"2,keyasint"`
	UserEncryptionKey      []byte `cbor:"3,keyasint"`
}

type presignInput struct {
	DWalletPublicOutput []byte `cbor:"1,keyasint"`
}

type signInput struct {
	DWalletPublicOutput []byte `cbor:"1,keyasint"`
	Message             []byte `cbor:"2,keyasint"`
	PresignBundle       []byte `cbor:"3,keyasint"`
}

type futureSignInput struct {
	signInput
	PartialSigProof []byte `cbor:"4,keyasint"`
}

// encryptedShareVerifyInput backs EncryptedShareVerification,
// MakeUserShareSharesPublic (PublicizeOnFinalize set) and
// ImportedKeyVerification (ImportedKey set) — all three reduce to the
// same verification shape per SPEC_FULL.md §4.5.
type encryptedShareVerifyInput struct {
	EncryptionKey       []byte `cbor:"1,keyasint"`
	EncryptedShare      []byte `cbor:"2,keyasint"`
	ReencryptionProof   []byte `cbor:"3,keyasint"`
	PublicizeOnFinalize bool   `cbor:"4,keyasint"`
	ImportedKey         bool   `cbor:"5,keyasint"`
}

type networkKeyDkgInput struct {
	DkgPublicParams []byte `cbor:"1,keyasint"`
}

type networkKeyDkgPrivateInput struct {
	DecryptionShare []byte `cbor:"1,keyasint"`
}

type reconfigurationInput struct {
	OutgoingQuorumBps   uint32   `cbor:"1,keyasint"`
	OutgoingValidityBps uint32   `cbor:"2,keyasint"`
	OutgoingWeights     []uint64 `cbor:"3,keyasint"`
	IncomingQuorumBps   uint32   `cbor:"4,keyasint"`
	IncomingValidityBps uint32   `cbor:"5,keyasint"`
	IncomingWeights     []uint64 `cbor:"6,keyasint"`
}

// ProtocolKindFor maps a recognised EventKind to the protocol.Kind its
// session runs (spec §4.5's table, supplemented per SPEC_FULL.md §4.5:
// FutureSign starts a single PartialSigVerify session, and no Sign
// session is started after it; MakeUserShareSharesPublic/
// ImportedKeyVerification both reduce to EncryptedShareVerify with a
// flag on the public input).
func ProtocolKindFor(kind EventKind) (protocol.Kind, bool) {
	switch kind {
	case DkgFirst:
		return protocol.DkgFirst, true
	case DkgSecond:
		return protocol.DkgSecond, true
	case Presign:
		return protocol.Presign, true
	case Sign:
		return protocol.Sign, true
	case FutureSign:
		return protocol.PartialSigVerify, true
	case EncryptedShareVerification, MakeUserShareSharesPublic, ImportedKeyVerification:
		return protocol.EncryptedShareVerify, true
	case NetworkKeyDkg:
		return protocol.NetworkKeyDkg, true
	case Reconfiguration:
		return protocol.Reshare, true
	default:
		return 0, false
	}
}

// BuildInput encodes the protocol.Kind-specific public/private input
// bytes for ev (spec §4.5). Only Reconfiguration is checked for missing
// fields (both access structures must be set); other kinds are encoded
// from whatever fields ev carries. Unrecognised kinds return
// ErrUnrecognisedEvent with no side-effects (spec §8 scenario 5).
func BuildInput(ev Event, keys PrivateKeyMaterialSource) (kind protocol.Kind, publicInput, privateInput []byte, err error) {
	kind, ok := ProtocolKindFor(ev.Kind)
	if !ok {
		return 0, nil, nil, errors.Wrapf(ErrUnrecognisedEvent, "kind %d", ev.Kind)
	}

	switch ev.Kind {
	case DkgFirst:
		publicInput, err = wire.MarshalPayload(dkgFirstInput{DkgPublicParams: ev.DkgPublicParams})

	case DkgSecond:
		publicInput, err = wire.MarshalPayload(dkgSecondInput{
			DkgPublicParams:        ev.DkgPublicParams,
			FirstRoundPublicOutput: ev.FirstRoundPublicOutput,
			UserEncryptionKey:      ev.UserEncryptionKey,
		})

	case Presign:
		publicInput, err = wire.MarshalPayload(presignInput{DWalletPublicOutput: ev.DWalletPublicOutput})

	case Sign:
		publicInput, err = wire.MarshalPayload(signInput{
			DWalletPublicOutput: ev.DWalletPublicOutput,
			Message:             ev.Message,
			PresignBundle:       ev.PresignBundle,
		})

	case FutureSign:
		publicInput, err = wire.MarshalPayload(futureSignInput{
			signInput: signInput{
				DWalletPublicOutput: ev.DWalletPublicOutput,
				Message:             ev.Message,
				PresignBundle:       ev.PresignBundle,
			},
			PartialSigProof: ev.PartialSigProof,
		})

	case EncryptedShareVerification:
		publicInput, err = wire.MarshalPayload(encryptedShareVerifyInput{
			EncryptionKey:     ev.EncryptionKey,
			EncryptedShare:    ev.EncryptedShare,
			ReencryptionProof: ev.ReencryptionProof,
		})

	case MakeUserShareSharesPublic:
		publicInput, err = wire.MarshalPayload(encryptedShareVerifyInput{
			EncryptionKey:       ev.EncryptionKey,
			EncryptedShare:      ev.EncryptedShare,
			ReencryptionProof:   ev.ReencryptionProof,
			PublicizeOnFinalize: true,
		})

	case ImportedKeyVerification:
		publicInput, err = wire.MarshalPayload(encryptedShareVerifyInput{
			EncryptionKey:     ev.EncryptionKey,
			EncryptedShare:    ev.EncryptedShare,
			ReencryptionProof: ev.ReencryptionProof,
			ImportedKey:       true,
		})

	case NetworkKeyDkg:
		publicInput, err = wire.MarshalPayload(networkKeyDkgInput{DkgPublicParams: ev.DkgPublicParams})
		if err != nil {
			return 0, nil, nil, errors.Wrap(err, "router: encoding public input")
		}
		share, kerr := keys.NetworkKeyDecryptionShare()
		if kerr != nil {
			return 0, nil, nil, errors.Wrap(kerr, "router: fetching network key decryption share")
		}
		privateInput, err = wire.MarshalPayload(networkKeyDkgPrivateInput{DecryptionShare: share})

	case Reconfiguration:
		if ev.OutgoingAccess == nil || ev.IncomingAccess == nil {
			return 0, nil, nil, errors.New("router: reconfiguration event missing outgoing or incoming access structure")
		}
		publicInput, err = wire.MarshalPayload(reconfigurationInput{
			OutgoingQuorumBps:   ev.OutgoingAccess.QuorumThresholdBps(),
			OutgoingValidityBps: ev.OutgoingAccess.ValidityThresholdBps(),
			OutgoingWeights:     ev.OutgoingAccess.WeightVector(),
			IncomingQuorumBps:   ev.IncomingAccess.QuorumThresholdBps(),
			IncomingValidityBps: ev.IncomingAccess.ValidityThresholdBps(),
			IncomingWeights:     ev.IncomingAccess.WeightVector(),
		})

	default:
		return 0, nil, nil, errors.Wrapf(ErrUnrecognisedEvent, "kind %d", ev.Kind)
	}

	if err != nil {
		return 0, nil, nil, errors.Wrap(err, "router: encoding input")
	}
	return kind, publicInput, privateInput, nil
}
