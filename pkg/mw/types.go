// Package mw implements a partial binary codec for MimbleWimble (MWEB)
// transactions carried in Litecoin extension blocks.
//
// Only the parts of a transaction needed to identify outputs are
// materialized: an Input keeps just the id of the output it spends, an
// Output keeps every byte needed to reproduce its wire encoding, and
// kernels are consumed but never retained. All other fields are skipped
// with exact byte accounting so that decoding stays synchronized across
// arbitrary feature-flag combinations.
//
// The wire format corresponds to the Rust implementation in:
//   - rust-litecoin/src/blockdata/mimblewimble.rs
//
// and to the serialization in Litecoin Core's libmw (LIP-0002/LIP-0003).
package mw

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Sizes of the fixed-width fields in MWEB structures.
const (
	// CommitmentSize is the size of a Pedersen commitment.
	CommitmentSize = 33

	// PubKeySize is the size of a compressed secp256k1 public key.
	PubKeySize = 33

	// SignatureSize is the size of a Schnorr signature.
	SignatureSize = 64

	// RangeProofSize is the size of a Bulletproof range proof.
	RangeProofSize = 675

	// MaskedNonceSize is the size of an output message's masked nonce.
	MaskedNonceSize = 16
)

// Feature bits of the OutputMessage features byte. Fields gated by these
// bits always appear on the wire in bit order.
const (
	// OutputMessageStandardFieldsBit gates OutputMessageStandardFields.
	OutputMessageStandardFieldsBit uint8 = 1 << 0

	// OutputMessageExtraDataBit gates the length-prefixed extra data blob.
	OutputMessageExtraDataBit uint8 = 1 << 1
)

// outputMessageKnownFeatures is the set of feature bits this decoder can
// size. An output message carrying any other bit cannot be framed and is
// rejected rather than guessed at.
const outputMessageKnownFeatures = OutputMessageStandardFieldsBit | OutputMessageExtraDataBit

// Feature bits of the Input features byte.
const (
	// InputStealthKeyBit gates the 33-byte input stealth public key.
	InputStealthKeyBit uint8 = 1 << 0

	// InputExtraDataBit gates the length-prefixed extra data blob.
	InputExtraDataBit uint8 = 1 << 1
)

// Feature bits of the Kernel features byte.
const (
	// KernelFeeBit gates the fee amount.
	KernelFeeBit uint8 = 1 << 0

	// KernelPeginBit gates the peg-in amount.
	KernelPeginBit uint8 = 1 << 1

	// KernelPegoutBit gates the list of peg-out (amount, script) pairs.
	KernelPegoutBit uint8 = 1 << 2

	// KernelHeightLockBit gates the 4-byte lock height.
	KernelHeightLockBit uint8 = 1 << 3

	// KernelStealthExcessBit gates the 33-byte stealth excess.
	KernelStealthExcessBit uint8 = 1 << 4

	// KernelExtraDataBit gates the length-prefixed extra data blob.
	KernelExtraDataBit uint8 = 1 << 5
)

// OutputMessageStandardFields is the payload a wallet uses to test output
// ownership and recover the blinded value. Its shape is fixed: when the
// standard-fields bit is set these 58 bytes always follow the features
// byte.
type OutputMessageStandardFields struct {
	KeyExchangePubKey *secp256k1.PublicKey // ephemeral key-exchange public key
	ViewTag           uint8                // first byte of the shared secret hash
	MaskedValue       uint64               // value XOR-masked with the shared secret
	MaskedNonce       [MaskedNonceSize]byte
}

// OutputMessage is the plaintext metadata attached to an Output.
//
// ExtraData is empty when the extra-data bit is clear; when the bit is
// set the blob is length-prefixed on the wire even if empty.
type OutputMessage struct {
	Features       uint8
	StandardFields *OutputMessageStandardFields // nil when the bit is clear
	ExtraData      []byte
}

// HasStandardFields reports whether the standard-fields bit is set.
func (m *OutputMessage) HasStandardFields() bool {
	return m.Features&OutputMessageStandardFieldsBit != 0
}

// HasExtraData reports whether the extra-data bit is set.
func (m *OutputMessage) HasExtraData() bool {
	return m.Features&OutputMessageExtraDataBit != 0
}

// Output is one MWEB transaction output. Every field that appears on the
// wire is retained, opaque or not, so that EncodeOutput reproduces the
// original bytes exactly.
type Output struct {
	Commitment     [CommitmentSize]byte // Pedersen commitment, opaque
	SenderPubKey   *secp256k1.PublicKey
	ReceiverPubKey *secp256k1.PublicKey
	Message        OutputMessage
	RangeProof     [RangeProofSize]byte // opaque, verified elsewhere
	Signature      [SignatureSize]byte  // Schnorr, verified elsewhere
}

// Input references a previously created output. Only the spent output's
// id is retained; the commitment, keys and signature are skipped.
type Input struct {
	OutputID chainhash.Hash
}

// TxBody holds the retained pieces of a transaction body. Outputs appear
// in wire order, which determines the output ids derived by the consensus
// layer; this codec never reorders, filters or deduplicates them.
// Kernels are skipped, only their count survives.
type TxBody struct {
	Inputs      []Input
	Outputs     []Output
	KernelCount uint64
}

// Transaction is a decoded MWEB transaction. The two leading 32-byte
// offset fields (kernel offset, stealth offset) are consensus values this
// codec does not need and are skipped during decode.
type Transaction struct {
	Body TxBody
}
