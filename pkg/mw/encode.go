// Package mw encoding.
//
// Encoding is the byte-exact inverse of decoding: fields are written in
// the same fixed order, public keys are re-serialized in compressed
// form, and extra data is length-prefixed exactly when its feature bit
// is set. Encoding a decoded output reproduces its original wire bytes.
package mw

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// EncodeOutputs writes a CompactSize count followed by each output, the
// same shape the output list has inside a transaction body. Returns the
// number of bytes written.
func EncodeOutputs(w io.Writer, outputs []Output) (int, error) {
	count := uint64(len(outputs))
	if err := wire.WriteVarInt(w, 0, count); err != nil {
		return 0, fmt.Errorf("writing output count: %w", err)
	}
	n := wire.VarIntSerializeSize(count)

	for i := range outputs {
		written, err := EncodeOutput(w, &outputs[i])
		n += written
		if err != nil {
			return n, fmt.Errorf("encoding output %d: %w", i, err)
		}
	}
	return n, nil
}

// EncodeOutput writes one output in wire order: commitment, sender and
// receiver public keys, message, range proof, signature. Returns the
// number of bytes written.
func EncodeOutput(w io.Writer, out *Output) (int, error) {
	n, err := writeBytes(w, out.Commitment[:], "output commitment")
	if err != nil {
		return n, err
	}

	written, err := writePubKey(w, out.SenderPubKey, "sender public key")
	n += written
	if err != nil {
		return n, err
	}
	written, err = writePubKey(w, out.ReceiverPubKey, "receiver public key")
	n += written
	if err != nil {
		return n, err
	}

	written, err = EncodeOutputMessage(w, &out.Message)
	n += written
	if err != nil {
		return n, err
	}

	written, err = writeBytes(w, out.RangeProof[:], "output range proof")
	n += written
	if err != nil {
		return n, err
	}
	written, err = writeBytes(w, out.Signature[:], "output signature")
	n += written
	return n, err
}

// EncodeOutputMessage writes an output message. The features byte is
// written as stored, so the message must be internally consistent: a set
// standard-fields bit requires StandardFields, a clear extra-data bit
// forbids a non-empty ExtraData. A set extra-data bit always writes a
// length prefix, zero-length included. Returns the number of bytes
// written.
func EncodeOutputMessage(w io.Writer, msg *OutputMessage) (int, error) {
	if msg.Features&^outputMessageKnownFeatures != 0 {
		return 0, &UnknownFeaturesError{Structure: "output message", Features: msg.Features}
	}
	if msg.HasStandardFields() && msg.StandardFields == nil {
		return 0, fmt.Errorf("output message features 0x%02x require standard fields, none present", msg.Features)
	}
	if !msg.HasStandardFields() && msg.StandardFields != nil {
		return 0, fmt.Errorf("output message features 0x%02x forbid standard fields, but fields are present", msg.Features)
	}
	if !msg.HasExtraData() && len(msg.ExtraData) > 0 {
		return 0, fmt.Errorf("output message features 0x%02x forbid extra data, but %d bytes are present", msg.Features, len(msg.ExtraData))
	}

	n, err := writeBytes(w, []byte{msg.Features}, "output message features")
	if err != nil {
		return n, err
	}

	if msg.HasStandardFields() {
		fields := msg.StandardFields

		written, err := writePubKey(w, fields.KeyExchangePubKey, "key exchange public key")
		n += written
		if err != nil {
			return n, err
		}
		written, err = writeBytes(w, []byte{fields.ViewTag}, "view tag")
		n += written
		if err != nil {
			return n, err
		}

		var value [8]byte
		binary.LittleEndian.PutUint64(value[:], fields.MaskedValue)
		written, err = writeBytes(w, value[:], "masked value")
		n += written
		if err != nil {
			return n, err
		}
		written, err = writeBytes(w, fields.MaskedNonce[:], "masked nonce")
		n += written
		if err != nil {
			return n, err
		}
	}

	if msg.HasExtraData() {
		length := uint64(len(msg.ExtraData))
		if err := wire.WriteVarInt(w, 0, length); err != nil {
			return n, fmt.Errorf("writing extra data length: %w", err)
		}
		n += wire.VarIntSerializeSize(length)

		written, err := writeBytes(w, msg.ExtraData, "output message extra data")
		n += written
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// writePubKey serializes a public key in compressed form. Compressed
// parsing preserves the Y-parity prefix, so re-serialization reproduces
// the exact bytes that were decoded.
func writePubKey(w io.Writer, pubKey *secp256k1.PublicKey, field string) (int, error) {
	if pubKey == nil {
		return 0, fmt.Errorf("missing %s", field)
	}
	return writeBytes(w, pubKey.SerializeCompressed(), field)
}

func writeBytes(w io.Writer, b []byte, field string) (int, error) {
	n, err := w.Write(b)
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", field, err)
	}
	return n, nil
}
