// Package mw decoding.
//
// Decoding is a single forward pass over one byte stream. Every structure
// with optional fields starts with a features byte whose bits are
// consumed strictly in bit order, so the exact size of each structure is
// determined by the flags actually present. Fields the codec does not
// retain are still skipped by their exact size; getting any of those
// sizes wrong would desynchronize every field that follows.
package mw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Upper bounds on declared lengths and counts. The stream is supplied by
// an untrusted peer, so every length prefix is checked against these
// before any allocation or read. All of them sit well above what a
// consensus-valid extension block could carry.
const (
	maxInputsPerTx      = 50_000
	maxOutputsPerTx     = 10_000
	maxKernelsPerTx     = 25_000
	maxPegoutsPerKernel = 1_000
	maxExtraDataLen     = 1_024
	maxPegoutScriptLen  = 10_000
)

// maxAmountBytes bounds the continuation-amount skip loop. Ten bytes are
// enough for any 64-bit value; anything longer is a malformed stream
// trying to keep the reader spinning.
const maxAmountBytes = 10

// DecodeTransaction decodes one MWEB transaction from r. The two leading
// 32-byte offsets (kernel offset, stealth offset) are consumed but not
// retained. Any failure aborts the whole decode; there is no partial
// transaction result.
func DecodeTransaction(r io.Reader) (*Transaction, error) {
	if err := skipBytes(r, 32, "kernel offset"); err != nil {
		return nil, err
	}
	if err := skipBytes(r, 32, "stealth offset"); err != nil {
		return nil, err
	}
	body, err := DecodeTxBody(r)
	if err != nil {
		return nil, err
	}
	return &Transaction{Body: *body}, nil
}

// DecodeTxBody decodes a transaction body: the input list, the output
// list and the kernel list, in that wire order. Inputs keep only the
// spent output id, outputs are retained in full, kernels are skipped and
// only their count survives.
func DecodeTxBody(r io.Reader) (*TxBody, error) {
	body := &TxBody{}

	inputCount, err := readVarInt(r, "input count")
	if err != nil {
		return nil, err
	}
	if inputCount > maxInputsPerTx {
		return nil, &OversizedLengthError{Field: "input count", Length: inputCount, Max: maxInputsPerTx}
	}
	// Preallocation is bounded separately from the count check: an
	// adversarial count must not cost a large allocation before a single
	// payload byte has been read.
	body.Inputs = make([]Input, 0, min(inputCount, 512))
	for i := uint64(0); i < inputCount; i++ {
		in, err := decodeInput(r)
		if err != nil {
			return nil, fmt.Errorf("decoding input %d: %w", i, err)
		}
		body.Inputs = append(body.Inputs, in)
	}

	outputCount, err := readVarInt(r, "output count")
	if err != nil {
		return nil, err
	}
	if outputCount > maxOutputsPerTx {
		return nil, &OversizedLengthError{Field: "output count", Length: outputCount, Max: maxOutputsPerTx}
	}
	body.Outputs = make([]Output, 0, min(outputCount, 128))
	for i := uint64(0); i < outputCount; i++ {
		out, err := DecodeOutput(r)
		if err != nil {
			return nil, fmt.Errorf("decoding output %d: %w", i, err)
		}
		body.Outputs = append(body.Outputs, *out)
	}

	kernelCount, err := readVarInt(r, "kernel count")
	if err != nil {
		return nil, err
	}
	if kernelCount > maxKernelsPerTx {
		return nil, &OversizedLengthError{Field: "kernel count", Length: kernelCount, Max: maxKernelsPerTx}
	}
	for i := uint64(0); i < kernelCount; i++ {
		if err := skipKernel(r); err != nil {
			return nil, fmt.Errorf("skipping kernel %d: %w", i, err)
		}
	}
	body.KernelCount = kernelCount

	return body, nil
}

// DecodeOutput decodes one output, consuming its exact byte span:
// commitment, sender and receiver public keys, message, range proof and
// signature. Both public keys are validated as compressed curve points;
// 33 bytes that are not a valid point fail with InvalidPublicKeyError.
func DecodeOutput(r io.Reader) (*Output, error) {
	out := &Output{}

	if err := readFull(r, out.Commitment[:], "output commitment"); err != nil {
		return nil, err
	}

	var err error
	if out.SenderPubKey, err = readPubKey(r, "sender public key"); err != nil {
		return nil, err
	}
	if out.ReceiverPubKey, err = readPubKey(r, "receiver public key"); err != nil {
		return nil, err
	}

	msg, err := DecodeOutputMessage(r)
	if err != nil {
		return nil, err
	}
	out.Message = *msg

	if err := readFull(r, out.RangeProof[:], "output range proof"); err != nil {
		return nil, err
	}
	if err := readFull(r, out.Signature[:], "output signature"); err != nil {
		return nil, err
	}

	return out, nil
}

// DecodeOutputMessage decodes an output message. The output decoder must
// be able to size every field an output carries, so a features byte with
// bits beyond the known set fails with UnknownFeaturesError instead of
// guessing at the layout.
func DecodeOutputMessage(r io.Reader) (*OutputMessage, error) {
	features, err := readByte(r, "output message features")
	if err != nil {
		return nil, err
	}
	if features&^outputMessageKnownFeatures != 0 {
		return nil, &UnknownFeaturesError{Structure: "output message", Features: features}
	}

	msg := &OutputMessage{Features: features}

	if features&OutputMessageStandardFieldsBit != 0 {
		fields := &OutputMessageStandardFields{}
		if fields.KeyExchangePubKey, err = readPubKey(r, "key exchange public key"); err != nil {
			return nil, err
		}
		if fields.ViewTag, err = readByte(r, "view tag"); err != nil {
			return nil, err
		}
		var value [8]byte
		if err := readFull(r, value[:], "masked value"); err != nil {
			return nil, err
		}
		fields.MaskedValue = binary.LittleEndian.Uint64(value[:])
		if err := readFull(r, fields.MaskedNonce[:], "masked nonce"); err != nil {
			return nil, err
		}
		msg.StandardFields = fields
	}

	if features&OutputMessageExtraDataBit != 0 {
		if msg.ExtraData, err = readVarBytes(r, maxExtraDataLen, "output message extra data"); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// decodeInput consumes one input and returns only the id of the output
// it spends. The commitment, keys and signature are skipped without
// validation, so the only failure mode here is a short read.
func decodeInput(r io.Reader) (Input, error) {
	var in Input

	features, err := readByte(r, "input features")
	if err != nil {
		return in, err
	}
	if err := readFull(r, in.OutputID[:], "spent output id"); err != nil {
		return in, err
	}
	if err := skipBytes(r, CommitmentSize, "input commitment"); err != nil {
		return in, err
	}
	if err := skipBytes(r, PubKeySize, "input output public key"); err != nil {
		return in, err
	}
	if features&InputStealthKeyBit != 0 {
		if err := skipBytes(r, PubKeySize, "input stealth public key"); err != nil {
			return in, err
		}
	}
	if features&InputExtraDataBit != 0 {
		if err := skipVarBytes(r, maxExtraDataLen, "input extra data"); err != nil {
			return in, err
		}
	}
	if err := skipBytes(r, SignatureSize, "input signature"); err != nil {
		return in, err
	}

	return in, nil
}

// skipKernel advances the stream past one kernel without materializing
// it. Optional fields are skipped strictly in bit order; every kernel
// ends with a fixed excess and signature regardless of flags.
func skipKernel(r io.Reader) error {
	features, err := readByte(r, "kernel features")
	if err != nil {
		return err
	}
	if features&KernelFeeBit != 0 {
		if err := skipAmount(r, "kernel fee"); err != nil {
			return err
		}
	}
	if features&KernelPeginBit != 0 {
		if err := skipAmount(r, "kernel pegin amount"); err != nil {
			return err
		}
	}
	if features&KernelPegoutBit != 0 {
		count, err := readVarInt(r, "kernel pegout count")
		if err != nil {
			return err
		}
		if count > maxPegoutsPerKernel {
			return &OversizedLengthError{Field: "kernel pegout count", Length: count, Max: maxPegoutsPerKernel}
		}
		for i := uint64(0); i < count; i++ {
			if err := skipAmount(r, "kernel pegout amount"); err != nil {
				return err
			}
			if err := skipVarBytes(r, maxPegoutScriptLen, "kernel pegout script"); err != nil {
				return err
			}
		}
	}
	if features&KernelHeightLockBit != 0 {
		if err := skipBytes(r, 4, "kernel lock height"); err != nil {
			return err
		}
	}
	if features&KernelStealthExcessBit != 0 {
		if err := skipBytes(r, PubKeySize, "kernel stealth excess"); err != nil {
			return err
		}
	}
	if features&KernelExtraDataBit != 0 {
		if err := skipVarBytes(r, maxExtraDataLen, "kernel extra data"); err != nil {
			return err
		}
	}
	if err := skipBytes(r, CommitmentSize, "kernel excess"); err != nil {
		return err
	}
	return skipBytes(r, SignatureSize, "kernel signature")
}

// skipAmount consumes one continuation-encoded amount: each byte's high
// bit says another byte follows. The value itself is never needed, only
// its span. The loop is hard-capped at maxAmountBytes.
func skipAmount(r io.Reader, field string) error {
	for i := 0; i < maxAmountBytes; i++ {
		b, err := readByte(r, field)
		if err != nil {
			return err
		}
		if b&0x80 == 0 {
			break
		}
	}
	return nil
}

// readPubKey reads 33 bytes and parses them as a compressed secp256k1
// point. A short read and an off-curve key are reported as distinct
// error conditions.
func readPubKey(r io.Reader, field string) (*secp256k1.PublicKey, error) {
	var buf [PubKeySize]byte
	if err := readFull(r, buf[:], field); err != nil {
		return nil, err
	}
	pubKey, err := secp256k1.ParsePubKey(buf[:])
	if err != nil {
		return nil, &InvalidPublicKeyError{Field: field, Err: err}
	}
	return pubKey, nil
}

// readVarInt reads a Bitcoin-style CompactSize integer, the encoding
// MWEB reuses for all list counts and length prefixes.
func readVarInt(r io.Reader, field string) (uint64, error) {
	value, err := wire.ReadVarInt(r, 0)
	if err != nil {
		if isShortRead(err) {
			return 0, &TruncatedError{Field: field, Err: err}
		}
		return 0, fmt.Errorf("reading %s: %w", field, err)
	}
	return value, nil
}

// readVarBytes reads a length-prefixed blob, rejecting the declared
// length before allocating.
func readVarBytes(r io.Reader, max uint64, field string) ([]byte, error) {
	length, err := readVarInt(r, field)
	if err != nil {
		return nil, err
	}
	if length > max {
		return nil, &OversizedLengthError{Field: field, Length: length, Max: max}
	}
	buf := make([]byte, length)
	if err := readFull(r, buf, field); err != nil {
		return nil, err
	}
	return buf, nil
}

// skipVarBytes discards a length-prefixed blob, with the same bound
// check as readVarBytes.
func skipVarBytes(r io.Reader, max uint64, field string) error {
	length, err := readVarInt(r, field)
	if err != nil {
		return err
	}
	if length > max {
		return &OversizedLengthError{Field: field, Length: length, Max: max}
	}
	return skipBytes(r, length, field)
}

func readByte(r io.Reader, field string) (byte, error) {
	var buf [1]byte
	if err := readFull(r, buf[:], field); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readFull(r io.Reader, buf []byte, field string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return &TruncatedError{Field: field, Err: err}
	}
	return nil
}

func skipBytes(r io.Reader, n uint64, field string) error {
	written, err := io.CopyN(io.Discard, r, int64(n))
	if err != nil {
		return &TruncatedError{Field: field, Err: fmt.Errorf("skipped %d of %d bytes: %w", written, n, err)}
	}
	return nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
