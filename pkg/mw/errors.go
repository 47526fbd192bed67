// Package mw error types.
//
// Every failure mode of the codec maps to one of the types below so that
// callers (mempool admission, wallet scan) can distinguish a peer sending
// garbage from a peer sending short reads. All decode entry points return
// one of these, possibly wrapped with fmt.Errorf("...: %w", err) context.
package mw

import "fmt"

// TruncatedError is returned when the stream ends before a fixed-size or
// length-prefixed field is complete. The stream is exhausted or
// adversarial; the whole transaction must be dropped.
type TruncatedError struct {
	Field string // wire field being read when the stream ran out
	Err   error  // underlying read error (io.EOF / io.ErrUnexpectedEOF)
}

func (e *TruncatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("truncated input reading %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("truncated input reading %s", e.Field)
}

func (e *TruncatedError) Unwrap() error { return e.Err }

// InvalidPublicKeyError is returned when a 33-byte field that must be a
// compressed secp256k1 point is correctly sized but not on the curve.
// Distinct from TruncatedError so callers can ban the peer differently.
type InvalidPublicKeyError struct {
	Field string // wire field holding the bad key
	Err   error  // underlying secp256k1 parse error
}

func (e *InvalidPublicKeyError) Error() string {
	return fmt.Sprintf("invalid public key in %s: %v", e.Field, e.Err)
}

func (e *InvalidPublicKeyError) Unwrap() error { return e.Err }

// UnknownFeaturesError is returned when a structure this codec must fully
// understand carries feature bits it cannot size. Guessing the field
// layout would desynchronize every subsequent byte, so decoding aborts.
type UnknownFeaturesError struct {
	Structure string // structure whose features byte is unsupported
	Features  uint8  // the features byte as read
}

func (e *UnknownFeaturesError) Error() string {
	return fmt.Sprintf("unsupported %s features 0x%02x", e.Structure, e.Features)
}

// OversizedLengthError is returned when a length prefix declares more
// bytes than any valid transaction could carry. Rejected before any
// allocation or read is attempted.
type OversizedLengthError struct {
	Field  string
	Length uint64 // declared length
	Max    uint64 // largest length accepted for this field
}

func (e *OversizedLengthError) Error() string {
	return fmt.Sprintf("declared length %d for %s exceeds maximum %d", e.Length, e.Field, e.Max)
}
