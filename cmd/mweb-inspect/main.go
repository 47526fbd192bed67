// mweb-inspect - MWEB transaction inspector
//
// Decodes a hex-encoded MWEB transaction and prints the wallet-relevant
// view of it: the ids of the outputs its inputs spend and, for every
// output, the keys and message fields a wallet needs to test ownership.
//
// Example usage:
//
//	# Decode a transaction passed as an argument
//	mweb-inspect decode 09c6e1d4...
//
//	# Decode a transaction stored in a file
//	mweb-inspect decode -f tx.hex
//
//	# Re-serialize the output list and print it as hex
//	mweb-inspect reencode -f tx.hex
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/webwarrior-ws/litecoin-mweb/pkg/mw"
)

var opts struct {
	File    string `short:"f" long:"file" env:"MWEB_INSPECT_FILE" description:"read transaction hex from a file instead of the argument"`
	JSON    bool   `long:"json" description:"print the decoded transaction as JSON"`
	Verbose bool   `short:"v" long:"verbose" description:"enable debug logging"`
	Args    struct {
		Command string `positional-arg-name:"command" description:"decode | reencode"`
		Hex     string `positional-arg-name:"hex" description:"hex-encoded MWEB transaction"`
	} `positional-args:"yes"`
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	logger := newLogger(opts.Verbose)
	defer logger.Sync()

	raw, err := readTransactionHex()
	if err != nil {
		logger.Fatal("reading transaction hex", zap.Error(err))
	}
	logger.Debug("read transaction", zap.Int("size", len(raw)))

	r := bytes.NewReader(raw)
	tx, err := mw.DecodeTransaction(r)
	if err != nil {
		logger.Fatal("decoding transaction", zap.Error(err))
	}
	if r.Len() > 0 {
		logger.Warn("trailing bytes after transaction", zap.Int("count", r.Len()))
	}

	switch opts.Args.Command {
	case "decode":
		err = printTransaction(tx)
	case "reencode":
		err = printReencodedOutputs(tx)
	case "":
		fmt.Fprintln(os.Stderr, "missing command, expected decode or reencode")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, expected decode or reencode\n", opts.Args.Command)
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// readTransactionHex resolves the transaction bytes from the positional
// argument, the --file option, or stdin, in that order.
func readTransactionHex() ([]byte, error) {
	var text string
	switch {
	case opts.Args.Hex != "":
		text = opts.Args.Hex
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, err
		}
		text = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}

	raw, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return raw, nil
}

// transactionView is the JSON shape of a decoded transaction.
type transactionView struct {
	Inputs      []inputView  `json:"inputs"`
	Outputs     []outputView `json:"outputs"`
	KernelCount uint64       `json:"kernelCount"`
}

type inputView struct {
	SpentOutputID string `json:"spentOutputId"`
}

type outputView struct {
	Commitment        string  `json:"commitment"`
	SenderPubKey      string  `json:"senderPubKey"`
	ReceiverPubKey    string  `json:"receiverPubKey"`
	MessageFeatures   uint8   `json:"messageFeatures"`
	KeyExchangePubKey string  `json:"keyExchangePubKey,omitempty"`
	ViewTag           *uint8  `json:"viewTag,omitempty"`
	MaskedValue       *uint64 `json:"maskedValue,omitempty"`
	MaskedNonce       string  `json:"maskedNonce,omitempty"`
	ExtraData         string  `json:"extraData,omitempty"`
}

func newTransactionView(tx *mw.Transaction) transactionView {
	view := transactionView{
		Inputs:      make([]inputView, 0, len(tx.Body.Inputs)),
		Outputs:     make([]outputView, 0, len(tx.Body.Outputs)),
		KernelCount: tx.Body.KernelCount,
	}
	for _, in := range tx.Body.Inputs {
		view.Inputs = append(view.Inputs, inputView{
			SpentOutputID: hex.EncodeToString(in.OutputID[:]),
		})
	}
	for i := range tx.Body.Outputs {
		out := &tx.Body.Outputs[i]
		ov := outputView{
			Commitment:      hex.EncodeToString(out.Commitment[:]),
			SenderPubKey:    hex.EncodeToString(out.SenderPubKey.SerializeCompressed()),
			ReceiverPubKey:  hex.EncodeToString(out.ReceiverPubKey.SerializeCompressed()),
			MessageFeatures: out.Message.Features,
		}
		if fields := out.Message.StandardFields; fields != nil {
			ov.KeyExchangePubKey = hex.EncodeToString(fields.KeyExchangePubKey.SerializeCompressed())
			viewTag, maskedValue := fields.ViewTag, fields.MaskedValue
			ov.ViewTag = &viewTag
			ov.MaskedValue = &maskedValue
			ov.MaskedNonce = hex.EncodeToString(fields.MaskedNonce[:])
		}
		if len(out.Message.ExtraData) > 0 {
			ov.ExtraData = hex.EncodeToString(out.Message.ExtraData)
		}
		view.Outputs = append(view.Outputs, ov)
	}
	return view
}

func printTransaction(tx *mw.Transaction) error {
	view := newTransactionView(tx)

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Printf("inputs: %d\n", len(view.Inputs))
	for i, in := range view.Inputs {
		fmt.Printf("  %d: spends output %s\n", i, in.SpentOutputID)
	}
	fmt.Printf("outputs: %d\n", len(view.Outputs))
	for i, out := range view.Outputs {
		fmt.Printf("  %d: commitment %s\n", i, out.Commitment)
		fmt.Printf("     receiver %s\n", out.ReceiverPubKey)
		if out.ViewTag != nil {
			fmt.Printf("     view tag 0x%02x, masked value %d\n", *out.ViewTag, *out.MaskedValue)
		}
		if out.ExtraData != "" {
			fmt.Printf("     extra data %s\n", out.ExtraData)
		}
	}
	fmt.Printf("kernels: %d (not retained)\n", view.KernelCount)
	return nil
}

func printReencodedOutputs(tx *mw.Transaction) error {
	buf := &bytes.Buffer{}
	if _, err := mw.EncodeOutputs(buf, tx.Body.Outputs); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(buf.Bytes()))
	return nil
}
