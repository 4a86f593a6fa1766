package keycodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/mr-tron/base58"
)

const (
	base58MinLen = 80
	base58MaxLen = 90
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

type inputKind int

const (
	inputText inputKind = iota
	inputBytes
)

// Input is raw key material: either a structural byte array or text.
type Input struct {
	kind  inputKind
	bytes []byte
	text  string
}

func FromBytes(b []byte) Input {
	return Input{kind: inputBytes, bytes: b}
}

func FromText(s string) Input {
	return Input{kind: inputText, text: s}
}

// Format names a decoding rule.
type Format string

const (
	FormatBytes          Format = "bytes"
	FormatBase58         Format = "base58"
	FormatJSONArray      Format = "json-array"
	FormatBase58Fallback Format = "base58-fallback"
)

type rule struct {
	format Format
	match  func(Input) bool
	decode func(Input) (Keypair, error)
	// terminal is the error code raised when decode fails; zero means the
	// next rule is tried.
	terminal clierr.Code
}

var rules = []rule{
	{
		format:   FormatBytes,
		match:    func(in Input) bool { return in.kind == inputBytes },
		decode:   func(in Input) (Keypair, error) { return NewKeypair(in.bytes) },
		terminal: clierr.CodeInvalidKeyBytes,
	},
	{
		format: FormatBase58,
		match:  func(in Input) bool { return in.kind == inputText && looksLikeBase58Secret(in.text) },
		decode: decodeBase58,
	},
	{
		format:   FormatJSONArray,
		match:    func(in Input) bool { return in.kind == inputText && looksLikeJSONArray(in.text) },
		decode:   decodeJSONArray,
		terminal: clierr.CodeInvalidKeyArray,
	},
	{
		format:   FormatBase58Fallback,
		match:    func(in Input) bool { return in.kind == inputText },
		decode:   decodeBase58,
		terminal: clierr.CodeUnrecognizedKeyFormat,
	},
}

// Rules lists decoding rules in the order they are tried.
func Rules() []Format {
	out := make([]Format, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.format)
	}
	return out
}

// Decode tries each rule in order; the first success wins.
func Decode(in Input) (Keypair, error) {
	kp, _, err := DecodeFormat(in)
	return kp, err
}

// DecodeFormat is Decode that also reports which rule matched.
func DecodeFormat(in Input) (Keypair, Format, error) {
	for _, r := range rules {
		if !r.match(in) {
			continue
		}
		kp, err := r.decode(in)
		if err == nil {
			return kp, r.format, nil
		}
		if r.terminal != 0 {
			return Keypair{}, "", clierr.Wrap(r.terminal, fmt.Sprintf("decode %s key", r.format), err)
		}
	}
	return Keypair{}, "", clierr.New(clierr.CodeUnrecognizedKeyFormat, "unrecognized key format")
}

func decodeBase58(in Input) (Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(in.text))
	if err != nil {
		return Keypair{}, fmt.Errorf("base58: %w", err)
	}
	return NewKeypair(raw)
}

func decodeJSONArray(in Input) (Keypair, error) {
	raw, err := parseByteArray([]byte(in.text))
	if err != nil {
		return Keypair{}, err
	}
	return NewKeypair(raw)
}

func parseByteArray(buf []byte) ([]byte, error) {
	var items []json.Number
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse array: %w", err)
	}
	out := make([]byte, len(items))
	for i, item := range items {
		n, err := item.Int64()
		if err != nil {
			return nil, fmt.Errorf("element %d is not an integer", i)
		}
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("element %d out of byte range: %d", i, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}

func looksLikeBase58Secret(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < base58MinLen || len(s) > base58MaxLen {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func looksLikeJSONArray(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[") && json.Valid([]byte(s))
}
