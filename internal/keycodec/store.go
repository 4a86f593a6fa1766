package keycodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
)

// KeyStore reads and writes key files.
type KeyStore interface {
	ReadKeyFile(path string) ([]byte, error)
	WriteKeyFile(path string, data []byte) error
}

// FileStore is the local filesystem KeyStore.
type FileStore struct{}

func (FileStore) ReadKeyFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteKeyFile writes owner-only, creating parent directories.
func (FileStore) WriteKeyFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// DecodeFromPath reads a key file from the local filesystem.
func DecodeFromPath(path string) (Keypair, error) {
	return DecodeFromStore(FileStore{}, path)
}

// DecodeFromStore reads path through store. The file holds JSON: either the
// Solana CLI byte array or a string containing any text format Decode accepts.
func DecodeFromStore(store KeyStore, path string) (Keypair, error) {
	buf, err := store.ReadKeyFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Keypair{}, clierr.Wrap(clierr.CodeKeyFileNotFound, fmt.Sprintf("key file not found: %s", path), err)
		}
		return Keypair{}, clierr.Wrap(clierr.CodeSigner, "read key file", err)
	}

	var content any
	if err := json.Unmarshal(buf, &content); err != nil {
		return Keypair{}, clierr.Wrap(clierr.CodeUnrecognizedKeyFormat, "key file is not valid JSON", err)
	}
	switch v := content.(type) {
	case []any:
		raw, err := parseByteArray(buf)
		if err != nil {
			return Keypair{}, clierr.Wrap(clierr.CodeInvalidKeyArray, "decode key file array", err)
		}
		return Decode(FromBytes(raw))
	case string:
		return Decode(FromText(v))
	default:
		return Keypair{}, clierr.New(clierr.CodeUnrecognizedKeyFormat, "key file must hold a byte array or a string")
	}
}

// MarshalKeyFile renders the Solana CLI keypair file form, a JSON array of
// the 64 secret bytes.
func MarshalKeyFile(k Keypair) ([]byte, error) {
	if k.IsZero() {
		return nil, fmt.Errorf("keypair is not initialized")
	}
	ints := make([]int, len(k.secret))
	for i, b := range k.secret {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// Save writes k to path through store.
func Save(store KeyStore, path string, k Keypair) error {
	buf, err := MarshalKeyFile(k)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "encode key file", err)
	}
	if err := store.WriteKeyFile(path, buf); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "write key file", err)
	}
	return nil
}

// LooksLikePath reports whether raw key input names a file instead of
// holding key material.
func LooksLikePath(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(input), ".json") || strings.ContainsAny(input, `/\`)
}
