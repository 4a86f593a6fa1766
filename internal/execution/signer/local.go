package signer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/keycodec"
)

const (
	EnvPrivateKey     = "SOLW_PRIVATE_KEY"
	EnvPrivateKeyFile = "SOLW_PRIVATE_KEY_FILE"

	KeySourceAuto = "auto"
	KeySourceEnv  = "env"
	KeySourceFile = "file"

	defaultPrivateKeyRelativePath = "solw/id.json"
	defaultPrivateKeyHintPath     = "~/.config/solw/id.json"
)

// LocalSigner signs with a keypair loaded from the environment or disk.
type LocalSigner struct {
	keypair keycodec.Keypair
	origin  string
}

func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.keypair.PublicKey()
}

func (s *LocalSigner) Sign(message []byte) (solana.Signature, error) {
	if s == nil || s.keypair.IsZero() {
		return solana.Signature{}, clierr.New(clierr.CodeSigner, "local signer is not initialized")
	}
	return s.keypair.Sign(message)
}

func (s *LocalSigner) Keypair() keycodec.Keypair {
	return s.keypair
}

// Origin describes where the key came from: "flag", "env", or a file path.
func (s *LocalSigner) Origin() string {
	return s.origin
}

// NewLocalSignerFromInputs resolves a key with precedence --private-key,
// then --key-file, then the environment, then the default key file. source
// narrows which of env/file are considered.
func NewLocalSignerFromInputs(source, privateKeyOverride, keyFileOverride string) (*LocalSigner, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = KeySourceAuto
	}
	privateKey := strings.TrimSpace(os.Getenv(EnvPrivateKey))
	privateKeyFile := strings.TrimSpace(os.Getenv(EnvPrivateKeyFile))
	if privateKeyFile == "" {
		privateKeyFile = discoverDefaultPrivateKeyFile()
	}

	switch source {
	case KeySourceAuto:
	case KeySourceEnv:
		privateKeyFile = ""
	case KeySourceFile:
		privateKey = ""
	default:
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported key source %q (expected %s|%s|%s)", source, KeySourceAuto, KeySourceEnv, KeySourceFile))
	}

	if v := strings.TrimSpace(keyFileOverride); v != "" {
		privateKey = ""
		privateKeyFile = v
	}
	if v := strings.TrimSpace(privateKeyOverride); v != "" {
		kp, err := decodeRawInput(v)
		if err != nil {
			return nil, err
		}
		return &LocalSigner{keypair: kp, origin: "flag"}, nil
	}

	if privateKey != "" {
		kp, err := decodeRawInput(privateKey)
		if err != nil {
			return nil, err
		}
		return &LocalSigner{keypair: kp, origin: "env"}, nil
	}
	if privateKeyFile != "" {
		kp, err := keycodec.DecodeFromPath(privateKeyFile)
		if err != nil {
			return nil, err
		}
		return &LocalSigner{keypair: kp, origin: privateKeyFile}, nil
	}
	return nil, clierr.New(clierr.CodeSigner, fmt.Sprintf(
		"missing signing key: pass --private-key, set %s or %s, or save a key at %s",
		EnvPrivateKey, EnvPrivateKeyFile, defaultPrivateKeyHintPath,
	))
}

// decodeRawInput treats path-looking input as a key file.
func decodeRawInput(raw string) (keycodec.Keypair, error) {
	if keycodec.LooksLikePath(raw) {
		return keycodec.DecodeFromPath(expandHome(raw))
	}
	return keycodec.Decode(keycodec.FromText(raw))
}

// DefaultKeyPath is where `wallet new --save` writes when no path is given.
func DefaultKeyPath() string {
	return defaultPrivateKeyPath()
}

func defaultPrivateKeyPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, defaultPrivateKeyRelativePath)
}

func discoverDefaultPrivateKeyFile() string {
	path := defaultPrivateKeyPath()
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
