package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"filippo.io/edwards25519"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution/signer"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/keycodec"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// saveDefault is the --save value when the flag is given without a path.
const saveDefault = "default"

type generatedWallet struct {
	model.WalletInfo
	Secret string `json:"secret,omitempty"`
}

type addressCheck struct {
	Address string `json:"address"`
	Valid   bool   `json:"valid"`
	OnCurve bool   `json:"on_curve"`
}

func (s *runtimeState) newWalletCommand() *cobra.Command {
	root := &cobra.Command{Use: "wallet", Short: "Key generation, import and inspection"}
	root.AddCommand(s.newWalletNewCommand())
	root.AddCommand(s.newWalletImportCommand())
	root.AddCommand(s.newWalletShowCommand())
	root.AddCommand(s.newWalletValidateCommand())
	return root
}

func (s *runtimeState) newWalletNewCommand() *cobra.Command {
	var savePath string
	var showSecret, force bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new keypair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := keycodec.Generate()
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "generate keypair", err)
			}
			data := generatedWallet{WalletInfo: model.WalletInfo{PublicKey: kp.PublicKey().String(), Source: "generated"}}
			path, err := s.writeKeyFile(savePath, kp, force)
			if err != nil {
				return err
			}
			data.KeyFile = path
			if showSecret {
				data.Secret = kp.Base58Secret()
			}
			var warnings []string
			if path == "" && !showSecret {
				warnings = append(warnings, "key was neither saved nor shown; pass --save or --show-secret to keep it")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, warnings, cacheMetaBypass(), nil, false)
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Write the key file to PATH (default path when given without a value)")
	cmd.Flags().Lookup("save").NoOptDefVal = saveDefault
	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "Include the base58 secret key in the output")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key file")
	return cmd
}

func (s *runtimeState) newWalletImportCommand() *cobra.Command {
	var savePath string
	var force bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Decode a key from --private-key, --key-file or stdin",
		Long: "Accepts a base58 secret, a JSON byte array, or a key file path. " +
			"Without --private-key or --key-file the key is read from stdin, prompting without echo on a terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, info, err := s.importKey(cmd)
			if err != nil {
				return err
			}
			path, err := s.writeKeyFile(savePath, kp, force)
			if err != nil {
				return err
			}
			if path != "" {
				info.KeyFile = path
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), info, nil, cacheMetaBypass(), nil, false)
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "Write the key file to PATH (default path when given without a value)")
	cmd.Flags().Lookup("save").NoOptDefVal = saveDefault
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key file")
	return cmd
}

func (s *runtimeState) newWalletShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the public key of the configured signer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			local, origin, err := s.localSigner()
			if err != nil {
				return err
			}
			info := model.WalletInfo{PublicKey: local.PublicKey().String(), Source: origin}
			if origin != "flag" && origin != "env" && origin != "injected" {
				info.Source = "file"
				info.KeyFile = origin
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), info, nil, cacheMetaBypass(), nil, false)
		},
	}
}

func (s *runtimeState) newWalletValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate ADDRESS",
		Short: "Check that ADDRESS is a base58 public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := strings.TrimSpace(args[0])
			check := addressCheck{Address: address}
			if pk, err := id.ParseAddress(address); err == nil {
				check.Valid = true
				_, curveErr := new(edwards25519.Point).SetBytes(pk[:])
				check.OnCurve = curveErr == nil
			}
			var warnings []string
			if check.Valid && !check.OnCurve {
				warnings = append(warnings, "address is off the ed25519 curve (program-derived); no private key can sign for it")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), check, warnings, cacheMetaBypass(), nil, false)
		},
	}
}

// importKey decodes the first key source present. Flags win over stdin.
func (s *runtimeState) importKey(cmd *cobra.Command) (keycodec.Keypair, model.WalletInfo, error) {
	if path := strings.TrimSpace(s.settings.PrivateKeyFile); path != "" && strings.TrimSpace(s.settings.PrivateKey) == "" {
		kp, err := keycodec.DecodeFromPath(path)
		if err != nil {
			return keycodec.Keypair{}, model.WalletInfo{}, err
		}
		return kp, model.WalletInfo{PublicKey: kp.PublicKey().String(), Source: "file", KeyFile: path}, nil
	}

	raw := strings.TrimSpace(s.settings.PrivateKey)
	source := "flag"
	if raw == "" {
		var err error
		raw, err = s.readSecret(cmd)
		if err != nil {
			return keycodec.Keypair{}, model.WalletInfo{}, err
		}
		source = "stdin"
	}
	if raw == "" {
		return keycodec.Keypair{}, model.WalletInfo{}, clierr.New(clierr.CodeUsage, "no key provided: pass --private-key, --key-file or pipe the key on stdin")
	}
	if keycodec.LooksLikePath(raw) {
		kp, err := keycodec.DecodeFromPath(raw)
		if err != nil {
			return keycodec.Keypair{}, model.WalletInfo{}, err
		}
		return kp, model.WalletInfo{PublicKey: kp.PublicKey().String(), Source: "file", KeyFile: raw}, nil
	}
	kp, format, err := keycodec.DecodeFormat(keycodec.FromText(raw))
	if err != nil {
		return keycodec.Keypair{}, model.WalletInfo{}, err
	}
	return kp, model.WalletInfo{PublicKey: kp.PublicKey().String(), Source: source, Format: string(format)}, nil
}

// readSecret prompts without echo on a terminal, otherwise reads all of
// stdin.
func (s *runtimeState) readSecret(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(s.runner.stderr, "Enter secret key: ")
		buf, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(s.runner.stderr)
		if err != nil {
			return "", clierr.Wrap(clierr.CodeUsage, "read secret key", err)
		}
		return strings.TrimSpace(string(buf)), nil
	}
	buf, err := io.ReadAll(in)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUsage, "read secret key from stdin", err)
	}
	return strings.TrimSpace(string(buf)), nil
}

// writeKeyFile saves kp when savePath is set and returns the path written.
func (s *runtimeState) writeKeyFile(savePath string, kp keycodec.Keypair, force bool) (string, error) {
	path := strings.TrimSpace(savePath)
	if path == "" {
		return "", nil
	}
	if path == saveDefault {
		path = signer.DefaultKeyPath()
		if path == "" {
			return "", clierr.New(clierr.CodeUsage, "cannot resolve the default key path; pass --save PATH")
		}
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("key file already exists: %s (use --force to overwrite)", path))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", clierr.Wrap(clierr.CodeInternal, "check key file", err)
		}
	}
	if err := keycodec.Save(keycodec.FileStore{}, path, kp); err != nil {
		return "", err
	}
	return path, nil
}
