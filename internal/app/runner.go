package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ggonzalez94/solw/internal/cache"
	"github.com/ggonzalez94/solw/internal/chain"
	"github.com/ggonzalez94/solw/internal/config"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution"
	"github.com/ggonzalez94/solw/internal/execution/signer"
	"github.com/ggonzalez94/solw/internal/httpx"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/logging"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/ggonzalez94/solw/internal/out"
	"github.com/ggonzalez94/solw/internal/policy"
	"github.com/ggonzalez94/solw/internal/providers"
	"github.com/ggonzalez94/solw/internal/providers/jupiter"
	"github.com/ggonzalez94/solw/internal/schema"
	"github.com/ggonzalez94/solw/internal/swap"
	"github.com/ggonzalez94/solw/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	// Collaborator overrides. Nil means build from settings.
	rpc    chain.RPC
	quotes swap.QuoteService
	signer signer.Signer
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  os.Stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner        *Runner
	flags         config.GlobalFlags
	settings      config.Settings
	cache         *cache.Store
	actionStore   *execution.Store
	log           *zap.Logger
	closeLog      func() error
	root          *cobra.Command
	lastCommand   string
	lastWarnings  []string
	lastProviders []model.ProviderStatus
	lastPartial   bool

	rpc            chain.RPC
	quoteProviders *providers.Set
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, log: zap.NewNop()}
	root := state.newRootCommand()
	state.root = root
	state.resetCommandDiagnostics()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if err != nil {
		state.logger().Debug("command failed", zap.String("command", state.lastCommand), zap.Error(err))
		state.renderError("", err, state.lastWarnings, state.lastProviders, state.lastPartial)
	}
	state.close()
	if err != nil {
		return clierr.ExitCode(err)
	}
	return 0
}

func (s *runtimeState) close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.actionStore != nil {
		_ = s.actionStore.Close()
	}
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Solana wallet CLI: keys, balances, SOL wrapping and swaps",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path
			access := policy.Policy{Allow: settings.EnableCommands, ReadOnly: settings.ReadOnly}
			if err := access.Check(path, cmd.Annotations[schema.AnnotationMutates] == "true"); err != nil {
				return err
			}

			if s.closeLog == nil {
				log, closeLog, err := logging.New(logging.Options{
					Level:   settings.LogLevel,
					Format:  settings.LogFormat,
					File:    settings.LogFile,
					Verbose: settings.Verbose,
					Stderr:  s.runner.stderr,
				})
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "configure logging", err)
				}
				s.log = log.With(zap.String("command", path))
				s.closeLog = closeLog
			}

			if s.quoteProviders == nil {
				httpClient := httpx.New(settings.Timeout, settings.Retries).
					WithLogger(s.log).
					WithUserAgent(version.UserAgent())
				s.quoteProviders = providers.NewSet(
					jupiter.New(httpClient, settings.JupiterAPIKey).
						WithBaseURL(settings.JupiterBaseURL).
						WithPriorityFee(settings.PriorityFeeLamports),
				)
			}

			if settings.CacheEnabled && shouldOpenCache(path) {
				if err := s.ensureCache(); err != nil {
					return err
				}
			}
			if shouldOpenActionStore(path) {
				if err := s.ensureActionStore(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated, dotted paths allowed)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.Strict, "strict", false, "Fail on partial results")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Provider request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per provider request")
	cmd.PersistentFlags().StringVar(&s.flags.MaxStale, "max-stale", "", "Maximum stale fallback window after TTL expiry")
	cmd.PersistentFlags().BoolVar(&s.flags.NoStale, "no-stale", false, "Reject stale cache entries")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable cache reads and writes")
	cmd.PersistentFlags().BoolVar(&s.flags.ReadOnly, "read-only", false, "Block commands that sign transactions")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.EnvFile, "env-file", "", "Load variables from this dotenv file (default ./.env)")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "RPC endpoint URL or cluster name (mainnet-beta|devnet|testnet|localnet)")
	cmd.PersistentFlags().StringVar(&s.flags.Commitment, "commitment", "", "Commitment level (processed|confirmed|finalized)")
	cmd.PersistentFlags().IntVar(&s.flags.SlippageBps, "slippage-bps", -1, "Swap slippage tolerance in basis points")
	cmd.PersistentFlags().StringVar(&s.flags.PrivateKey, "private-key", "", "Signing key (base58, JSON byte array, or key file path)")
	cmd.PersistentFlags().StringVar(&s.flags.KeyFile, "key-file", "", "Path to a keypair file")
	cmd.PersistentFlags().BoolVar(&s.flags.Verbose, "verbose", false, "Write debug logs to stderr")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newProvidersCommand())
	cmd.AddCommand(s.newTokensCommand())
	cmd.AddCommand(s.newWalletCommand())
	cmd.AddCommand(s.newBalanceCommand())
	cmd.AddCommand(s.newPortfolioCommand())
	cmd.AddCommand(s.newWrapCommand())
	cmd.AddCommand(s.newUnwrapCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newActionsCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = strings.Join(args, " ")
			}
			data, err := schema.Build(s.root, path)
			if err != nil {
				return clierr.Ensure(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, cacheMetaBypass(), nil, false)
		},
	}
	return cmd
}

func (s *runtimeState) newProvidersCommand() *cobra.Command {
	root := &cobra.Command{Use: "providers", Short: "Provider commands"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List quote providers and API key metadata (no keys required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.quoteProviders.Infos(), nil, cacheMetaBypass(), nil, false)
		},
	}
	root.AddCommand(list)
	return root
}

func (s *runtimeState) newTokensCommand() *cobra.Command {
	root := &cobra.Command{Use: "tokens", Short: "Token registry commands"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List known token symbols and mints",
		RunE: func(cmd *cobra.Command, args []string) error {
			known := id.KnownTokens()
			items := make([]model.TokenInfo, 0, len(known))
			for _, t := range known {
				items = append(items, model.TokenInfo{Symbol: t.Symbol, Name: t.Name, Mint: t.Mint, Decimals: int(t.Decimals)})
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, nil, cacheMetaBypass(), nil, false)
		},
	}
	root.AddCommand(list)
	return root
}

type fetchFn func(ctx context.Context) (data any, providerStatus []model.ProviderStatus, warnings []string, partial bool, err error)

func (s *runtimeState) runCachedCommand(commandPath, key string, ttl time.Duration, fetch fetchFn) error {
	s.resetCommandDiagnostics()
	cacheStatus := cacheMetaMiss()
	warnings := []string{}
	var staleData any
	staleAvailable := false
	staleObservedAge := time.Duration(0)
	staleObservedAt := time.Time{}
	staleCacheStatus := cacheMetaMiss()

	if s.settings.CacheEnabled && s.cache != nil {
		cached, err := s.cache.Get(key, s.settings.MaxStale)
		if err == nil && cached.Hit {
			entryStatus := model.CacheStatus{Status: "hit", AgeMS: cached.Age.Milliseconds(), Stale: cached.Stale}
			var data any
			if err := json.Unmarshal(cached.Value, &data); err == nil {
				if !cached.Stale {
					s.captureCommandDiagnostics(warnings, nil, false)
					return s.emitSuccess(commandPath, data, warnings, entryStatus, nil, false)
				}
				staleData = data
				staleAvailable = true
				staleObservedAge = cached.Age
				staleObservedAt = s.runner.now()
				staleCacheStatus = entryStatus
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.Timeout)
	defer cancel()
	data, providerStatus, providerWarnings, partial, err := fetch(ctx)
	warnings = append(warnings, providerWarnings...)
	s.captureCommandDiagnostics(warnings, providerStatus, partial)
	if err != nil {
		if !staleAvailable || !staleFallbackAllowed(err) {
			return err
		}
		currentStaleAge := staleObservedAge
		if !staleObservedAt.IsZero() {
			currentStaleAge += s.runner.now().Sub(staleObservedAt)
		}
		staleCacheStatus.AgeMS = currentStaleAge.Milliseconds()
		if s.settings.NoStale {
			return clierr.Wrap(clierr.CodeStale, "fresh provider fetch failed and stale fallback is disabled (--no-stale)", err)
		}
		if staleExceedsBudget(currentStaleAge, ttl, s.settings.MaxStale) {
			return clierr.Wrap(clierr.CodeStale, "fresh provider fetch failed and cached data exceeded stale budget", err)
		}
		s.logger().Warn("serving stale cache entry", zap.Duration("age", currentStaleAge), zap.Error(err))
		warnings = append(warnings, "provider fetch failed; serving stale data within max-stale budget")
		s.captureCommandDiagnostics(warnings, providerStatus, false)
		return s.emitSuccess(commandPath, staleData, warnings, staleCacheStatus, providerStatus, false)
	}

	if partial && s.settings.Strict {
		s.captureCommandDiagnostics(warnings, providerStatus, true)
		return clierr.New(clierr.CodePartialStrict, "partial results returned in strict mode")
	}

	if s.settings.CacheEnabled && s.cache != nil {
		if payload, err := json.Marshal(data); err == nil {
			if err := s.cache.Set(key, payload, ttl); err != nil {
				s.logger().Debug("cache write failed", zap.Error(err))
			} else {
				cacheStatus = model.CacheStatus{Status: "write", AgeMS: 0, Stale: false}
			}
		}
	}

	s.captureCommandDiagnostics(warnings, providerStatus, partial)
	return s.emitSuccess(commandPath, data, warnings, cacheStatus, providerStatus, partial)
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string, cacheStatus model.CacheStatus, providers []model.ProviderStatus, partial bool) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Providers: providers,
			Cache:     cacheStatus,
			Partial:   partial,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string, providers []model.ProviderStatus, partial bool) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    clierr.Code(code).Name(),
			Family:  string(clierr.Code(code).Family()),
			Message: message,
		},
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Providers: providers,
			Cache:     cacheMetaBypass(),
			Partial:   partial,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

func (s *runtimeState) ensureCache() error {
	if s.cache != nil {
		return nil
	}
	store, err := cache.Open(s.settings.CachePath, s.settings.CacheLockPath)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "open cache", err)
	}
	store.SetClock(s.runner.now)
	// Entries past the stale budget can never be served again.
	if n, err := store.Prune(s.settings.MaxStale); err != nil {
		s.logger().Debug("cache prune failed", zap.Error(err))
	} else if n > 0 {
		s.logger().Debug("pruned cache entries", zap.Int64("count", n))
	}
	s.cache = store
	return nil
}

func (s *runtimeState) ensureActionStore() error {
	if s.actionStore != nil {
		return nil
	}
	store, err := execution.OpenStore(s.settings.ActionStorePath, s.settings.ActionLockPath)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "open action store", err)
	}
	s.actionStore = store
	return nil
}

// cacheKey is prefixed with the command path so a command's entries can be
// dropped together.
func cacheKey(commandPath string, req any) string {
	path := normalizeCommandPath(commandPath)
	buf, _ := json.Marshal(req)
	sum := sha256.Sum256(append([]byte(path+"|"), buf...))
	return path + ":" + hex.EncodeToString(sum[:])
}

func cacheKeyPrefix(commandPath string) string {
	return normalizeCommandPath(commandPath) + ":"
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := strings.ToLower(strings.TrimSpace(part))
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func statusFromErr(err error) string {
	if err == nil {
		return "ok"
	}
	if cErr, ok := clierr.As(err); ok {
		switch cErr.Code {
		case clierr.CodeAuth:
			return "auth_error"
		case clierr.CodeRateLimited:
			return "rate_limited"
		case clierr.CodeUnavailable, clierr.CodeRPCUnavailable:
			return "unavailable"
		default:
			return "error"
		}
	}
	return "error"
}

func cacheMetaBypass() model.CacheStatus {
	return model.CacheStatus{Status: "bypass", AgeMS: 0, Stale: false}
}

func cacheMetaMiss() model.CacheStatus {
	return model.CacheStatus{Status: "miss", AgeMS: 0, Stale: false}
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
		"if any flags in the group",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func staleExceedsBudget(age, ttl, maxStale time.Duration) bool {
	if age <= ttl {
		return false
	}
	if maxStale < 0 {
		return false
	}
	return age > ttl+maxStale
}

func staleFallbackAllowed(err error) bool {
	cErr, ok := clierr.As(err)
	if !ok {
		return false
	}
	return cErr.Code == clierr.CodeUnavailable || cErr.Code == clierr.CodeRateLimited
}

// Only quote reads are cached; balances and anything that signs go to the
// chain every time.
func shouldOpenCache(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "swap quote":
		return true
	default:
		return false
	}
}

func shouldOpenActionStore(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "wrap", "unwrap", "swap run", "actions list", "actions show":
		return true
	default:
		return false
	}
}

func normalizeCommandPath(commandPath string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(commandPath))), " ")
}

func (s *runtimeState) resetCommandDiagnostics() {
	s.lastWarnings = nil
	s.lastProviders = nil
	s.lastPartial = false
}

func (s *runtimeState) captureCommandDiagnostics(warnings []string, providers []model.ProviderStatus, partial bool) {
	if len(warnings) == 0 {
		s.lastWarnings = nil
	} else {
		s.lastWarnings = append([]string(nil), warnings...)
	}
	if len(providers) == 0 {
		s.lastProviders = nil
	} else {
		s.lastProviders = append([]model.ProviderStatus(nil), providers...)
	}
	s.lastPartial = partial
}
