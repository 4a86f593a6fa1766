package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SOLW_"

type GlobalFlags struct {
	ConfigPath     string
	EnvFile        string
	JSON           bool
	Plain          bool
	Select         string
	ResultsOnly    bool
	EnableCommands string
	Strict         bool
	Timeout        string
	Retries        int
	MaxStale       string
	NoStale        bool
	NoCache        bool
	ReadOnly       bool
	RPCURL         string
	Commitment     string
	SlippageBps    int
	PrivateKey     string
	KeyFile        string
	Verbose        bool
}

type Settings struct {
	OutputMode      string
	SelectFields    []string
	ResultsOnly     bool
	EnableCommands  []string
	Strict          bool
	Timeout         time.Duration
	Retries         int
	MaxStale        time.Duration
	NoStale         bool
	ReadOnly        bool
	CacheEnabled    bool
	CachePath       string
	CacheLockPath   string
	ActionStorePath string
	ActionLockPath  string

	RPCURL              string
	Commitment          string
	SlippageBps         int
	PriorityFeeLamports uint64
	ConfirmTimeout      time.Duration
	PollInterval        time.Duration
	SkipPreflight       bool

	PrivateKey     string
	PrivateKeyFile string

	JupiterAPIKey  string
	JupiterBaseURL string

	LogLevel  string
	LogFormat string
	LogFile   string
	Verbose   bool
}

type fileConfig struct {
	Output   string `yaml:"output"`
	ReadOnly *bool  `yaml:"read_only"`
	Strict   *bool  `yaml:"strict"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	Cache    struct {
		Enabled  *bool  `yaml:"enabled"`
		MaxStale string `yaml:"max_stale"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`
	Execution struct {
		ActionsPath     string `yaml:"actions_path"`
		ActionsLockPath string `yaml:"actions_lock_path"`
	} `yaml:"execution"`
	Network struct {
		RPCURL         string `yaml:"rpc_url"`
		Commitment     string `yaml:"commitment"`
		ConfirmTimeout string `yaml:"confirm_timeout"`
		PollInterval   string `yaml:"poll_interval"`
		SkipPreflight  *bool  `yaml:"skip_preflight"`
	} `yaml:"network"`
	Swap struct {
		SlippageBps         *int    `yaml:"slippage_bps"`
		PriorityFeeLamports *uint64 `yaml:"priority_fee_lamports"`
	} `yaml:"swap"`
	Wallet struct {
		KeyFile string `yaml:"key_file"`
	} `yaml:"wallet"`
	Providers struct {
		Jupiter struct {
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
			BaseURL   string `yaml:"base_url"`
		} `yaml:"jupiter"`
	} `yaml:"providers"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	if err := loadDotEnv(flags.EnvFile); err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.MaxStale < 0 {
		settings.MaxStale = 5 * time.Minute
	}
	if settings.ConfirmTimeout <= 0 {
		settings.ConfirmTimeout = 60 * time.Second
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 2 * time.Second
	}
	if settings.SlippageBps < 0 || settings.SlippageBps > 10_000 {
		return Settings{}, fmt.Errorf("slippage must be between 0 and 10000 bps, got %d", settings.SlippageBps)
	}
	switch settings.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return Settings{}, fmt.Errorf("commitment must be processed, confirmed or finalized, got %q", settings.Commitment)
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	cacheDir := filepath.Dir(cachePath)
	return Settings{
		OutputMode:          "json",
		Timeout:             10 * time.Second,
		Retries:             2,
		MaxStale:            5 * time.Minute,
		CacheEnabled:        true,
		CachePath:           cachePath,
		CacheLockPath:       lockPath,
		ActionStorePath:     filepath.Join(cacheDir, "actions.db"),
		ActionLockPath:      filepath.Join(cacheDir, "actions.lock"),
		RPCURL:              "mainnet-beta",
		Commitment:          "confirmed",
		SlippageBps:         300,
		PriorityFeeLamports: 1000,
		ConfirmTimeout:      60 * time.Second,
		PollInterval:        2 * time.Second,
		LogLevel:            "info",
		LogFormat:           "console",
	}, nil
}

// loadDotEnv exports variables from a dotenv file without overriding
// anything already set. A missing default file is fine.
func loadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	if v := os.Getenv(envPrefix + "CONFIG"); v != "" {
		return v, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "solw", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "solw")
	return filepath.Join(dir, "cache.db"), filepath.Join(dir, "cache.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Strict != nil {
		settings.Strict = *cfg.Strict
	}
	if cfg.ReadOnly != nil {
		settings.ReadOnly = *cfg.ReadOnly
	}
	if err := parseDuration(cfg.Timeout, "config timeout", &settings.Timeout); err != nil {
		return err
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if err := parseDuration(cfg.Cache.MaxStale, "config cache.max_stale", &settings.MaxStale); err != nil {
		return err
	}
	setString(&settings.CachePath, cfg.Cache.Path)
	setString(&settings.CacheLockPath, cfg.Cache.LockPath)
	setString(&settings.ActionStorePath, cfg.Execution.ActionsPath)
	setString(&settings.ActionLockPath, cfg.Execution.ActionsLockPath)

	setString(&settings.RPCURL, cfg.Network.RPCURL)
	if cfg.Network.Commitment != "" {
		settings.Commitment = strings.ToLower(cfg.Network.Commitment)
	}
	if err := parseDuration(cfg.Network.ConfirmTimeout, "config network.confirm_timeout", &settings.ConfirmTimeout); err != nil {
		return err
	}
	if err := parseDuration(cfg.Network.PollInterval, "config network.poll_interval", &settings.PollInterval); err != nil {
		return err
	}
	if cfg.Network.SkipPreflight != nil {
		settings.SkipPreflight = *cfg.Network.SkipPreflight
	}
	if cfg.Swap.SlippageBps != nil {
		settings.SlippageBps = *cfg.Swap.SlippageBps
	}
	if cfg.Swap.PriorityFeeLamports != nil {
		settings.PriorityFeeLamports = *cfg.Swap.PriorityFeeLamports
	}
	setString(&settings.PrivateKeyFile, cfg.Wallet.KeyFile)

	setString(&settings.JupiterAPIKey, cfg.Providers.Jupiter.APIKey)
	if cfg.Providers.Jupiter.APIKeyEnv != "" {
		settings.JupiterAPIKey = os.Getenv(cfg.Providers.Jupiter.APIKeyEnv)
	}
	setString(&settings.JupiterBaseURL, cfg.Providers.Jupiter.BaseURL)

	setString(&settings.LogLevel, cfg.Log.Level)
	setString(&settings.LogFormat, cfg.Log.Format)
	setString(&settings.LogFile, cfg.Log.File)

	return nil
}

func applyEnv(settings *Settings) {
	if v := env("OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	envBool("STRICT", func(b bool) { settings.Strict = b })
	envDuration("TIMEOUT", &settings.Timeout)
	if v := env("RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	envDuration("MAX_STALE", &settings.MaxStale)
	envBool("NO_STALE", func(b bool) { settings.NoStale = b })
	envBool("READ_ONLY", func(b bool) { settings.ReadOnly = b })
	envBool("NO_CACHE", func(b bool) { settings.CacheEnabled = !b })
	setString(&settings.CachePath, env("CACHE_PATH"))
	setString(&settings.CacheLockPath, env("CACHE_LOCK_PATH"))
	setString(&settings.ActionStorePath, env("ACTIONS_PATH"))
	setString(&settings.ActionLockPath, env("ACTIONS_LOCK_PATH"))

	setString(&settings.RPCURL, env("RPC_URL"))
	if v := env("COMMITMENT"); v != "" {
		settings.Commitment = strings.ToLower(v)
	}
	envDuration("CONFIRM_TIMEOUT", &settings.ConfirmTimeout)
	envDuration("POLL_INTERVAL", &settings.PollInterval)
	envBool("SKIP_PREFLIGHT", func(b bool) { settings.SkipPreflight = b })
	if v := env("SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.SlippageBps = n
		}
	}
	if v := env("PRIORITY_FEE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			settings.PriorityFeeLamports = n
		}
	}

	setString(&settings.JupiterAPIKey, env("JUPITER_API_KEY"))
	setString(&settings.JupiterBaseURL, env("JUPITER_BASE_URL"))
	setString(&settings.LogLevel, env("LOG_LEVEL"))
	setString(&settings.LogFormat, env("LOG_FORMAT"))
	setString(&settings.LogFile, env("LOG_FILE"))
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if fields := splitList(flags.Select); len(fields) > 0 {
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly
	if allowed := splitList(flags.EnableCommands); len(allowed) > 0 {
		settings.EnableCommands = allowed
	}

	if flags.Strict {
		settings.Strict = true
	}
	if err := parseDuration(flags.Timeout, "parse --timeout", &settings.Timeout); err != nil {
		return err
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if err := parseDuration(flags.MaxStale, "parse --max-stale", &settings.MaxStale); err != nil {
		return err
	}
	if flags.NoStale {
		settings.NoStale = true
	}
	if flags.ReadOnly {
		settings.ReadOnly = true
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}

	setString(&settings.RPCURL, strings.TrimSpace(flags.RPCURL))
	if v := strings.TrimSpace(flags.Commitment); v != "" {
		settings.Commitment = strings.ToLower(v)
	}
	if flags.SlippageBps >= 0 {
		settings.SlippageBps = flags.SlippageBps
	}
	setString(&settings.PrivateKey, flags.PrivateKey)
	setString(&settings.PrivateKeyFile, flags.KeyFile)
	if flags.Verbose {
		settings.Verbose = true
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func env(name string) string {
	return os.Getenv(envPrefix + name)
}

func envBool(name string, set func(bool)) {
	if v := env(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			set(b)
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := env(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func parseDuration(v, label string, dst *time.Duration) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
