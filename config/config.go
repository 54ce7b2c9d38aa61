package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"jarvault/crypto"
)

// Env var consulted for the admin bearer token so the secret never has to
// live in the config file.
const rpcTokenEnv = "JARVAULT_RPC_TOKEN"

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	GenesisFile        string `toml:"GenesisFile"`
	ContractAddress    string `toml:"ContractAddress"`
	RPCAuthToken       string `toml:"RPCAuthToken"`
	RateLimitPerMinute int    `toml:"RateLimitPerMinute"`
	// ScorePointBps converts one activity score point into APY basis points
	// of one hundredth, i.e. the default 1 means 0.01% per point.
	ScorePointBps uint64 `toml:"ScorePointBps"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet. The admin token may be supplied through the environment, which
// takes precedence over the file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(cfg, path)
	if token := strings.TrimSpace(os.Getenv(rpcTokenEnv)); token != "" {
		cfg.RPCAuthToken = token
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, path string) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(path), "jarvault-data")
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.ScorePointBps == 0 {
		cfg.ScorePointBps = 1
	}
}

// Validate checks the invariants the daemon relies on at startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RateLimitPerMinute must not be negative")
	}
	if trimmed := strings.TrimSpace(cfg.ContractAddress); trimmed != "" {
		if _, err := crypto.DecodeAddress(trimmed); err != nil {
			return fmt.Errorf("config: ContractAddress: %w", err)
		}
	}
	return nil
}

// Contract resolves the module's own address. An unset value derives a stable
// placeholder from a zeroed key so local setups work out of the box.
func (c *Config) Contract() (crypto.Address, error) {
	trimmed := strings.TrimSpace(c.ContractAddress)
	if trimmed == "" {
		return crypto.NewAddress(crypto.JarPrefix, make([]byte, 20)), nil
	}
	return crypto.DecodeAddress(trimmed)
}

// createDefault writes and returns a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:         ":8080",
		DataDir:            filepath.Join(filepath.Dir(path), "jarvault-data"),
		GenesisFile:        "",
		RateLimitPerMinute: 600,
		ScorePointBps:      1,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
