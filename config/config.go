package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress     string            `toml:"ListenAddress"`
	DataDir           string            `toml:"DataDir"`
	Environment       string            `toml:"Environment"`
	LogFile           string            `toml:"LogFile"`
	Owner             string            `toml:"Owner"`
	FeeBps            uint32            `toml:"FeeBps"`
	FeeRecipient      string            `toml:"FeeRecipient"`
	Resolver          string            `toml:"Resolver"`
	DisputeWindowSecs uint64            `toml:"DisputeWindowSecs"`
	Registries        []string          `toml:"Registries"`
	GenesisAccounts   map[string]string `toml:"GenesisAccounts"`
}

// Load loads the configuration from the given path, writing a commented
// default file when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts of the configuration the daemon cannot run
// without.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("config: ListenAddress is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: DataDir is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("config: Owner address is required")
	}
	if c.FeeBps > 1_000 {
		return fmt.Errorf("config: FeeBps %d exceeds the 10%% cap", c.FeeBps)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: "127.0.0.1:8645",
		DataDir:       "./data",
		Environment:   "dev",
		FeeBps:        250,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, fmt.Errorf("config: wrote default config to %s; set Owner and restart", path)
}
