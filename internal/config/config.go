package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const configFile = "config.json"

// Keys lists the settable config keys in display order.
var Keys = []string{
	"provider", "rpc_url", "artifact", "contract_address", "token_decimals",
	"supported_chains", "poll_interval", "transfer_timeout", "rate_limit",
	"log_level", "wallet_name",
}

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3token.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3token")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// Poll returns the change-poll interval.
func (c *Config) Poll() time.Duration {
	if c.PollInterval <= 0 {
		return time.Duration(DefaultPollInterval) * time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

// TransferDeadline returns the transfer timeout, or 0 for none.
func (c *Config) TransferDeadline() time.Duration {
	if c.TransferTimeout <= 0 {
		return 0
	}
	return time.Duration(c.TransferTimeout) * time.Second
}

// ChainAllowed reports whether id passes the supported-chains gate.
func (c *Config) ChainAllowed(id int64) bool {
	return len(c.SupportedChains) == 0 || slices.Contains(c.SupportedChains, id)
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "provider":
		return c.Provider, nil
	case "rpc_url":
		return c.RPCURL, nil
	case "artifact":
		return c.Artifact, nil
	case "contract_address":
		return c.ContractAddress, nil
	case "token_decimals":
		return strconv.Itoa(int(c.TokenDecimals)), nil
	case "supported_chains":
		ids := make([]string, len(c.SupportedChains))
		for i, id := range c.SupportedChains {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return strings.Join(ids, ","), nil
	case "poll_interval":
		return strconv.Itoa(c.PollInterval), nil
	case "transfer_timeout":
		return strconv.Itoa(c.TransferTimeout), nil
	case "rate_limit":
		return strconv.FormatFloat(c.RateLimit, 'f', -1, 64), nil
	case "log_level":
		return c.LogLevel, nil
	case "wallet_name":
		return c.WalletName, nil
	default:
		return "", unknownKey(key)
	}
}

// Set parses value and assigns it to key. The config is not saved.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "provider":
		if value != "rpc" && value != "keyring" {
			return fmt.Errorf("provider must be rpc or keyring, got %q", value)
		}
		c.Provider = value
	case "rpc_url":
		c.RPCURL = value
	case "artifact":
		c.Artifact = value
	case "contract_address":
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("contract_address %q is not an address", value)
		}
		c.ContractAddress = value
	case "token_decimals":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("token_decimals must be 0-255: %w", err)
		}
		c.TokenDecimals = uint8(n)
	case "supported_chains":
		ids, err := parseChainIDs(value)
		if err != nil {
			return err
		}
		c.SupportedChains = ids
	case "poll_interval":
		n, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.PollInterval = n
	case "transfer_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("transfer_timeout must be a number of seconds >= 0, got %q", value)
		}
		c.TransferTimeout = n
	case "rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("rate_limit must be >= 0, got %q", value)
		}
		c.RateLimit = f
	case "log_level":
		if _, err := ParseLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	case "wallet_name":
		if value == "" {
			return fmt.Errorf("wallet_name cannot be empty")
		}
		c.WalletName = value
	default:
		return unknownKey(key)
	}
	return nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Provider:        DefaultProvider,
		RPCURL:          DefaultRPCURL,
		TokenDecimals:   DefaultDecimals,
		SupportedChains: slices.Clone(DefaultSupportedChains),
		PollInterval:    DefaultPollInterval,
		RateLimit:       DefaultRateLimit,
		LogLevel:        DefaultLogLevel,
		WalletName:      DefaultWalletName,
		configDir:       dir,
	}
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, value)
	}
	return n, nil
}

func parseChainIDs(value string) ([]int64, error) {
	if value == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid chain id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
