package config

import "time"

// Defaults written into a fresh config.
const (
	DefaultProvider     = "rpc"
	DefaultRPCURL       = "http://127.0.0.1:8545"
	DefaultDecimals     = uint8(0) // ask the contract
	DefaultPollInterval = 2  // seconds
	DefaultRateLimit    = 10 // requests per second
	DefaultLogLevel     = "info"
	DefaultWalletName   = "default"
)

// DefaultSupportedChains covers mainnet, Sepolia and the usual dev chains
// (Ganache 1337, Hardhat/Anvil 31337). These are eth_chainId values; the
// 5777 Ganache reports is its net_version and never appears here.
var DefaultSupportedChains = []int64{1, 11155111, 1337, 31337}

// Timeouts used by the CLI. The session and token packages add none.
const (
	ConnectTimeout = 2 * time.Minute  // waiting for the wallet to authorize
	ReadTimeout    = 30 * time.Second // one read command
)
