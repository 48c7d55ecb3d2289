package config

// Config holds all w3token configuration.
type Config struct {
	Provider        string  `json:"provider"`                   // "rpc" | "keyring"
	RPCURL          string  `json:"rpc_url"`                    // empty means no provider
	Artifact        string  `json:"artifact"`                   // artifact path, "builtin:<id>" or empty for ERC-20
	ContractAddress string  `json:"contract_address,omitempty"` // overrides the artifact's deployments
	TokenDecimals   uint8   `json:"token_decimals"`             // 0 reads decimals() from the contract
	SupportedChains []int64 `json:"supported_chains"` // empty allows every chain
	PollInterval    int     `json:"poll_interval"`    // seconds
	TransferTimeout int     `json:"transfer_timeout"` // seconds, 0 waits as long as it takes
	RateLimit       float64 `json:"rate_limit"`       // provider requests per second, 0 = unlimited
	LogLevel        string  `json:"log_level"`        // zerolog level name
	WalletName      string  `json:"wallet_name"`      // keyring entry used by the keyring provider

	// internal: config dir path used for Save()
	configDir string
}
