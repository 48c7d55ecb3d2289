package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/w3token/internal/config"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3token/cmd.Version=1.2.3" .
var Version = ui.Version

var (
	cfgDir      string
	cfg         *config.Config
	verbose     bool
	rpcFlag     string
	provFlag    string
	artFlag     string
	addressFlag string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3token",
	Short: "Wallet session and ERC-20 token client",
	Long: `w3token connects to a wallet provider and works with one ERC-20 token.

  Read the connected account, the token supply and your share of it,
  validate recipient addresses and send tokens.

The provider is a JSON-RPC node exposing unlocked accounts (provider "rpc",
e.g. Ganache or Anvil) or a key held in the OS keychain (provider "keyring").
Persist settings with: w3token config set <key> <value>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if rpcFlag != "" {
			cfg.RPCURL = rpcFlag
		}
		if provFlag != "" {
			cfg.Provider = provFlag
		}
		if artFlag != "" {
			cfg.Artifact = artFlag
		}
		if addressFlag != "" {
			cfg.ContractAddress = addressFlag
		}
		return config.SetupLogging(cmd.ErrOrStderr(), cfg.LogLevel, verbose)
	},
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
	}
	return err
}

func init() {
	// W3TOKEN_CONFIG_DIR env var overrides --config flag default.
	if envDir := os.Getenv("W3TOKEN_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3token)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&rpcFlag, "rpc", "", "provider JSON-RPC URL (overrides rpc_url)")
	pf.StringVar(&provFlag, "provider", "", "provider kind: rpc or keyring")
	pf.StringVar(&artFlag, "artifact", "", `token artifact path or "builtin:erc20"`)
	pf.StringVar(&addressFlag, "address", "", "token contract address (overrides the artifact)")

	rootCmd.AddCommand(
		connectCmd,
		accountCmd,
		supplyCmd,
		balanceCmd,
		transferCmd,
		validateCmd,
		watchCmd,
		walletCmd,
		configCmd,
	)
}
