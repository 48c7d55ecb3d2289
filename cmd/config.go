package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3token/internal/config"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var pairs [][2]string
		for _, key := range config.Keys {
			v, err := cfg.Get(key)
			if err != nil {
				return err
			}
			if v == "" {
				v = ui.Meta("(unset)")
			}
			pairs = append(pairs, [2]string{key, v})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Current Configuration", pairs))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a configuration value",
	Long: `Update one configuration key and save it.

Keys: provider, rpc_url, artifact, contract_address, token_decimals,
supported_chains (comma-separated, empty allows all), poll_interval,
transfer_timeout, rate_limit, log_level, wallet_name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
