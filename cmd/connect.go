package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the wallet provider",
	Long: `Initialize a wallet session: probe the provider, request account
access and check the network against supported_chains.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connectSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		st := s.State()
		account := ui.Meta("none (wallet locked)")
		if st.Account != nil {
			account = ui.Addr(st.Account.Hex())
		}
		chainStr := "-"
		if st.ChainID != nil {
			chainStr = fmt.Sprintf("%s (%d)", ui.ChainName(ui.ChainLabel(*st.ChainID)), *st.ChainID)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Wallet Session", [][2]string{
			{"Provider", cfg.Provider},
			{"Endpoint", cfg.RPCURL},
			{"Account", account},
			{"Network", chainStr},
		}))
		fmt.Fprintln(out, ui.Success("Connected."))
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the connected account and its ETH balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, done, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		spin := ui.NewSpinner("Resolving account...")
		spin.Start()
		info, err := client.AccountSnapshot(cmd.Context())
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Account", [][2]string{
			{"Address", ui.Addr(ui.ShortenAddress(info.Address.Hex()))},
			{"Full address", ui.Meta(info.Address.Hex())},
			{"Balance", ui.Val(info.Balance + " ETH")},
		}))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <address>",
	Short: "Check whether an address is well-formed",
	Long: `Check an address the same way transfer does before touching the
provider: 0x followed by 40 hex digits, with a valid EIP-55 checksum when
mixed case. Exits non-zero when the address is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := args[0]
		if !provider.IsAddress(addr) {
			return tkerr.Newf(tkerr.ErrInvalidAddress, "cmd.validate", "%q is not a valid address", addr)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success("Valid address"))
		fmt.Fprintln(out, ui.KeyValueBlock("", [][2]string{
			{"Checksum", ui.Addr(provider.Checksum(addr))},
			{"Short", ui.ShortenAddress(provider.Checksum(addr))},
		}))
		return nil
	},
}
