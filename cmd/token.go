package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/token"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var supplyCmd = &cobra.Command{
	Use:   "supply",
	Short: "Show the token's total supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, done, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		spin := ui.NewSpinner("Reading total supply...")
		spin.Start()
		supply, err := client.TotalSupply(cmd.Context())
		spin.Stop()
		if err != nil {
			return err
		}
		meta := metadata(cmd.Context(), client)

		pairs := [][2]string{
			{"Supply", ui.Val(token.FormatAmount(supply, meta.Decimals) + symbolSuffix(meta.Symbol))},
			{"Raw", ui.Meta(supply.String())},
		}
		if meta.Name != "" {
			pairs = append([][2]string{{"Token", meta.Name}}, pairs...)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Total Supply", pairs))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your token balance and share of supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, done, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		spin := ui.NewSpinner("Reading token balance...")
		spin.Start()
		ov, err := client.Overview(cmd.Context())
		spin.Stop()
		if err != nil {
			return err
		}
		meta := metadata(cmd.Context(), client)
		sym := symbolSuffix(meta.Symbol)

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Token Balance", [][2]string{
			{"Account", ui.Addr(ui.ShortenAddress(ov.Account.Hex()))},
			{"Balance", ui.Val(token.FormatAmount(ov.Balance, ov.Decimals) + sym)},
			{"Supply", token.FormatAmount(ov.Supply, ov.Decimals) + sym},
			{"Share", ui.Val(fmt.Sprintf("%.2f%%", ov.Percentage))},
		}))
		return nil
	},
}

// metadata is best effort: a token without name or symbol still renders.
func metadata(ctx context.Context, client *token.Client) *token.Metadata {
	meta, err := client.Metadata(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("token metadata unavailable")
		dec, derr := client.Decimals(ctx)
		if derr != nil {
			dec = chain.EtherDecimals
		}
		return &token.Metadata{Decimals: dec}
	}
	return meta
}

func symbolSuffix(sym string) string {
	if sym == "" {
		return ""
	}
	return " " + sym
}
