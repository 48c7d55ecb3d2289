package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/token"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var transferYes bool

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Send tokens to an address",
	Long: `Send tokens from the connected account.

The amount is in display units (e.g. 1.5 with 18 decimals sends
1500000000000000000 raw units). The recipient is validated before the
provider is contacted. The command waits for the transaction to be mined;
set transfer_timeout to bound the wait.

Examples:
  w3token transfer 0xf17f52151EbEF6C7334FAD080c5704D77216b732 10
  w3token transfer 0xf17f52151EbEF6C7334FAD080c5704D77216b732 0.5 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, amount := args[0], args[1]
		const op = "cmd.transfer"

		client, s, done, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		if !client.ValidateAddress(to) {
			return tkerr.Newf(tkerr.ErrInvalidAddress, op, "%q is not a valid address", to)
		}
		raw, err := client.ParseAmount(cmd.Context(), amount)
		if err != nil {
			return err
		}
		from, err := s.CurrentAccount(cmd.Context())
		if err != nil {
			return tkerr.Wrap(tkerr.ErrTransfer, op, err)
		}

		meta := metadata(cmd.Context(), client)
		sym := symbolSuffix(meta.Symbol)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Transfer Preview", [][2]string{
			{"From", ui.Addr(from.Hex())},
			{"To", ui.Addr(common.HexToAddress(to).Hex())},
			{"Amount", ui.Val(token.FormatAmount(raw, meta.Decimals) + sym)},
			{"Raw", ui.Meta(raw.String())},
		}))

		if !transferYes && !ui.ConfirmFrom(cmd.InOrStdin(), out, ui.StyleWarning.Render("Send this transfer?")) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		ctx := cmd.Context()
		if d := cfg.TransferDeadline(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		spin := ui.NewSpinner("Waiting for wallet approval...")
		spin.Start()
		res, err := client.Transfer(ctx, to, amount, token.OnState(func(st token.TransferState, hash common.Hash) {
			if st == token.StateSubmitted {
				spin.Update("Submitted " + ui.ShortenAddress(hash.Hex()) + ", waiting to be mined...")
			}
		}))
		spin.Stop()
		if err != nil {
			return err
		}

		pairs := [][2]string{
			{"Tx Hash", ui.Addr(res.Hash.Hex())},
			{"Block", fmt.Sprintf("#%d", res.BlockNumber)},
			{"Gas Used", fmt.Sprintf("%d", res.GasUsed)},
			{"Amount", token.FormatAmount(res.Amount, res.Decimals) + sym},
		}
		if id, ok := s.ChainID(); ok {
			if n, known := chain.LookupNetwork(id); known && n.Explorer != "" {
				pairs = append(pairs, [2]string{"Explorer", ui.Meta(n.TxURL(res.Hash.Hex()))})
			}
		}
		fmt.Fprintln(out, ui.Success("Transfer confirmed."))
		fmt.Fprintln(out, ui.KeyValueBlock("", pairs))
		return nil
	},
}

func init() {
	transferCmd.Flags().BoolVarP(&transferYes, "yes", "y", false, "skip the confirmation prompt")
}
