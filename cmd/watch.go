package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/Mohsinsiddi/w3token/internal/session"
	"github.com/Mohsinsiddi/w3token/internal/token"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of account and network changes",
	Long: `Watch the wallet session. Every account or network change is listed
and the token balance is refreshed for the new account or chain.

Controls: q / Esc / Ctrl+C quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, s, done, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		events, cancel := s.Subscribe()
		defer cancel()

		ctx, stop := context.WithCancel(cmd.Context())
		defer stop()

		prog := tea.NewProgram(ui.WatchModel{}, tea.WithAltScreen())
		go func() {
			prog.Send(watchStatus(ctx, client, s))
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					prog.Send(watchEvent(ev))
					prog.Send(ui.WatchStatusMsg{Fetching: true})
					prog.Send(watchStatus(ctx, client, s))
				}
			}
		}()

		_, err = prog.Run()
		return err
	},
}

func watchEvent(ev provider.Event) ui.WatchEventMsg {
	msg := ui.WatchEventMsg{At: ev.At}
	switch ev.Kind {
	case provider.AccountsChanged:
		msg.Kind = "accounts"
		if len(ev.Accounts) == 0 {
			msg.Detail = "wallet locked"
			break
		}
		short := make([]string, len(ev.Accounts))
		for i, a := range ev.Accounts {
			short[i] = ui.ShortenAddress(a.Hex())
		}
		msg.Detail = strings.Join(short, ", ")
	case provider.ChainChanged:
		msg.Kind = "chain"
		msg.Detail = fmt.Sprintf("%s (%d)", ui.ChainLabel(ev.ChainID), ev.ChainID)
	}
	return msg
}

// watchStatus reads the overview for the session's current account. The
// session applies each event before fanning it out, so its state already
// reflects the change being rendered.
func watchStatus(ctx context.Context, client *token.Client, s *session.Manager) ui.WatchStatusMsg {
	var msg ui.WatchStatusMsg
	st := s.State()
	if st.ChainID != nil {
		msg.ChainID = *st.ChainID
	}
	if st.Account == nil {
		msg.ErrMsg = "wallet locked: no account available"
		return msg
	}
	msg.Account = st.Account.Hex()

	ov, err := client.Overview(ctx)
	if err != nil {
		msg.ErrMsg = err.Error()
		return msg
	}
	msg.Balance = token.FormatAmount(ov.Balance, ov.Decimals)
	msg.Supply = token.FormatAmount(ov.Supply, ov.Decimals)
	msg.Percentage = ov.Percentage
	msg.Symbol = metadata(ctx, client).Symbol
	return msg
}
