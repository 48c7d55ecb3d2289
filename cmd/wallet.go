package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Mohsinsiddi/w3token/internal/ui"
	"github.com/Mohsinsiddi/w3token/internal/wallet"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// openKeystore opens the keychain. Tests replace it with an in-memory ring.
var openKeystore = func(dir string) (*wallet.Keystore, error) {
	return wallet.DefaultKeystore(dir)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the signing key used by the keyring provider",
}

var walletImportCmd = &cobra.Command{
	Use:   "import [name]",
	Short: "Store a private key in the OS keychain",
	Long: `Store a hex private key in the OS keychain under name (default:
wallet_name from config). The key is read from the terminal without echo,
or from stdin when piped.

Use it with: w3token config set provider keyring`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := walletName(args)
		ks, err := openKeystore(cfg.Dir())
		if err != nil {
			return err
		}

		key, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Private key (hex): ")
		if err != nil {
			return err
		}
		addr, err := ks.Import(name, key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q stored: %s", name, ui.Addr(addr.Hex()))))
		if cfg.Provider != "keyring" {
			fmt.Fprintln(out, ui.Hint("Sign with it: w3token config set provider keyring"))
		}
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Delete a stored key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := walletName(args)
		out := cmd.OutOrStdout()
		prompt := ui.StyleError.Render(fmt.Sprintf("⚠ Remove wallet %q from the keychain?", name))
		if !ui.ConfirmFrom(cmd.InOrStdin(), out, prompt) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		ks, err := openKeystore(cfg.Dir())
		if err != nil {
			return err
		}
		if err := ks.Delete(name); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored wallets and their addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore(cfg.Dir())
		if err != nil {
			return err
		}
		names, err := ks.Names()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets stored yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3token wallet import"))
			return nil
		}

		rows := make([]ui.AccountRow, 0, len(names))
		for _, name := range names {
			row := ui.AccountRow{Label: name, Active: name == cfg.WalletName}
			if addr, err := wallet.NewSigner(name, ks).Unlock(); err == nil {
				row.Address = addr.Hex()
			} else {
				row.Address = "unreadable"
			}
			rows = append(rows, row)
		}
		fmt.Fprintln(out, ui.AccountTable(rows))
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) stored", len(names))))
		return nil
	},
}

func walletName(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return cfg.WalletName
}

// readSecret reads one line without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading key: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return "", fmt.Errorf("no private key given")
	}
	return strings.TrimSpace(line), nil
}

func init() {
	walletCmd.AddCommand(walletImportCmd, walletRemoveCmd, walletShowCmd)
}
