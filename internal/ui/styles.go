package ui

import (
	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // confirmed
	ColorWarning   = lipgloss.Color("#FFB800") // pending
	ColorError     = lipgloss.Color("#FF4444") // rejected
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // amounts
	ColorMeta      = lipgloss.Color("#555555") // timestamps, metadata
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorChain     = lipgloss.Color("#9B5DE5")
	ColorHighlight = lipgloss.Color("#F15BB5") // headers
	ColorInfo      = lipgloss.Color("#4CC9F0") // progress
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Version is the CLI version shown in the banner.
const Version = "0.3.0"

// Banner returns the header printed by the root command.
func Banner() string {
	art := `
  ┬ ┬┌─┐┌┬┐┌─┐┬┌─┌─┐┌┐┌
  │││ ─┤ │ │ │├┴┐├┤ │││
  └┴┘└─┘ ┴ └─┘┴ ┴└─┘┘└┘`

	tagline := StyleMeta.Render("  ERC-20 wallet session  ⚡  v" + Version)
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a progress message.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggested next step.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain label.
func ChainName(c string) string { return StyleChain.Render(c) }

// ShortenAddress keeps the first 6 and last 4 characters: 0xABCD...EF12.
// Strings shorter than 10 characters are returned unchanged.
func ShortenAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// ChainLabel names a chain id, falling back to "chain" for unknown ids.
func ChainLabel(id int64) string {
	if n, ok := chain.LookupNetwork(id); ok {
		return n.Name
	}
	return "chain"
}
