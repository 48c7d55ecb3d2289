package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxWatchRows caps the event log.
const maxWatchRows = 200

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// WatchEventMsg is sent for every wallet session change.
type WatchEventMsg struct {
	At     time.Time
	Kind   string // "accounts" or "chain"
	Detail string
}

// WatchStatusMsg refreshes the status panel after an event.
type WatchStatusMsg struct {
	Account    string
	ChainID    int64
	Balance    string
	Supply     string
	Percentage float64
	Symbol     string
	Fetching   bool
	ErrMsg     string
}

// WatchModel is the Bubble Tea model for the live session view.
type WatchModel struct {
	Rows     []WatchEventMsg
	Status   WatchStatusMsg
	Frame    int
	Quitting bool
}

type watchTickMsg struct{}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m WatchModel) Init() tea.Cmd { return watchSpinTick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		}

	case watchTickMsg:
		m.Frame = (m.Frame + 1) % len(spinFrames)
		return m, watchSpinTick()

	case WatchEventMsg:
		// Latest first.
		m.Rows = append([]WatchEventMsg{msg}, m.Rows...)
		if len(m.Rows) > maxWatchRows {
			m.Rows = m.Rows[:maxWatchRows]
		}

	case WatchStatusMsg:
		m.Status = msg
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	st := m.Status

	account := "not connected"
	if st.Account != "" {
		account = ShortenAddress(st.Account)
	}
	title := fmt.Sprintf("👁  Wallet Session  ·  %s", account)
	if st.ChainID != 0 {
		title += fmt.Sprintf("  ·  %s (%d)", ChainLabel(st.ChainID), st.ChainID)
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case st.ErrMsg != "":
		sb.WriteString(StyleError.Render("✗ "+st.ErrMsg) + "\n\n")
	case st.Fetching:
		sb.WriteString(StyleInfo.Render(spinFrames[m.Frame]+" refreshing balances…") + "\n\n")
	case st.Supply != "":
		sb.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s\n\n",
			StyleDim.Render("balance"), Val(st.Balance+" "+st.Symbol),
			StyleDim.Render("supply"), Val(st.Supply),
			StyleDim.Render("share"), Val(fmt.Sprintf("%.2f%%", st.Percentage))))
	default:
		sb.WriteString(StyleMeta.Render("  waiting for session…") + "\n\n")
	}

	const (
		wTime = 10
		wKind = 10
	)
	sep := StyleMeta.Render(strings.Repeat("─", 64))
	sb.WriteString(padR(StyleDim.Render("TIME"), wTime) + "  " +
		padR(StyleDim.Render("EVENT"), wKind) + "  " +
		StyleDim.Render("DETAIL") + "\n")
	sb.WriteString(sep + "\n")

	if len(m.Rows) == 0 {
		sb.WriteString(StyleMeta.Render("  No changes yet. Switch account or network in your wallet.") + "\n")
	} else {
		for _, row := range m.Rows {
			kind := StyleChain.Render(row.Kind)
			if row.Kind == "accounts" {
				kind = StyleAddress.Render(row.Kind)
			}
			sb.WriteString(padR(StyleMeta.Render(row.At.Format(time.Kitchen)), wTime) + "  " +
				padR(kind, wKind) + "  " + row.Detail + "\n")
		}
		sb.WriteString(sep + "\n")
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  %d change(s)", len(m.Rows))) + "\n")
	}

	sb.WriteString("\n" + StyleMeta.Render("[ q ] quit") + "\n")
	return sb.String()
}

// padR pads a styled string on the right to visible width w.
func padR(s string, w int) string {
	vis := lipgloss.Width(s)
	if vis >= w {
		return s
	}
	return s + strings.Repeat(" ", w-vis)
}
