package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// AccountRow is one line of an account listing: a stored wallet or a token
// holder.
type AccountRow struct {
	Label   string // wallet name
	Address string
	Balance string  // display units; empty when not read
	Share   float64 // percent of supply, shown with Balance
	Note    string
	Active  bool
}

type accountColumn struct {
	title string
	right bool
	cell  func(AccountRow) string
}

// AccountTable renders rows under a header. Columns no row has data for are
// left out, so a wallet listing and a holder listing share one layout.
func AccountTable(rows []AccountRow) string {
	has := func(f func(AccountRow) bool) bool { return slices.ContainsFunc(rows, f) }

	var cols []accountColumn
	if has(func(r AccountRow) bool { return r.Active }) {
		cols = append(cols, accountColumn{cell: func(r AccountRow) string {
			if r.Active {
				return "●"
			}
			return ""
		}})
	}
	if has(func(r AccountRow) bool { return r.Label != "" }) {
		cols = append(cols, accountColumn{title: "NAME", cell: func(r AccountRow) string { return r.Label }})
	}
	cols = append(cols, accountColumn{title: "ADDRESS", cell: func(r AccountRow) string { return r.Address }})
	if has(func(r AccountRow) bool { return r.Balance != "" }) {
		cols = append(cols,
			accountColumn{title: "BALANCE", right: true, cell: func(r AccountRow) string {
				if r.Balance == "" {
					return "-"
				}
				return r.Balance
			}},
			accountColumn{title: "SHARE", right: true, cell: func(r AccountRow) string {
				if r.Balance == "" {
					return "-"
				}
				return fmt.Sprintf("%.2f%%", r.Share)
			}},
		)
	}
	if has(func(r AccountRow) bool { return r.Note != "" }) {
		cols = append(cols, accountColumn{title: "NOTE", cell: func(r AccountRow) string { return r.Note }})
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.title)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			cells[r][i] = c.cell(row)
			widths[i] = max(widths[i], lipgloss.Width(cells[r][i]))
		}
	}

	line := func(vals []string, style func(col int) lipgloss.Style) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			v := vals[i]
			gap := strings.Repeat(" ", widths[i]-lipgloss.Width(v))
			switch {
			case c.right:
				v = gap + v
			case i < len(cols)-1:
				v += gap
			}
			parts[i] = style(i).Render(v)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}

	var sb strings.Builder
	sb.WriteString(line(titles, func(int) lipgloss.Style { return StyleHeader }))
	sb.WriteString("\n")
	for r := range rows {
		active := rows[r].Active
		sb.WriteString(line(cells[r], func(col int) lipgloss.Style {
			switch {
			case cols[col].title == "" && active:
				return StyleSuccess
			case cols[col].title == "ADDRESS":
				return StyleAddress
			case cols[col].title == "NOTE":
				return StyleError
			default:
				return StyleValue
			}
		}))
		sb.WriteString("\n")
	}
	return sb.String()
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-16s", p[0]+":"))
		val := StyleValue.Render(p[1])
		sb.WriteString("  " + key + " " + val + "\n")
	}
	return StyleBorder.Render(sb.String())
}
