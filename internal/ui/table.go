package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dkeye/Captions/internal/app/orch"
	"github.com/dkeye/Captions/internal/core"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// RoomsView renders the server's room listing.
func RoomsView(rooms []core.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}

	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []string{string(r.Name), fmt.Sprintf("%d", r.MemberCount)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Room", "Peers").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// SessionsView renders a plain summary of peer sessions, printed when the
// client leaves.
func SessionsView(sessions []orch.SessionInfo) string {
	tw := prettytable.NewWriter()
	tw.SetStyle(prettytable.StyleLight)
	tw.AppendHeader(prettytable.Row{"Peer", "Role", "State", "Captions"})
	for _, s := range sessions {
		channel := "no"
		if s.HasDataChannel {
			channel = "yes"
		}
		tw.AppendRow(prettytable.Row{string(s.Remote), s.Role.String(), s.State.String(), channel})
	}
	tw.AppendFooter(prettytable.Row{"", "", "Total", len(sessions)})
	return tw.Render()
}
