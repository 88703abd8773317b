package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomRow is one line of the relay's room listing.
type RoomRow struct {
	Name      string
	Members   []string
	Initiator string
}

// RoomsTable renders the relay's live rooms.
func RoomsTable(rooms []RoomRow, connections int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("%s Rooms", IconRoom))
	t.AppendHeader(table.Row{"#", "Room", "Members", "Initiator"})

	for i, r := range rooms {
		t.AppendRow(table.Row{i + 1, r.Name, strings.Join(r.Members, ", "), r.Initiator})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d rooms", len(rooms)), fmt.Sprintf("%d connections", connections)})
	return t.Render()
}

// RenderRooms writes the room listing to w.
func RenderRooms(w io.Writer, rooms []RoomRow, connections int) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No active rooms"))
		return
	}
	fmt.Fprintln(w, RoomsTable(rooms, connections))
}

// CallSummary is shown after a call ends.
type CallSummary struct {
	Room     string
	Status   string
	Duration time.Duration
	Relay    string
}

func CallSummaryView(summary CallSummary) string {
	rows := [][]string{
		{"Room", summary.Room},
		{"Status", summary.Status},
		{"Duration", formatDuration(summary.Duration.Seconds())},
		{"Relay", summary.Relay},
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderCallSummary(w io.Writer, summary CallSummary) {
	fmt.Fprintln(w, CallSummaryView(summary))
}

// RoomInfo is the box telling the user how the other side joins.
type RoomInfo struct {
	Room string
}

func NewRoomInfo(room string) *RoomInfo {
	return &RoomInfo{Room: room}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room ready\n\n%s Room:  %s\n%s Join:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(r.Room),
		IconCopy, MutedStyle.Render("assigncall call "+r.Room),
	)
	return InfoBoxStyle.Render(content)
}
