package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fieldops/missiond/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.New(color.FgHiGreen).Sprint("✓ ")+fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.New(color.FgRed).Sprint("✗ ")+fmt.Sprintf(format, args...))
}

func statusColor(s models.Status) *color.Color {
	switch s {
	case models.StatusUnopened:
		return color.New(color.FgYellow)
	case models.StatusInProgress:
		return color.New(color.FgHiBlue)
	case models.StatusCompleted:
		return color.New(color.FgHiGreen)
	}
	return color.New(color.FgRed)
}

func printMissionTable(w io.Writer, missions []models.Mission) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Date", "Machine", "Status", "Assignee", "Opened By"})
	for _, m := range missions {
		openedBy := ""
		if m.OpenedBy != nil {
			openedBy = m.OpenedBy.Username
		}
		tw.AppendRow(table.Row{
			m.MissionID,
			m.Payload.Date,
			m.Payload.MachineName,
			statusColor(m.Status).Sprint(m.Status),
			m.AssignedTo.Username,
			openedBy,
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", len(missions)})
	tw.Render()
}
