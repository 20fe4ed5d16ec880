package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
)

// renderStatusTable prints snapshots as a table, sorted by id.
func renderStatusTable(w io.Writer, snaps []snapshot) error {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })

	table := tablewriter.NewWriter(w)
	table.Header("ID", "PID", "Status", "Executable", "Uptime", "Exit")
	for _, s := range snaps {
		pid := fmt.Sprintf("%d", s.PID)
		if s.Synthetic && s.PID < 0 {
			pid = "?"
		}
		uptime := ""
		if !s.StartedAt.IsZero() {
			end := time.Now()
			if s.EndedAt != nil {
				end = *s.EndedAt
			}
			uptime = end.Sub(s.StartedAt).Round(time.Second).String()
		}
		exit := ""
		switch {
		case s.ExitCode != nil:
			exit = fmt.Sprintf("%d", *s.ExitCode)
		case s.Signal != "":
			exit = s.Signal
		}
		table.Append([]string{s.ID, pid, s.Status, s.Executable, uptime, exit})
	}
	table.Render()
	return nil
}
