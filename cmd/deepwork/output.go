package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	sessiondto "deepwork/internal/modules/session/dto"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSession(cmd *cobra.Command, format string, s sessiondto.SessionOutput) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		return printJSON(w, s)
	}
	_, _ = fmt.Fprintf(w, "id: %s\ntitle: %s\nstatus: %s\nscheduled: %dmin\n", s.ID, s.Title, s.Status, s.ScheduledMinutes)
	if s.Goal != "" {
		_, _ = fmt.Fprintf(w, "goal: %s\n", s.Goal)
	}
	_, _ = fmt.Fprintf(w, "created: %s\n", s.CreatedAt.Format(timeLayout))
	if s.StartTime != nil {
		_, _ = fmt.Fprintf(w, "started: %s\n", s.StartTime.Format(timeLayout))
	}
	_, _ = fmt.Fprintf(w, "pauses: %d (%ds paused)\n", s.PauseCount, s.CumulativePausedSeconds)
	for _, p := range s.PauseLog {
		resumed := "open"
		if p.ResumedAt != nil {
			resumed = p.ResumedAt.Format(timeLayout)
		}
		_, _ = fmt.Fprintf(w, "  - %s -> %s: %s\n", p.PausedAt.Format(timeLayout), resumed, p.Reason)
	}
	if t := s.Timer; t != nil {
		if t.Overtime {
			over := t.ElapsedSeconds - int64(s.ScheduledMinutes)*60
			_, _ = fmt.Fprintf(w, "timer: overtime +%s\n", time.Duration(over)*time.Second)
		} else {
			_, _ = fmt.Fprintf(w, "timer: %s remaining\n", time.Duration(t.RemainingSeconds)*time.Second)
		}
	}
	if s.CompletedAt != nil {
		_, _ = fmt.Fprintf(w, "closed: %s\n", s.CompletedAt.Format(timeLayout))
	}
	if s.ActualDurationMinutes != nil {
		_, _ = fmt.Fprintf(w, "duration: %dmin\n", *s.ActualDurationMinutes)
	}
	return nil
}

func printHistory(cmd *cobra.Command, format string, items []sessiondto.HistoryItem) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		if items == nil {
			items = []sessiondto.HistoryItem{}
		}
		return printJSON(w, items)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "no sessions")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tSCHEDULED\tACTUAL\tPAUSES\tSTARTED\tTITLE")
	for _, item := range items {
		started, actual := "-", "-"
		if item.StartTime != nil {
			started = item.StartTime.Format(timeLayout)
		}
		if item.ActualDurationMinutes != nil {
			actual = fmt.Sprintf("%dmin", *item.ActualDurationMinutes)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%dmin\t%s\t%d\t%s\t%s\n",
			item.ID, item.Status, item.ScheduledMinutes, actual, item.PauseCount, started, item.Title)
	}
	return tw.Flush()
}

func printSweep(cmd *cobra.Command, format string, out sessiondto.SweepOutput) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		return printJSON(w, out)
	}
	_, _ = fmt.Fprintf(w, "swept %d sessions: overdue=%d abandoned=%d failed=%d\n", out.Scanned, out.Overdue, out.Abandoned, out.Failed)
	return nil
}
