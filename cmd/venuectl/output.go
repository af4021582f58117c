package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/venuewatch/venuewatch/internal/eventmanager"
	"github.com/venuewatch/venuewatch/internal/models"
)

// quietLevel hides per-venue collection logs unless --verbose is set.
const quietLevel = slog.LevelWarn

var (
	accent  = color.New(color.FgCyan, color.Bold).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
)

func init() {
	color.NoColor = !shouldUseColor()
}

// shouldUseColor honours NO_COLOR and CLICOLOR_FORCE, then falls back to TTY
// detection on stdout.
func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusLabel(s models.EventStatus) string {
	switch s {
	case models.EventStatusApproved:
		return success(string(s))
	case models.EventStatusRejected:
		return failure(string(s))
	default:
		return warning(string(s))
	}
}

func printEvents(w io.Writer, events []models.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, muted("no events"))
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %s %s  %s\n", muted(e.ID), e.Date, e.Time, accent(e.Title))
		fmt.Fprintf(w, "    %s, %s  [%s]  %s\n", e.VenueName, e.City, e.Source, statusLabel(e.Status))
	}
	fmt.Fprintf(w, "\n%d event(s)\n", len(events))
}

func printCandidates(w io.Writer, candidates []models.CandidateEvent) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, muted("no candidates"))
		return
	}
	for _, c := range candidates {
		fmt.Fprintf(w, "%s %s  %s\n", c.Date, c.Time, accent(c.Title))
		fmt.Fprintf(w, "    %s, %s  [%s]  %s\n", c.VenueName, c.City, c.Source, muted(c.SourceURL))
	}
	fmt.Fprintf(w, "\n%d candidate(s)\n", len(candidates))
}

func printSnapshot(w io.Writer, s eventmanager.Snapshot) {
	fmt.Fprintln(w, accent("Events"))
	fmt.Fprintf(w, "  Total:     %d\n", s.TotalEvents)
	fmt.Fprintf(w, "  Pending:   %s\n", warning(s.PendingEvents))
	fmt.Fprintf(w, "  Approved:  %s\n", success(s.ApprovedEvents))
	fmt.Fprintf(w, "  Rejected:  %s\n", failure(s.RejectedEvents))
	printCounts(w, "By source", s.BySource)
	printCounts(w, "By city", s.ByCity)

	fmt.Fprintln(w, accent("Automation"))
	fmt.Fprintf(w, "  Status:    %s\n", s.SystemStatus)
	fmt.Fprintf(w, "  Frequency: %s\n", s.UpdateFrequency)
	fmt.Fprintf(w, "  Venues:    %d\n", s.MonitoredVenues)
	if s.LastUpdate != nil {
		fmt.Fprintf(w, "  Last run:  %s\n", s.LastUpdate.Format("2006-01-02 15:04:05"))
	}

	if len(s.Collectors) > 0 {
		fmt.Fprintln(w, accent("Collectors"))
		for _, c := range s.Collectors {
			state := success("ok")
			if c.LastError != "" {
				state = failure(c.LastError)
			}
			fmt.Fprintf(w, "  %-10s %s\n", c.Channel, state)
		}
	}
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-16s %d\n", k, counts[k])
	}
}
