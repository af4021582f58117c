package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venuewatch/venuewatch/internal/control"
	"github.com/venuewatch/venuewatch/internal/eventmanager"
	"github.com/venuewatch/venuewatch/internal/export"
	"github.com/venuewatch/venuewatch/internal/models"
)

var cycleCmd = &cobra.Command{
	Use:     "cycle",
	Short:   "Run one full collection pass over every venue",
	GroupID: "collect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withSocial, _ := cmd.Flags().GetBool("with-social")
		command := control.CmdRunCycleNow
		if withSocial {
			command = control.CmdForceUpdateAllVenues
		}
		return dispatch(cmd.Context(), command, nil)
	},
}

var lightweightCmd = &cobra.Command{
	Use:     "lightweight",
	Short:   "Run one pass over the social channels only",
	GroupID: "collect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdRunLightweightMonitoring, nil)
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <venue name>",
	Short:   "Collect candidates for matching venues without saving them",
	GroupID: "collect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdSearchVenue, control.Params{"name": args[0]})
	},
}

var pendingCmd = &cobra.Command{
	Use:     "pending",
	Short:   "List events awaiting moderation",
	GroupID: "moderate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdGetPendingEvents, nil)
	},
}

var approvedCmd = &cobra.Command{
	Use:     "approved",
	Short:   "List approved events",
	GroupID: "moderate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		params := control.Params{"city": city, "category": category}
		if limit > 0 {
			params["limit"] = fmt.Sprint(limit)
		}
		return dispatch(cmd.Context(), control.CmdGetApprovedEvents, params)
	},
}

var approveCmd = &cobra.Command{
	Use:     "approve <event-id>",
	Short:   "Approve a pending event",
	GroupID: "moderate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdApproveEvent, control.Params{"id": args[0]})
	},
}

var rejectCmd = &cobra.Command{
	Use:     "reject <event-id>",
	Short:   "Reject a pending event",
	GroupID: "moderate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdRejectEvent, control.Params{"id": args[0]})
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show store counts and collector health",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), control.CmdGetStats, nil)
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write a JSONL snapshot of every stored event",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		var buf bytes.Buffer
		count, err := export.WriteJSONL(cmd.Context(), application.Repo, &buf, application.Clock.Now())
		if err != nil {
			return err
		}
		var dest export.Destination = export.WriterDestination{W: os.Stdout}
		if out != "" {
			dest = export.FileDestination{Path: out}
		}
		if err := dest.Write(cmd.Context(), buf.Bytes()); err != nil {
			return err
		}
		if out != "" {
			fmt.Fprintf(os.Stderr, "%s exported %d events to %s\n", success("✓"), count, out)
		}
		return nil
	},
}

func init() {
	cycleCmd.Flags().Bool("with-social", false, "follow the full pass with a social channel pass")

	approvedCmd.Flags().String("city", "", "filter by city")
	approvedCmd.Flags().String("category", "", "filter by category")
	approvedCmd.Flags().Int("limit", 0, "maximum number of events")

	exportCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
}

// dispatch runs a command through the control surface and renders its result.
func dispatch(ctx context.Context, command string, params control.Params) error {
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := application.Surface.Dispatch(ctx, command, params)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(os.Stdout, result)
	}

	switch v := result.(type) {
	case eventmanager.Snapshot:
		printSnapshot(os.Stdout, v)
	case []models.Event:
		printEvents(os.Stdout, v)
	case *models.Event:
		printEvents(os.Stdout, []models.Event{*v})
	case []models.CandidateEvent:
		printCandidates(os.Stdout, v)
	default:
		return printJSON(os.Stdout, v)
	}
	return nil
}
