package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"campus-assistant/internal/helper"
	"campus-assistant/internal/rag"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the sources and rebuild the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ix, err := openIndex(ctx, currentConfig)
		if err != nil {
			return err
		}
		defer ix.Close()

		syncer, err := newSyncer(currentConfig, ix)
		if err != nil {
			return err
		}
		report, err := syncer.Sync(ctx, syncDryRun)
		printReport(cmd, report)
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "fetch and chunk only, do not embed or store")
}

func printReport(cmd *cobra.Command, report *rag.SyncReport) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		helper.PrettyPrint(out, report)
		return
	}
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(out, header("Sections"))
	for _, label := range report.Sections {
		fmt.Fprintf(out, "  %s %s\n", ok("ok"), label)
	}
	for _, label := range report.Empty {
		fmt.Fprintf(out, "  %s %s (no text)\n", warn("empty"), label)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  %s %s: %s\n", bad("failed"), f.Label, f.Reason)
	}
	fmt.Fprintf(out, "%s %d chunks, %d stored in %s", header("Result"), report.Chunks, report.Stored, report.Duration.Round(time.Millisecond))
	if report.DryRun {
		fmt.Fprint(out, warn(" (dry run)"))
	}
	fmt.Fprintln(out)
}
