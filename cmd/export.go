package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type exporter interface {
	Export(ctx context.Context) error
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a snapshot of the vector store to snapshot storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ix, err := openIndex(ctx, currentConfig)
		if err != nil {
			return err
		}
		defer ix.Close()

		exp, ok := ix.Backend().(exporter)
		if !ok {
			return fmt.Errorf("%s store does not support snapshots", currentConfig.VectorStore.Type)
		}
		if err := exp.Export(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d chunks to %s\n", ix.Count(), currentConfig.Snapshot.Key)
		return nil
	},
}
