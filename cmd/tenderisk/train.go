package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/internal/infrastructure/schema"
	"github.com/openprocure/tenderisk/internal/infrastructure/tabular"
	"github.com/openprocure/tenderisk/pkg/logger"
)

func newTrainCmd() *cobra.Command {
	var (
		inputPath  string
		bundlePath string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model bundle on a historical tender CSV",
		Long:  "Fits the anomaly detectors on a historical batch and writes the bundle the server scores new uploads with.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			log := logger.NewNop()

			in, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer in.Close()

			table, err := tabular.ReadTable(in)
			if err != nil {
				return err
			}
			records, _, err := schema.NewResolver(log).Resolve(ctx, table)
			if err != nil {
				return err
			}
			vectors, _ := features.NewEngine(log).DeriveAll(ctx, records)

			bundle := anomaly.FitBundle(vectors)
			if err := anomaly.SaveBundle(bundlePath, bundle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "bundle written to %s (%d records, %d trees)\n",
				bundlePath, len(records), bundle.Forest.NumTrees)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "historical tender CSV (required)")
	cmd.Flags().StringVarP(&bundlePath, "bundle", "b", "", "output bundle path (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("bundle")
	return cmd
}
