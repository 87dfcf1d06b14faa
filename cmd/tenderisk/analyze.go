package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openprocure/tenderisk/internal/application"
	"github.com/openprocure/tenderisk/internal/config"
	"github.com/openprocure/tenderisk/internal/domain/models"
	domainservice "github.com/openprocure/tenderisk/internal/domain/service"
	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/internal/infrastructure/monitoring"
	"github.com/openprocure/tenderisk/internal/infrastructure/rules"
	"github.com/openprocure/tenderisk/internal/infrastructure/schema"
	"github.com/openprocure/tenderisk/internal/infrastructure/tabular"
	"github.com/openprocure/tenderisk/internal/infrastructure/workingset"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/logger"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		reportPath string
		bundlePath string
		cutoff     int
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a tender CSV and write the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			log := logger.NewNop()
			if !quiet {
				var err error
				log, err = monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "console"})
				if err != nil {
					return err
				}
			}

			in, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer in.Close()

			table, err := tabular.ReadTable(in)
			if err != nil {
				return err
			}

			bundles := anomaly.NewBundleProvider(ctx, bundlePath, log)
			defaults := models.DefaultThresholds()
			store := workingset.NewStore(0, log)
			svc := application.NewAnalysisService(
				schema.NewResolver(log),
				features.NewEngine(log),
				rules.NewScorer(),
				anomaly.NewEnsemble(bundles, log),
				domainservice.NewReconciler(log),
				store,
				nil,
				monitoring.NewMetrics(),
				defaults,
				log,
			)

			var cutoffPtr *int
			if cutoff != constants.DefaultHighRiskCutoff {
				cutoffPtr = &cutoff
			}
			analysis, err := svc.Analyze(ctx, table, cutoffPtr)
			if err != nil {
				return err
			}

			if outputPath != "" {
				out, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := tabular.WriteScored(out, analysis); err != nil {
					return err
				}
			}

			report, err := svc.Report(ctx, analysis.ID)
			if err != nil {
				return err
			}
			if reportPath != "" {
				if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}

			m := &analysis.Metrics
			fmt.Fprintf(cmd.ErrOrStderr(), "scored %d tenders: %d high, %d medium, %d low (%d promoted, model %s)\n",
				m.TotalTenders, m.HighRiskCount, m.MediumRiskCount, m.LowRiskCount,
				m.PromotedCount, analysis.ModelMode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "tender CSV to score (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write scored CSV to this path")
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "write text report to this path instead of stdout")
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "pre-trained model bundle to score with")
	cmd.Flags().IntVar(&cutoff, "high-risk-cutoff", constants.DefaultHighRiskCutoff, "rule score cutoff for the High level")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress pipeline logs")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
