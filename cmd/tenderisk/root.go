package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "tenderisk",
		Short:   "Procurement tender fraud-risk scoring",
		Long:    "tenderisk scores procurement tender tables for fraud risk using rule-based indicators and an unsupervised anomaly ensemble.",
		Version: version,
	}
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newTrainCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
