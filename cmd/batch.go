package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/batch"
	"github.com/sells-group/chro-finder/internal/input"
)

var (
	batchCSV   string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Find CHROs for every company in a CSV file",
	Long:  "Processes each company in the CSV's first column. Companies with a saved profile are skipped, so an interrupted batch resumes where it stopped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		companies, err := input.LoadCompaniesCSV(batchCSV)
		if err != nil {
			return eris.Wrap(err, "load companies")
		}
		if batchLimit > 0 && batchLimit < len(companies) {
			companies = companies[:batchLimit]
		}

		e, err := newEnv(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		e.batchCfg.Progress = func(done, total int, message string) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, total, message)
		}

		o := batch.New(e.batchCfg, e.registry, e.store, e.cache, e.engine)
		summary, err := o.Run(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "batch run")
		}

		zap.L().Info("batch finished",
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))

		fmt.Printf("Processed %d companies: %d succeeded, %d skipped, %d failed\n",
			summary.Total, summary.Succeeded, summary.Skipped, summary.Failed)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "CSV file with company names in the first column (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "process at most N companies (0 = all)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}
