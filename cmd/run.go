package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/batch"
)

var runCompany string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Find the CHRO of a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx, cfg, func(fraction float64, message string) {
			fmt.Fprintf(os.Stderr, "  [%3.0f%%] %s\n", fraction*100, message)
		})
		if err != nil {
			return err
		}
		defer e.Close()

		o := batch.New(e.batchCfg, e.registry, e.store, e.cache, e.engine)
		summary, err := o.Run(ctx, []string{runCompany})
		if err != nil {
			return eris.Wrap(err, "run")
		}
		if summary.Failed > 0 {
			// The profile still exists in memory; print it so the result
			// is not lost, then fail so the exit code reflects the state.
			for _, p := range summary.Unpersisted {
				zap.L().Warn("profile was not persisted",
					zap.String("company", p.Company),
					zap.String("name", p.Name))
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(p)
			}
			return eris.Errorf("profile for %s was not persisted", runCompany)
		}

		profile, err := e.store.LoadProfile(ctx, runCompany)
		if err != nil {
			return eris.Wrap(err, "load profile")
		}
		if profile == nil {
			return eris.Errorf("no profile saved for %s", runCompany)
		}

		zap.L().Info("discovery complete",
			zap.String("company", profile.Company),
			zap.String("name", profile.Name),
			zap.Float64("agreement", profile.AgreementScore))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	runCmd.Flags().StringVar(&runCompany, "company", "", "company name (required)")
	_ = runCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(runCmd)
}
