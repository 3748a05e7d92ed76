package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/chro-finder/internal/store"
)

var fixStoreCmd = &cobra.Command{
	Use:   "fix-store",
	Short: "Repair a corrupted profiles file",
	Long:  "Salvages profiles from a degraded or concatenated profiles file and rewrites it as a clean JSON array. The original is kept as a .bak backup.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewFile(cfg.Store.Dir)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		n, err := st.Normalize(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "normalize profiles")
		}

		fmt.Printf("Recovered %d profiles\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixStoreCmd)
}
