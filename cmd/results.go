package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/store"
)

var resultsFormat string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print saved CHRO profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.NewFile(cfg.Store.Dir)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		profiles, err := st.ListProfiles(ctx)
		if err != nil {
			return eris.Wrap(err, "list profiles")
		}
		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].Company < profiles[j].Company
		})

		switch resultsFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(profiles)
		case "markdown":
			writeMarkdownTable(os.Stdout, profiles)
			return nil
		default:
			return eris.Errorf("unknown format %q (want json or markdown)", resultsFormat)
		}
	},
}

func writeMarkdownTable(w io.Writer, profiles []model.ReconciledProfile) {
	fmt.Fprintln(w, "| Company | CHRO | LinkedIn | Agreement |")
	fmt.Fprintln(w, "|---------|------|----------|-----------|")
	for _, p := range profiles {
		link := p.ProfileURL
		if link != model.NotAvailable && link != "" {
			link = fmt.Sprintf("[profile](%s)", link)
		}
		fmt.Fprintf(w, "| %s | %s | %s | %.2f |\n",
			escapePipes(p.Company), escapePipes(p.Name), link, p.AgreementScore)
	}
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	resultsCmd.Flags().StringVar(&resultsFormat, "format", "markdown", "output format: json or markdown")
	rootCmd.AddCommand(resultsCmd)
}
