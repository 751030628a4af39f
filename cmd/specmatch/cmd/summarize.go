package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	"github.com/ChrisMcGann/SpecMatch/pkg/store/summary"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize spectral library contents",
		Long:  `Print summary statistics about a spectral library including spectrum count, precursor m/z range, peak counts and metadata coverage.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spectra, err := readSpectra(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}

			// file order is kept so the report shows whether it is sorted
			s := summary.Summarize(core.Library(spectra))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(cmd.OutOrStdout(), args[0], s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printSummary(w io.Writer, path string, s summary.Summary) {
	fmt.Fprintf(w, "Library: %s\n", path)
	fmt.Fprintf(w, "Spectra: %d\n", s.Count)
	if s.Count == 0 {
		return
	}

	fmt.Fprintf(w, "Precursor m/z: %.4f - %.4f (median %.4f, mean %.4f)\n",
		s.Precursor.Min, s.Precursor.Max, s.Precursor.Median, s.Precursor.Mean)
	fmt.Fprintf(w, "Peaks per spectrum: %.0f - %.0f (median %.0f, mean %.1f)\n",
		s.Peaks.Min, s.Peaks.Max, s.Peaks.Median, s.Peaks.Mean)
	fmt.Fprintf(w, "Without peaks: %d\n", s.Empty)
	fmt.Fprintf(w, "Single peak: %d\n", s.SinglePeak)
	fmt.Fprintf(w, "With retention time: %d\n", s.WithRT)
	fmt.Fprintf(w, "With isotope ratios: %d\n", s.WithIsotopes)

	if len(s.Classes) > 0 {
		classes := make([]string, 0, len(s.Classes))
		for c := range s.Classes {
			classes = append(classes, c)
		}
		sort.Strings(classes)

		fmt.Fprintln(w, "Compound classes:")
		for _, c := range classes {
			fmt.Fprintf(w, "  %s: %d\n", c, s.Classes[c])
		}
	}
}
