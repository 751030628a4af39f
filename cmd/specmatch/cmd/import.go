package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/SpecMatch/pkg/filter"
	"github.com/ChrisMcGann/SpecMatch/pkg/store/sqlite"
)

type importOptions struct {
	inputFile   string
	inputFormat string
	outputFile  string
	topN        int
	cutoff      float64
	annotations string
}

func newImportCmd(a *app) *cobra.Command {
	var o importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an MSP or SPTXT library into a SQLite database",
		Long: `Import a spectral library in MSP or SPTXT format into a SQLite database
that the search, cluster and summarize commands read directly.

Examples:
  # Import an MSP file with default settings
  specmatch import --in library.msp --out library.db

  # Keep the 150 most intense peaks above 1% of the base peak
  specmatch import --in library.msp --out library.db --top-n 150 --cutoff 1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runImport(cmd, o)
		},
	}

	cmd.Flags().StringVarP(&o.inputFile, "in", "i", "", "Input file path (required)")
	cmd.Flags().StringVarP(&o.inputFormat, "from", "f", "", "Input format: msp, sptxt (auto-detect if not specified)")
	cmd.Flags().StringVarP(&o.outputFile, "out", "o", "", "Output database file (required)")
	cmd.Flags().IntVar(&o.topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	cmd.Flags().Float64Var(&o.cutoff, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	cmd.Flags().StringVar(&o.annotations, "annotations", "", "Comma-separated annotation prefixes to keep")

	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, o importOptions) error {
	if _, err := os.Stat(o.inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", o.inputFile)
	}

	format, err := detectFormat(o.inputFile, o.inputFormat)
	if err != nil {
		return err
	}
	if format == formatSQLite {
		return fmt.Errorf("input is already a SQLite library: %s", o.inputFile)
	}

	filterConfig := a.cfg.FilterConfig()
	if cmd.Flags().Changed("top-n") {
		filterConfig.TopN = o.topN
	}
	if cmd.Flags().Changed("cutoff") {
		filterConfig.IntensityCutoff = o.cutoff
	}
	if o.annotations != "" {
		filterConfig.Annotations = nil
		for _, prefix := range strings.Split(o.annotations, ",") {
			if prefix = strings.TrimSpace(prefix); prefix != "" {
				filterConfig.Annotations = append(filterConfig.Annotations, prefix)
			}
		}
	}
	if err := filterConfig.Validate(); err != nil {
		return err
	}

	a.log.Info("importing library",
		"in", o.inputFile, "out", o.outputFile, "format", format,
		"top_n", filterConfig.TopN, "cutoff", filterConfig.IntensityCutoff)

	inFile, err := os.Open(o.inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader, err := newSpectrumReader(inFile, format)
	if err != nil {
		return err
	}

	writer, err := sqlite.NewWriter(o.outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	ctx := cmd.Context()
	count := 0
	skipped := 0

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		spec := reader.Spectrum()
		spec.SourceFile = o.inputFile

		filter.RemoveZeroIntensityPeaks(spec)

		if err := filterConfig.Apply(spec); err != nil {
			a.log.Warn("failed to filter spectrum", "spectrum", spec.Label(), "err", err)
			skipped++
			continue
		}

		if err := spec.Validate(); err != nil {
			a.log.Warn("invalid spectrum", "spectrum", spec.Label(), "err", err)
			skipped++
			continue
		}

		if err := writer.WriteSpectrum(spec); err != nil {
			return fmt.Errorf("failed to write spectrum %s: %w", spec.Label(), err)
		}

		count++
		if count%1000 == 0 {
			a.log.Debug("progress", "written", count)
		}
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("error reading input file: %w", err)
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported: %d spectra\n", count)
	if skipped > 0 {
		fmt.Fprintf(out, "Skipped: %d spectra (validation errors)\n", skipped)
	}
	fmt.Fprintf(out, "Output: %s\n", o.outputFile)

	return nil
}
