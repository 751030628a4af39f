package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

func newValidateCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate input file format and contents",
		Long: `Validate that an input file is properly formatted and contains valid spectral data.

Every spectrum is checked for a positive precursor m/z, finite values and
sorted peaks. The file order of precursor m/z is reported; libraries are
sorted when loaded, so an unsorted file is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spectra, err := readSpectra(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}

			invalid := 0
			for _, spec := range spectra {
				if err := spec.Validate(); err != nil {
					invalid++
					a.log.Warn("invalid spectrum", "spectrum", spec.Label(), "err", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Spectra: %d\n", len(spectra))
			fmt.Fprintf(out, "Invalid: %d\n", invalid)
			if err := core.Library(spectra).Validate(); err != nil {
				fmt.Fprintf(out, "Precursor order: unsorted (%v)\n", err)
			} else {
				fmt.Fprintln(out, "Precursor order: sorted")
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d spectra failed validation", invalid, len(spectra))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "from", "f", "", "Input format: msp, sptxt, sqlite (auto-detect if not specified)")
	return cmd
}
