package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
	"github.com/ChrisMcGann/SpecMatch/pkg/filter"
	"github.com/ChrisMcGann/SpecMatch/pkg/search"
)

type searchOptions struct {
	libraryFile string
	queryFile   string
	ms1Tol      float64
	ms2Tol      float64
	rtTol       float64
	isoTol      float64
	cutoff      float64
	domain      string
	useRT       bool
	ms1Only     bool
	workers     int
	top         int
	format      string
}

func newSearchCmd(a *app) *cobra.Command {
	var o searchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Rank library candidates for each query spectrum",
		Long: `Search every spectrum of the query file against a reference library and
print the best scoring candidates per query.

Examples:
  specmatch search --library library.db --query run01.msp
  specmatch search -l lipids.db -q run01.msp --domain lipid --use-rt --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd, o)
		},
	}

	cmd.Flags().StringVarP(&o.libraryFile, "library", "l", "", "Reference library (.db, .msp or .sptxt, required)")
	cmd.Flags().StringVarP(&o.queryFile, "query", "q", "", "Query spectra (.msp, .sptxt or .db, required)")
	cmd.Flags().Float64Var(&o.ms1Tol, "ms1-tol", 0, "Precursor tolerance in Da")
	cmd.Flags().Float64Var(&o.ms2Tol, "ms2-tol", 0, "Fragment bin half-width in Da")
	cmd.Flags().Float64Var(&o.rtTol, "rt-tol", 0, "Retention time tolerance (negative disables RT scoring)")
	cmd.Flags().Float64Var(&o.isoTol, "iso-tol", 0, "Isotope ratio tolerance (0 disables isotope scoring)")
	cmd.Flags().Float64Var(&o.cutoff, "cutoff", 0, "Minimum total score, 0-100")
	cmd.Flags().StringVar(&o.domain, "domain", "", "Weighting profile: general or lipid")
	cmd.Flags().BoolVar(&o.useRT, "use-rt", false, "Include retention time in the total score")
	cmd.Flags().BoolVar(&o.ms1Only, "ms1-only", false, "Score on precursor, RT and isotopes only")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Concurrent queries (0 = GOMAXPROCS)")
	cmd.Flags().IntVarP(&o.top, "top", "n", 0, "Maximum candidates per query (0 = all)")
	cmd.Flags().StringVar(&o.format, "format", "tsv", "Output format: tsv or json")

	cmd.MarkFlagRequired("library")
	cmd.MarkFlagRequired("query")

	return cmd
}

// applySearchFlags overrides config values with the flags given on the
// command line.
func (a *app) applySearchFlags(cmd *cobra.Command, o searchOptions) {
	s := &a.cfg.Search
	flags := cmd.Flags()

	if flags.Changed("ms1-tol") {
		s.MS1Tolerance = o.ms1Tol
	}
	if flags.Changed("ms2-tol") {
		s.MS2Tolerance = o.ms2Tol
	}
	if flags.Changed("rt-tol") {
		if o.rtTol < 0 {
			s.RTTolerance = nil
		} else {
			rt := o.rtTol
			s.RTTolerance = &rt
		}
	}
	if flags.Changed("iso-tol") {
		s.IsotopeTolerance = o.isoTol
	}
	if flags.Changed("cutoff") {
		s.Cutoff = o.cutoff
	}
	if flags.Changed("domain") {
		s.Domain = o.domain
	}
	if flags.Changed("use-rt") {
		s.UseRT = o.useRT
	}
	if flags.Changed("ms1-only") {
		s.MS1Only = o.ms1Only
	}
	if flags.Changed("workers") {
		s.Workers = o.workers
	}
	if flags.Changed("top") {
		s.Top = o.top
	}
}

func (a *app) runSearch(cmd *cobra.Command, o searchOptions) error {
	if o.format != "tsv" && o.format != "json" {
		return fmt.Errorf("invalid output format '%s', must be tsv or json", o.format)
	}

	a.applySearchFlags(cmd, o)
	params, err := a.cfg.SearchParams()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()

	lib, err := loadLibrary(ctx, o.libraryFile, "")
	if err != nil {
		return err
	}
	a.log.Info("loaded library", "path", o.libraryFile, "spectra", len(lib))

	queries, err := readSpectra(ctx, o.queryFile, "")
	if err != nil {
		return err
	}
	queries = a.prepareQueries(queries)
	a.log.Info("loaded queries", "path", o.queryFile, "spectra", len(queries))

	fn := search.Search
	if a.cfg.Search.MS1Only {
		fn = search.SearchMS1
	}

	results, err := search.SearchAll(ctx, fn, queries, lib, params, a.cfg.Search.Workers)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	hits := 0
	for _, r := range results {
		if len(r) > 0 {
			hits++
		}
	}
	a.log.Info("search finished",
		"queries", len(queries), "with_hits", hits,
		"profile", params.Profile.Name, "elapsed", time.Since(start).Round(time.Millisecond))

	report := buildReport(queries, lib, results, a.cfg.Search.Top)
	if o.format == "json" {
		return writeReportJSON(cmd.OutOrStdout(), report)
	}
	return writeReportTSV(cmd.OutOrStdout(), report)
}

// prepareQueries applies the configured peak filter and drops queries that
// cannot be scored.
func (a *app) prepareQueries(queries []*core.Spectrum) []*core.Spectrum {
	filterConfig := a.cfg.FilterConfig()

	kept := queries[:0]
	for _, q := range queries {
		filter.RemoveZeroIntensityPeaks(q)
		if filterConfig.Enabled() {
			if err := filterConfig.Apply(q); err != nil {
				a.log.Warn("failed to filter query", "query", q.Label(), "err", err)
				continue
			}
		}
		if err := q.Validate(); err != nil {
			a.log.Warn("skipping invalid query", "query", q.Label(), "err", err)
			continue
		}
		kept = append(kept, q)
	}
	return kept
}

type candidate struct {
	Rank       int      `json:"rank"`
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Total      float64  `json:"total"`
	Mass       float64  `json:"mass"`
	MassError  float64  `json:"mass_error_ppm"`
	RT         *float64 `json:"rt,omitempty"`
	Isotope    *float64 `json:"isotope,omitempty"`
	DotProduct float64  `json:"dot_product"`
	ReverseDot float64  `json:"reverse_dot_product"`
	Presence   float64  `json:"presence"`
}

type queryReport struct {
	Query      int         `json:"query"`
	Name       string      `json:"name"`
	Precursor  float64     `json:"precursor_mz"`
	Candidates []candidate `json:"candidates"`
}

func buildReport(queries []*core.Spectrum, lib core.Library, results [][]search.MatchScore, top int) []queryReport {
	byID := make(map[int]*core.Spectrum, len(lib))
	for _, spec := range lib {
		byID[spec.ID] = spec
	}

	report := make([]queryReport, len(queries))
	for i, q := range queries {
		matches := results[i]
		if top > 0 && len(matches) > top {
			matches = matches[:top]
		}

		r := queryReport{
			Query:      q.ID,
			Name:       q.Label(),
			Precursor:  q.PrecursorMZ,
			Candidates: make([]candidate, 0, len(matches)),
		}
		for rank, m := range matches {
			name, massError := "", 0.0
			if ref := byID[m.ID]; ref != nil {
				name = ref.Label()
				massError = core.RoundFloat(core.DaltonToPPM(ref.PrecursorMZ, q.PrecursorMZ-ref.PrecursorMZ), 2)
			}
			r.Candidates = append(r.Candidates, candidate{
				Rank:       rank + 1,
				ID:         m.ID,
				Name:       name,
				Total:      m.Total,
				Mass:       m.Mass,
				MassError:  massError,
				RT:         m.RT,
				Isotope:    m.Isotope,
				DotProduct: m.MSMS.DotProduct,
				ReverseDot: m.MSMS.ReverseDotProduct,
				Presence:   m.MSMS.Presence,
			})
		}
		report[i] = r
	}
	return report
}

func writeReportJSON(w io.Writer, report []queryReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeReportTSV(w io.Writer, report []queryReport) error {
	if _, err := fmt.Fprintln(w, "query\tquery_name\trank\tlibrary_id\tlibrary_name\ttotal\tmass\tppm\trt\tisotope\tdot\treverse_dot\tpresence"); err != nil {
		return err
	}
	for _, r := range report {
		for _, c := range r.Candidates {
			_, err := fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%.4f\t%.4f\t%.2f\t%s\t%s\t%.4f\t%.4f\t%.4f\n",
				r.Query, r.Name, c.Rank, c.ID, c.Name, c.Total, c.Mass, c.MassError,
				optional(c.RT), optional(c.Isotope), c.DotProduct, c.ReverseDot, c.Presence)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.4f", *v)
}
