package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onnwee/spacex-launch-tracker/internal/errorreporting"
	"github.com/onnwee/spacex-launch-tracker/internal/export"
	"github.com/onnwee/spacex-launch-tracker/internal/filter"
	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/report"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// showFlags are the root command's data, filter and output options.
type showFlags struct {
	refresh    bool
	clearCache bool

	startDate string
	endDate   string
	rocket    string
	success   string
	site      string

	launches     bool
	successRates bool
	sites        bool
	timeStats    bool
	summary      bool
	markdown     bool

	exportJSON string
	exportCSV  string
	exportYAML string
	exports    []string
}

func (s *showFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&s.refresh, "refresh", false, "Ignore cached responses and fetch fresh data")
	f.BoolVar(&s.clearCache, "clear-cache", false, "Delete every cached response before loading")

	f.StringVar(&s.startDate, "start-date", "", "Only launches on or after this day (YYYY-MM-DD)")
	f.StringVar(&s.endDate, "end-date", "", "Only launches on or before this day (YYYY-MM-DD)")
	f.StringVar(&s.rocket, "rocket", "", "Only launches whose rocket name contains this text")
	f.StringVar(&s.success, "success", "", "Only successful (yes) or failed (no) launches")
	f.StringVar(&s.site, "site", "", "Only launches whose site name contains this text")

	f.BoolVar(&s.launches, "show-launches", false, "List the selected launches")
	f.BoolVar(&s.successRates, "show-success-rates", false, "Show success rates by rocket")
	f.BoolVar(&s.sites, "show-sites", false, "Show launch counts by site")
	f.BoolVar(&s.timeStats, "show-time", false, "Show launch counts by year and month")
	f.BoolVar(&s.summary, "show-summary", false, "Show the launch summary (default when nothing else is requested)")
	f.BoolVar(&s.markdown, "markdown", false, "Render tables as Markdown")

	f.StringVar(&s.exportJSON, "export-json", "", "Write the selected launches to a JSON file")
	f.StringVar(&s.exportCSV, "export-csv", "", "Write the selected launches to a CSV file")
	f.StringVar(&s.exportYAML, "export-yaml", "", "Write the selected launches to a YAML file")
	f.StringArrayVar(&s.exports, "export", nil, "Write the selected launches to FILE, format taken from its extension (.json, .csv, .yaml); repeatable")
}

type exportTarget struct {
	path   string
	format export.Format
}

// targets lists every requested export. A path given to --export whose
// extension is not a known format is an error.
func (s showFlags) targets() ([]exportTarget, error) {
	var out []exportTarget
	for _, e := range []exportTarget{
		{s.exportJSON, export.FormatJSON},
		{s.exportCSV, export.FormatCSV},
		{s.exportYAML, export.FormatYAML},
	} {
		if e.path != "" {
			out = append(out, e)
		}
	}
	for _, path := range s.exports {
		f, err := export.FormatForPath(path)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
		out = append(out, exportTarget{path, f})
	}
	return out, nil
}

func (s showFlags) anyOutput() bool {
	return s.launches || s.successRates || s.sites || s.timeStats || s.summary ||
		s.exportJSON != "" || s.exportCSV != "" || s.exportYAML != "" || len(s.exports) > 0
}

func (a *app) runReport(cmd *cobra.Command, s showFlags) error {
	criteria, err := filter.Parse(s.startDate, s.endDate, s.rocket, s.success, s.site)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	targets, err := s.targets()
	if err != nil {
		return err
	}

	client, err := a.newClient(false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if s.clearCache {
		n, err := client.ClearAll()
		if err != nil {
			logger.Warn("clearing cache failed", "error", err)
		}
		fmt.Fprintf(out, "Cleared %d cached responses.\n", n)
	}

	trk := tracker.New(client)
	records, err := trk.Load(cmd.Context(), s.refresh)
	if err != nil {
		errorreporting.CaptureError(err)
		return fmt.Errorf("load launches: %w", err)
	}
	if trk.Snapshot().Partial {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: rocket or launch site data unavailable; names may be missing.")
	}

	selected := filter.Apply(records, criteria)
	if !criteria.IsZero() {
		fmt.Fprintf(out, "Selected %d of %d launches.\n", len(selected), len(records))
	}

	mode := report.ASCII
	if s.markdown {
		mode = report.Markdown
	}
	p := report.New(out, mode)

	if s.launches {
		p.Launches(selected)
	}
	if s.successRates {
		p.SuccessRates(selected)
	}
	if s.sites {
		p.Sites(selected)
	}
	if s.timeStats {
		p.TimeStats(selected)
	}
	if s.summary || !s.anyOutput() {
		p.Summary(selected)
	}

	for _, e := range targets {
		// An export failure is reported but does not fail the run.
		if err := export.ToFile(e.path, e.format, selected); err != nil {
			logger.Error("export failed", "path", e.path, "format", e.format, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Export to %s failed: %v\n", e.path, err)
			continue
		}
		fmt.Fprintf(out, "Exported %d launches to %s\n", len(selected), e.path)
	}
	return nil
}
