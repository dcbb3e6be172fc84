// Package export serializes launch records to JSON, CSV and YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/onnwee/spacex-launch-tracker/internal/spacex"
	"github.com/onnwee/spacex-launch-tracker/internal/tracker"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, csv, yaml and yml. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("format must be json, csv or yaml, got %q", s)
	}
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"id", "name", "date_utc", "success", "rocket_name",
	"launchpad_name", "flight_number", "upcoming", "details",
}

// row is the document shape for JSON and YAML exports.
type row struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	DateUTC       string         `json:"date_utc" yaml:"date_utc"`
	DateUnix      int64          `json:"date_unix" yaml:"date_unix"`
	Success       spacex.Outcome `json:"success" yaml:"success"`
	RocketID      string         `json:"rocket_id" yaml:"rocket_id"`
	RocketName    string         `json:"rocket_name" yaml:"rocket_name"`
	LaunchpadID   string         `json:"launchpad_id" yaml:"launchpad_id"`
	LaunchpadName string         `json:"launchpad_name" yaml:"launchpad_name"`
	FlightNumber  int            `json:"flight_number" yaml:"flight_number"`
	Upcoming      bool           `json:"upcoming" yaml:"upcoming"`
	Details       string         `json:"details" yaml:"details"`
}

func toRows(records []tracker.LaunchRecord) []row {
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = row{
			ID:            r.ID,
			Name:          r.Name,
			DateUTC:       r.Date.UTC().Format(time.RFC3339),
			DateUnix:      r.DateUnix,
			Success:       r.Success,
			RocketID:      r.RocketID,
			RocketName:    r.RocketName,
			LaunchpadID:   r.LaunchpadID,
			LaunchpadName: r.LaunchSite,
			FlightNumber:  r.FlightNumber,
			Upcoming:      r.Upcoming,
			Details:       r.Details,
		}
	}
	return rows
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []tracker.LaunchRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toRows(records)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []tracker.LaunchRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toRows(records)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// WriteCSV writes a header and one line per record. Outcomes are Yes, No
// or Unknown.
func WriteCSV(w io.Writer, records []tracker.LaunchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		record := []string{
			r.ID,
			r.Name,
			r.Date.UTC().Format(time.RFC3339),
			yesNo(r.Success),
			r.RocketName,
			r.LaunchSite,
			strconv.Itoa(r.FlightNumber),
			boolYesNo(r.Upcoming),
			r.Details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format Format, records []tracker.LaunchRecord) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ToFile writes records to path. The file is written next to its final
// location and renamed into place, so a failed export leaves no partial file.
func ToFile(path string, format Format, records []tracker.LaunchRecord) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, format, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export file: %w", err)
	}
	return nil
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func yesNo(o spacex.Outcome) string {
	switch o {
	case spacex.OutcomeSuccess:
		return "Yes"
	case spacex.OutcomeFailure:
		return "No"
	default:
		return "Unknown"
	}
}

func boolYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
