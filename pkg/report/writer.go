package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/json"
)

// Header is the first row of a CSV report
var Header = []string{"Method-Compression", "Number of Clusters", "Sum of Size (bytes)", "Performance"}

// Undefined is written in place of a savings value that cannot be computed
const Undefined = "undefined"

// Format selects the report encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat parses a report format name
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errors.Newf(errors.ErrorTypeUsage, "unknown report format %q", name)
	}
}

// WriteCSV writes the report as CSV. Naive totals are written when the
// report was aggregated in verbose mode; their performance cell is empty.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{Header}
	for _, r := range rep.Methods {
		rows = append(rows, plainRow(r))
	}
	for _, r := range rep.Baselines {
		rows = append(rows, plainRow(r))
	}
	if rep.Baseline != nil {
		rows = append(rows, scoredRow(*rep.Baseline))
	}
	for _, r := range rep.Compass {
		rows = append(rows, scoredRow(r))
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report")
	}
	return nil
}

// WriteJSON writes the report as indented JSON; undefined savings are null
func WriteJSON(w io.Writer, rep *Report) error {
	if err := json.WriteIndented(w, rep); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report")
	}
	return nil
}

// WriteFile writes the report to path in the given format, replacing any
// existing file.
func WriteFile(path string, rep *Report, format Format) error {
	f, err := os.Create(path) //nolint:gosec // G304: report path is supplied by the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create report").WithDetail("path", path)
	}
	if format == FormatJSON {
		err = WriteJSON(f, rep)
	} else {
		err = WriteCSV(f, rep)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close report").WithDetail("path", path)
	}
	return err
}

func plainRow(r Row) []string {
	return []string{r.Label, strconv.Itoa(r.Clusters), strconv.FormatInt(r.Size, 10), ""}
}

func scoredRow(r Row) []string {
	perf := Undefined
	if r.Savings != nil {
		perf = strconv.FormatFloat(*r.Savings, 'g', -1, 64)
	}
	return []string{r.Label, strconv.Itoa(r.Clusters), strconv.FormatInt(r.Size, 10), perf}
}
