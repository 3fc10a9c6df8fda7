package benchlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Diagnostic describes a skipped row
type Diagnostic struct {
	Origin string `json:"origin"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// String formats the diagnostic as origin:line: reason
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.Origin, d.Line, d.Reason)
}

// Err returns the diagnostic as a malformed-record error
func (d Diagnostic) Err() error {
	return errors.New(errors.ErrorTypeMalformedRecord, d.Reason).
		WithDetail("origin", d.Origin).
		WithDetail("line", d.Line)
}

// Read parses a benchmark log. Malformed rows are skipped and reported as
// diagnostics; only an unreadable stream is an error.
func Read(r io.Reader, origin string) ([]Record, []Diagnostic, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var (
		records []Record
		diags   []Diagnostic
	)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				diags = append(diags, Diagnostic{Origin: origin, Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to read benchmark log").
				WithDetail("origin", origin)
		}

		line, _ := reader.FieldPos(0)
		rec, reason := parse(fields)
		if reason != "" {
			diags = append(diags, Diagnostic{Origin: origin, Line: line, Reason: reason})
			continue
		}
		rec.Origin = origin
		records = append(records, rec)
	}
	return records, diags, nil
}

// ReadFiles reads several logs in order. A missing file is an input error.
func ReadFiles(paths []string) ([]Record, []Diagnostic, error) {
	var (
		records []Record
		diags   []Diagnostic
	)
	for _, p := range paths {
		f, err := os.Open(p) //nolint:gosec // G304: log paths are supplied by the operator
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to open benchmark log").
				WithDetail("path", p)
		}
		recs, ds, err := Read(f, p)
		_ = f.Close()
		if err != nil {
			return nil, nil, err
		}
		records = append(records, recs...)
		diags = append(diags, ds...)
	}
	return records, diags, nil
}

func parse(fields []string) (Record, string) {
	if len(fields) < MinFields {
		return Record{}, fmt.Sprintf("row has %d fields, need at least %d", len(fields), MinFields)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Sprintf("cluster id %q is not an integer", fields[0])
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Record{}, fmt.Sprintf("size %q is not an integer", fields[4])
	}

	rec := Record{
		ClusterID: id,
		Source:    fields[1],
		Method:    fields[2],
		Codec:     fields[3],
		Size:      size,
	}
	if len(fields) > 6 {
		rec.CompressSeconds, _ = strconv.ParseFloat(fields[6], 64)
	}
	if len(fields) > 8 {
		rec.DecompressSeconds, _ = strconv.ParseFloat(fields[8], 64)
	}
	return rec, ""
}
