package entropy

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Write encodes p as a two-row CSV: column names, then entropies.
func Write(w io.Writer, p *Profile) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(p.names); err != nil {
		return err
	}
	row := make([]string, len(p.values))
	for i, v := range p.values {
		row[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes p to path, replacing any existing file.
func WriteFile(path string, p *Profile) error {
	f, err := os.Create(path) //nolint:gosec // G304: output path is supplied by the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create entropy file").WithDetail("path", path)
	}
	buf := bufio.NewWriter(f)
	if err := Write(buf, p); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write entropy file").WithDetail("path", path)
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush entropy file").WithDetail("path", path)
	}
	return f.Close()
}

// Read parses a two-row entropy file.
func Read(r io.Reader) (*Profile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to parse entropy file")
	}
	if len(records) < 2 {
		return nil, errors.Newf(errors.ErrorTypeInput, "entropy file has %d rows, want 2", len(records))
	}

	names, raw := records[0], records[1]
	if len(names) != len(raw) {
		return nil, errors.Newf(errors.ErrorTypeInput,
			"entropy file has %d names but %d values", len(names), len(raw))
	}
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	values := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInput, "non-numeric entropy value").
				WithDetail("column", names[i])
		}
		values[i] = v
	}
	return NewProfile(names, values), nil
}

// ReadFile reads an entropy file from path.
func ReadFile(path string) (*Profile, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to open entropy file").WithDetail("path", path)
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "invalid entropy file").WithDetail("path", path)
	}
	return p, nil
}
