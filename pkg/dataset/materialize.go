package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// WriteCSV writes the named columns, header first, to w. Cells are written
// verbatim so a subset reproduces the source values.
func (d *Dataset) WriteCSV(w io.Writer, names []string) error {
	cols, err := d.Select(names)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "cannot materialise unknown column")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(names); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for r := 0; r < d.rows; r++ {
		for c, col := range cols {
			row[c] = col.raw[r]
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Materialize writes the named columns to a new file at path and returns
// the number of bytes written.
func (d *Dataset) Materialize(path string, names []string) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to create unit file").WithDetail("path", path)
	}

	counter := &countingWriter{w: f}
	buf := bufio.NewWriterSize(counter, 64*1024)
	if err := d.WriteCSV(buf, names); err != nil {
		_ = f.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to write unit file").WithDetail("path", path)
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush unit file").WithDetail("path", path)
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to close unit file").WithDetail("path", path)
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
