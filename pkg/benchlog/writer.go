package benchlog

import (
	"encoding/csv"
	"io"
	"os"
	"sync"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Writer appends records to a benchmark log. It is safe for concurrent use;
// rows never interleave.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	csv    *csv.Writer
	rows   int64
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302,G304: log path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open benchmark log").
			WithDetail("path", path)
	}
	return &Writer{closer: f, csv: csv.NewWriter(f)}, nil
}

// NewWriter appends records to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Append writes one row and flushes it.
func (w *Writer) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(r.Fields()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to append benchmark record")
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush benchmark record")
	}
	w.rows++
	return nil
}

// Rows returns the number of rows appended through this writer
func (w *Writer) Rows() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes and closes the underlying file, if any
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	err := w.csv.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}
