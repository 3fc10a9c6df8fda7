package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Load reads a CSV file with a header row, or every *.csv file of a
// directory concatenated row-wise. Files of a directory are read in name
// order; the column set is the union in first-seen order and rows of a file
// lacking a column get an empty (missing) cell.
func Load(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "dataset path is neither a file nor a directory").
			WithDetail("path", path)
	}

	name := Stem(path)
	if !info.IsDir() {
		header, records, err := readFile(path)
		if err != nil {
			return nil, err
		}
		return build(name, []part{{header: header, records: records}})
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to list dataset directory").
			WithDetail("path", path)
	}
	if len(files) == 0 {
		return nil, errors.New(errors.ErrorTypeInput, "dataset directory contains no csv files").
			WithDetail("path", path)
	}
	sort.Strings(files)

	parts := make([]part, 0, len(files))
	for _, f := range files {
		header, records, err := readFile(f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{header: header, records: records})
	}
	return build(name, parts)
}

// Read parses a single CSV stream with a header row
func Read(name string, r io.Reader) (*Dataset, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to parse csv").WithDetail("name", name)
	}
	return build(name, []part{{header: header, records: records}})
}

// Stem returns the base name of path without its .csv extension
func Stem(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type part struct {
	header  []string
	records [][]string
}

func readFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: dataset path is supplied by the operator
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to open dataset file").
			WithDetail("path", path)
	}
	defer f.Close()

	header, records, err := readCSV(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to parse dataset file").
			WithDetail("path", path)
	}
	return header, records, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, records, nil
}

// build unions the column sets of all parts and concatenates their rows.
func build(name string, parts []part) (*Dataset, error) {
	var header []string
	pos := make(map[string]int)
	for _, p := range parts {
		if err := checkHeader(p.header); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInput, "invalid header")
		}
		for _, h := range p.header {
			if _, ok := pos[h]; !ok {
				pos[h] = len(header)
				header = append(header, h)
			}
		}
	}

	total := 0
	for _, p := range parts {
		total += len(p.records)
	}
	raw := make([][]string, len(header))
	for c := range raw {
		raw[c] = make([]string, total)
	}

	row := 0
	for _, p := range parts {
		for _, rec := range p.records {
			for i, h := range p.header {
				raw[pos[h]][row] = rec[i]
			}
			row++
		}
	}
	return fromColumns(name, header, raw), nil
}
