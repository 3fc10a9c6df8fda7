package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/cluster"
	"github.com/ajitpratap0/compass/pkg/errors"
)

// Column suffixes of the score table
const (
	FeatureSuffix = "_{COMPASS-D}"
	EntropySuffix = "_{COMPASS-E}"
)

// Missing fills score table cells with no score
const Missing = -1.0

// Score is the silhouette score of one partitioning run
type Score struct {
	Source string  `json:"source"`
	Method string  `json:"method"`
	K      int     `json:"k"`
	Value  float64 `json:"score"`
}

// Fields returns the row written to the score log
func (s Score) Fields() []string {
	return []string{s.Source, s.Method, strconv.Itoa(s.K), strconv.FormatFloat(s.Value, 'g', -1, 64)}
}

// ScoreLog appends scores to a CSV file. It is safe for concurrent use.
type ScoreLog struct {
	mu  sync.Mutex
	f   *os.File
	csv *csv.Writer
}

// OpenScoreLog opens path for appending, creating it if needed
func OpenScoreLog(path string) (*ScoreLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302,G304: log path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open score log").WithDetail("path", path)
	}
	return &ScoreLog{f: f, csv: csv.NewWriter(f)}, nil
}

// Append writes one score and flushes it
func (l *ScoreLog) Append(s Score) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.csv.Write(s.Fields()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to append score")
	}
	l.csv.Flush()
	if err := l.csv.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush score")
	}
	return nil
}

// Close closes the log file
func (l *ScoreLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.csv.Flush()
	return l.f.Close()
}

// ReadScores parses a score log. Malformed rows are skipped and reported.
func ReadScores(r io.Reader, origin string) ([]Score, []benchlog.Diagnostic, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		scores []Score
		diags  []benchlog.Diagnostic
	)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				diags = append(diags, benchlog.Diagnostic{Origin: origin, Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to read score log").
				WithDetail("origin", origin)
		}
		line, _ := reader.FieldPos(0)
		s, reason := parseScore(fields)
		if reason != "" {
			diags = append(diags, benchlog.Diagnostic{Origin: origin, Line: line, Reason: reason})
			continue
		}
		scores = append(scores, s)
	}
	return scores, diags, nil
}

// ReadScoresFile reads a score log from disk
func ReadScoresFile(path string) ([]Score, []benchlog.Diagnostic, error) {
	f, err := os.Open(path) //nolint:gosec // G304: log path is supplied by the operator
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeInput, "failed to open score log").WithDetail("path", path)
	}
	defer f.Close()
	return ReadScores(f, path)
}

func parseScore(fields []string) (Score, string) {
	if len(fields) < 4 {
		return Score{}, fmt.Sprintf("row has %d fields, need 4", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	k, err := strconv.Atoi(fields[2])
	if err != nil {
		return Score{}, fmt.Sprintf("k %q is not an integer", fields[2])
	}
	v, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Score{}, fmt.Sprintf("score %q is not a number", fields[3])
	}
	return Score{Source: fields[0], Method: fields[1], K: k, Value: v}, ""
}

// ScoreTable pivots scores: one row per k, one column per source and
// clustering strategy.
type ScoreTable struct {
	Ks      []int       `json:"k"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // Values[row][column]
}

// NewScoreTable builds the table from feature and entropy clustering
// scores; other methods are ignored. A later score for the same cell wins.
func NewScoreTable(scores []Score) *ScoreTable {
	cells := make(map[string]map[int]float64)
	ks := make(map[int]struct{})
	for _, s := range scores {
		suffix, ok := columnSuffix(s.Method)
		if !ok {
			continue
		}
		col := s.Source + suffix
		if cells[col] == nil {
			cells[col] = make(map[int]float64)
		}
		cells[col][s.K] = s.Value
		ks[s.K] = struct{}{}
	}

	t := &ScoreTable{}
	for col := range cells {
		t.Columns = append(t.Columns, col)
	}
	sort.Strings(t.Columns)
	for k := range ks {
		t.Ks = append(t.Ks, k)
	}
	sort.Ints(t.Ks)

	t.Values = make([][]float64, len(t.Ks))
	for i, k := range t.Ks {
		row := make([]float64, len(t.Columns))
		for j, col := range t.Columns {
			v, ok := cells[col][k]
			if !ok {
				v = Missing
			}
			row[j] = v
		}
		t.Values[i] = row
	}
	return t
}

// MaxPositive returns the largest number of positive scores in one column
func (t *ScoreTable) MaxPositive() int {
	best := 0
	for j := range t.Columns {
		n := 0
		for i := range t.Ks {
			if t.Values[i][j] > 0 {
				n++
			}
		}
		best = max(best, n)
	}
	return best
}

// WriteScoreTable writes the table as tab-separated values with two decimals
func WriteScoreTable(w io.Writer, t *ScoreTable) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	rows := make([][]string, 0, len(t.Ks)+1)
	rows = append(rows, append([]string{"k"}, t.Columns...))
	for i, k := range t.Ks {
		row := make([]string, 0, len(t.Columns)+1)
		row = append(row, strconv.Itoa(k))
		for _, v := range t.Values[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
		}
		rows = append(rows, row)
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write score table")
	}
	return nil
}

func columnSuffix(method string) (string, bool) {
	switch {
	case strings.HasPrefix(method, cluster.FeatureClustering.String()):
		return FeatureSuffix, true
	case strings.HasPrefix(method, cluster.EntropyClustering.String()):
		return EntropySuffix, true
	default:
		return "", false
	}
}
