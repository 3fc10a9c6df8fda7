// Package testutil provides testing utilities for Compass
package testutil

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteCSV writes header and rows to dir/name and returns the path.
func WriteCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	RequireNoError(t, err, "create csv fixture")
	defer f.Close()

	w := csv.NewWriter(f)
	RequireNoError(t, w.Write(header), "write csv header")
	RequireNoError(t, w.WriteAll(rows), "write csv rows")
	return path
}

// SensorRows returns a small mixed-type table shaped like the sensor
// measurement tables Compass was built for.
func SensorRows() ([]string, [][]string) {
	header := []string{"station", "status", "temperature", "humidity", "voltage", "flag"}
	rows := [][]string{
		{"S1", "ok", "21.5", "40", "3.30", "0"},
		{"S1", "ok", "21.7", "41", "3.30", "0"},
		{"S2", "ok", "19.2", "55", "3.28", "0"},
		{"S2", "warn", "19.0", "57", "3.10", "1"},
		{"S3", "ok", "25.1", "30", "3.31", "0"},
		{"S3", "ok", "", "31", "3.31", "0"},
		{"S1", "ok", "21.9", "42", "3.29", "0"},
		{"S2", "fail", "18.7", "", "2.95", "1"},
	}
	return header, rows
}

// RequireNoError fails the test immediately if err is not nil.
// The msg parameter provides additional context in the failure message.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
