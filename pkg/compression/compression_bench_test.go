package compression

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
)

// Test data generators

// generateLowEntropyCSV produces columns with few distinct values, the kind
// the selection split groups together.
func generateLowEntropyCSV(size int) []byte {
	rng := rand.New(rand.NewPCG(1, 2))
	status := []string{"ok", "warn", "fail"}

	var writer bytes.Buffer
	writer.WriteString("station,status,flag\n")
	for writer.Len() < size {
		fmt.Fprintf(&writer, "S%d,%s,%d\n", rng.IntN(4), status[rng.IntN(len(status))], rng.IntN(2))
	}
	return writer.Bytes()
}

// generateHighEntropyCSV produces near-unique numeric columns.
func generateHighEntropyCSV(size int) []byte {
	rng := rand.New(rand.NewPCG(3, 4))

	var writer bytes.Buffer
	writer.WriteString("temperature,humidity,voltage\n")
	for writer.Len() < size {
		fmt.Fprintf(&writer, "%.4f,%.3f,%.5f\n", rng.Float64()*40, rng.Float64()*100, 3+rng.Float64()*0.4)
	}
	return writer.Bytes()
}

// Benchmark compression algorithms
func BenchmarkCompression(b *testing.B) {
	dataSizes := []int{
		10240,   // 10KB
		1048576, // 1MB
	}

	dataTypes := map[string]func(int) []byte{
		"LowEntropy":  generateLowEntropyCSV,
		"HighEntropy": generateHighEntropyCSV,
	}

	for _, algo := range Algorithms() {
		for _, size := range dataSizes {
			for dataType, generator := range dataTypes {
				testData := generator(size)

				b.Run(fmt.Sprintf("%s/%s/%s", algo, dataType, formatBytes(size)), func(b *testing.B) {
					compressor, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
					if err != nil {
						b.Fatal(err)
					}

					b.ResetTimer()
					b.SetBytes(int64(len(testData)))

					for i := 0; i < b.N; i++ {
						if err := compressor.CompressStream(&bytes.Buffer{}, bytes.NewReader(testData)); err != nil {
							b.Fatal(err)
						}
					}
				})
			}
		}
	}
}

// Benchmark compression ratios
func BenchmarkCompressionRatio(b *testing.B) {
	levels := []Level{Fastest, Default, Better, Best}

	size := 1048576 // 1MB
	dataTypes := map[string]func(int) []byte{
		"LowEntropy":  generateLowEntropyCSV,
		"HighEntropy": generateHighEntropyCSV,
	}

	for dataType, generator := range dataTypes {
		testData := generator(size)
		b.Logf("\n%s Data (%s):", dataType, formatBytes(len(testData)))
		b.Logf("%-10s %-10s %-15s %-10s", "Algorithm", "Level", "Compressed", "Ratio")
		b.Logf("%s", strings.Repeat("-", 50))

		for _, algo := range Algorithms() {
			for _, level := range levels {
				// Snappy and S2 ignore the level
				if (algo == Snappy || algo == S2) && level != Default {
					continue
				}

				compressor, err := NewCompressor(&Config{Algorithm: algo, Level: level})
				if err != nil {
					continue
				}

				compressed, err := compressor.Compress(testData)
				if err != nil {
					b.Logf("%-10s %-10s Error: %v", algo, levelString(level), err)
					continue
				}

				ratio := float64(len(testData)) / float64(len(compressed))
				b.Logf("%-10s %-10s %-15s %.2fx", algo, levelString(level),
					formatBytes(len(compressed)), ratio)
			}
		}
		b.Logf("")
	}
}

// Helper functions
func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func levelString(level Level) string {
	switch level {
	case Fastest:
		return "Fastest"
	case Default:
		return "Default"
	case Better:
		return "Better"
	case Best:
		return "Best"
	default:
		return "Unknown"
	}
}
