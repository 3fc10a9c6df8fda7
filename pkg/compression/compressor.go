// Package compression provides the codecs Compass benchmarks, behind one
// uniform Compressor capability.
//
// # Overview
//
// The codec set is the closed Algorithm variant. Three members span the
// speed/ratio curve and form the default benchmark set:
//   - Deflate: LZ77 plus Huffman coding (klauspost/compress/flate)
//   - BlockSort: Burrows-Wheeler block sorting, bzip2 format (dsnet/compress)
//   - RangeCoder: LZMA dictionary and range coding (ulikunitz/xz)
//
// Gzip, Zstd, S2, Snappy and LZ4 are available as additional trade-off points.
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.BlockSort,
//	    Level:     compression.Default,
//	})
//
//	// Stream a file through the codec
//	err = comp.CompressStream(dst, src)
//
//	// Or work in memory
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
package compression

import (
	"bytes"
	"io"
	"strings"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Algorithm represents a compression algorithm.
// Each algorithm has different trade-offs between speed and compression ratio.
type Algorithm string

const (
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
	// BlockSort represents bzip2 block-sorting compression
	BlockSort Algorithm = "bzip2"
	// RangeCoder represents lzma compression
	RangeCoder Algorithm = "lzma"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
)

// Algorithms returns every supported algorithm, default set first.
func Algorithms() []Algorithm {
	return []Algorithm{Deflate, BlockSort, RangeCoder, Gzip, Zstd, S2, Snappy, LZ4}
}

// DefaultSet returns the three codecs benchmarked when none are configured.
func DefaultSet() []Algorithm {
	return []Algorithm{Deflate, BlockSort, RangeCoder}
}

// Extension returns the file extension of artifacts produced by a. It is
// also the codec label written to the benchmark log.
func (a Algorithm) Extension() string {
	switch a {
	case Deflate:
		return ".deflate"
	case BlockSort:
		return ".bz2"
	case RangeCoder:
		return ".lzma"
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	default:
		return "." + string(a)
	}
}

var aliases = map[string]Algorithm{
	"bz2":   BlockSort,
	"xz":    RangeCoder,
	"zst":   Zstd,
	"flate": Deflate,
	"gz":    Gzip,
}

// ParseAlgorithm resolves a codec name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, a := range Algorithms() {
		if string(a) == n {
			return a, nil
		}
	}
	if a, ok := aliases[n]; ok {
		return a, nil
	}
	return "", errors.Newf(errors.ErrorTypeUsage, "unsupported compression algorithm: %s", name)
}

// ParseSet resolves a list of codec names, dropping duplicates. An empty
// list yields DefaultSet.
func ParseSet(names []string) ([]Algorithm, error) {
	if len(names) == 0 {
		return DefaultSet(), nil
	}
	seen := make(map[Algorithm]bool, len(names))
	out := make([]Algorithm, 0, len(names))
	for _, n := range names {
		a, err := ParseAlgorithm(n)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out, nil
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// ParseLevel resolves fastest, default, better or best. Empty means Default.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return Default, nil
	case "fastest":
		return Fastest, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeUsage, "unknown compression level %q", name)
	}
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level

	// Extension returns the artifact file extension.
	Extension() string
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
}

// DefaultConfig returns a deflate configuration at the default level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: Deflate,
		Level:     Default,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	level := config.Level
	if level == 0 {
		level = Default
	}
	base := baseCompressor{algorithm: config.Algorithm, level: level}

	var s streamer
	switch config.Algorithm {
	case Deflate:
		s = newDeflateStreamer(level)
	case BlockSort:
		s = newBzip2Streamer(level)
	case RangeCoder:
		s = newLZMAStreamer(level)
	case Gzip:
		s = newGzipStreamer(level)
	case Zstd:
		s = newZstdStreamer(level)
	case S2:
		s = s2Streamer{}
	case Snappy:
		s = snappyStreamer{}
	case LZ4:
		s = newLZ4Streamer(level)
	default:
		return nil, errors.Newf(errors.ErrorTypeUsage, "unsupported compression algorithm: %s", config.Algorithm)
	}
	return &streamCompressor{baseCompressor: base, streamer: s}, nil
}

// NewSet creates one compressor per algorithm at the given level.
func NewSet(algorithms []Algorithm, level Level) ([]Compressor, error) {
	out := make([]Compressor, 0, len(algorithms))
	for _, a := range algorithms {
		c, err := NewCompressor(&Config{Algorithm: a, Level: level})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Base compressor implementation
type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// Extension returns the artifact file extension
func (bc *baseCompressor) Extension() string {
	return bc.algorithm.Extension()
}

// streamer is the codec-specific part of a compressor
type streamer interface {
	encode(dst io.Writer, src io.Reader) error
	decode(dst io.Writer, src io.Reader) error
}

// streamCompressor derives the in-memory operations from the stream ones.
type streamCompressor struct {
	baseCompressor
	streamer
}

func (sc *streamCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := sc.encode(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (sc *streamCompressor) Decompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := sc.decode(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (sc *streamCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	return sc.encode(dst, src)
}

func (sc *streamCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	return sc.decode(dst, src)
}
