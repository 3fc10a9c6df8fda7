package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/compass/pkg/errors"
)

func TestRoundTrip(t *testing.T) {
	original := generateLowEntropyCSV(32 * 1024)

	for _, algo := range Algorithms() {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(algo)+"/"+levelString(level), func(t *testing.T) {
				compressor, err := NewCompressor(&Config{Algorithm: algo, Level: level})
				require.NoError(t, err)
				assert.Equal(t, algo, compressor.Algorithm())
				assert.Equal(t, level, compressor.Level())

				compressed, err := compressor.Compress(original)
				require.NoError(t, err)
				assert.Less(t, len(compressed), len(original))

				decompressed, err := compressor.Decompress(compressed)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(original, decompressed))

				var streamed bytes.Buffer
				require.NoError(t, compressor.CompressStream(&streamed, bytes.NewReader(original)))
				var restored bytes.Buffer
				require.NoError(t, compressor.DecompressStream(&restored, &streamed))
				assert.True(t, bytes.Equal(original, restored.Bytes()))
			})
		}
	}
}

func TestDecompressCorruptInput(t *testing.T) {
	garbage := []byte("definitely not a compressed stream")
	for _, algo := range DefaultSet() {
		compressor, err := NewCompressor(&Config{Algorithm: algo})
		require.NoError(t, err)

		_, err = compressor.Decompress(garbage)
		assert.Error(t, err, algo)
	}
}

func TestParseSet(t *testing.T) {
	set, err := ParseSet(nil)
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{Deflate, BlockSort, RangeCoder}, set)

	set, err = ParseSet([]string{"LZMA", "bz2", "deflate", "bzip2", " zstd "})
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{RangeCoder, BlockSort, Deflate, Zstd}, set)

	_, err = ParseSet([]string{"deflate", "rar"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUsage))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"": Default, "fastest": Fastest, "Better": Better, "best": Best}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("ultra")
	assert.Error(t, err)
}

func TestExtensionsAreDistinct(t *testing.T) {
	seen := map[string]Algorithm{}
	for _, algo := range Algorithms() {
		ext := algo.Extension()
		assert.NotContains(t, seen, ext)
		seen[ext] = algo

		c, err := NewCompressor(&Config{Algorithm: algo})
		require.NoError(t, err)
		assert.Equal(t, ext, c.Extension())
	}
}

func TestNewCompressorRejectsUnknown(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "rar"})
	assert.Error(t, err)

	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Deflate, c.Algorithm())
}
