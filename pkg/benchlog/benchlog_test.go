package benchlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/compass/pkg/errors"
)

func TestAppendFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Append(Record{
		ClusterID:         2,
		Source:            "sensors_COMPASS_KMEANS_DATA (2)_cluster_2.csv",
		Method:            "COMPASS_KMEANS_DATA (2)",
		Codec:             ".bz2",
		Size:              1234,
		CompressSeconds:   0.5,
		DecompressSeconds: 0.25,
	}))
	require.NoError(t, w.Close())

	assert.Equal(t,
		"2,sensors_COMPASS_KMEANS_DATA (2)_cluster_2.csv,COMPASS_KMEANS_DATA (2),.bz2,1234,bytes,0.5,s,0.25,s\n",
		buf.String())
	assert.Equal(t, int64(1), w.Rows())
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	for i := 0; i < 2; i++ {
		w, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, w.Append(Record{ClusterID: i, Source: "t_full.csv", Method: "BASELINE", Codec: ".lzma", Size: 10}))
		require.NoError(t, w.Close())
	}

	records, diags, err := ReadFiles([]string{path})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].ClusterID)
	assert.Equal(t, 1, records[1].ClusterID)
	assert.Equal(t, path, records[1].Origin)
}

func TestConcurrentAppendsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, w.Append(Record{ClusterID: g, Source: fmt.Sprintf("u%d.csv", i), Method: "M", Codec: ".gz", Size: int64(i)}))
			}
		}(g)
	}
	wg.Wait()

	records, diags, err := Read(&buf, "mem")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Len(t, records, 200)
}

func TestReadSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"0,t_full.csv,BASELINE,.bz2,100,bytes,0.1,s,0.2,s",
		"1,t_cluster_1.csv,M (2),.bz2",
		"x,t_cluster_1.csv,M (2),.bz2,30,bytes,0.1,s,0.1,s",
		"1,t_cluster_1.csv,M (2),.bz2,big,bytes,0.1,s,0.1,s",
		"",
		" 2 , t_cluster_2.csv , M (2) , .lzma , 40 , bytes",
	}, "\n")

	records, diags, err := Read(strings.NewReader(input), "log.csv")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, int64(100), records[0].Size)
	assert.InDelta(t, 0.2, records[0].DecompressSeconds, 1e-12)
	assert.Equal(t, Record{ClusterID: 2, Source: "t_cluster_2.csv", Method: "M (2)", Codec: ".lzma", Size: 40, Origin: "log.csv"}, records[1])

	require.Len(t, diags, 3)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 3, diags[1].Line)
	assert.Equal(t, 4, diags[2].Line)
	assert.Contains(t, diags[0].String(), "log.csv:2:")
	assert.True(t, errors.IsType(diags[1].Err(), errors.ErrorTypeMalformedRecord))
}

func TestReadFilesMissing(t *testing.T) {
	_, _, err := ReadFiles([]string{filepath.Join(t.TempDir(), "absent.csv")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInput))
}

func TestIsBaseline(t *testing.T) {
	assert.True(t, Record{Source: "sensors_full.csv"}.IsBaseline())
	assert.True(t, Record{Source: "sensors_full"}.IsBaseline())
	assert.False(t, Record{Source: "sensors_COMPASS_SIBACO_cluster_1.csv"}.IsBaseline())
	assert.False(t, Record{Source: "fullness.csv"}.IsBaseline())
}

func TestOpenUnwritable(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing", "results.csv"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(statErr))
}
