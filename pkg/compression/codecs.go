package compression

import (
	"io"
	"sync"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// Deflate codec
type deflateStreamer struct {
	level int
}

func newDeflateStreamer(level Level) *deflateStreamer {
	return &deflateStreamer{level: mapDeflateLevel(level)}
}

func (d *deflateStreamer) encode(dst io.Writer, src io.Reader) error {
	w, err := flate.NewWriter(dst, d.level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (d *deflateStreamer) decode(dst io.Writer, src io.Reader) error {
	r := flate.NewReader(src)
	defer r.Close()

	_, err := io.Copy(dst, r) //nolint:gosec // G110: artifacts are produced by this process
	return err
}

// bzip2 codec
type bzip2Streamer struct {
	level int
}

func newBzip2Streamer(level Level) *bzip2Streamer {
	return &bzip2Streamer{level: mapBzip2Level(level)}
}

func (b *bzip2Streamer) encode(dst io.Writer, src io.Reader) error {
	w, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: b.level})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (b *bzip2Streamer) decode(dst io.Writer, src io.Reader) error {
	r, err := bzip2.NewReader(src, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(dst, r) //nolint:gosec // G110: artifacts are produced by this process
	return err
}

// LZMA codec
type lzmaStreamer struct {
	dictCap int
}

func newLZMAStreamer(level Level) *lzmaStreamer {
	return &lzmaStreamer{dictCap: mapLZMADictCap(level)}
}

func (l *lzmaStreamer) encode(dst io.Writer, src io.Reader) error {
	cfg := lzma.WriterConfig{DictCap: l.dictCap}
	w, err := cfg.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (l *lzmaStreamer) decode(dst io.Writer, src io.Reader) error {
	r, err := lzma.NewReader(src)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, r) //nolint:gosec // G110: artifacts are produced by this process
	return err
}

// Gzip codec
type gzipStreamer struct {
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipStreamer(level Level) *gzipStreamer {
	gl := mapGzipLevel(level)
	g := &gzipStreamer{}
	g.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gl)
		return w
	}
	g.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return g
}

func (g *gzipStreamer) encode(dst io.Writer, src io.Reader) error {
	w := g.writerPool.Get().(*gzip.Writer)
	defer g.writerPool.Put(w)

	w.Reset(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (g *gzipStreamer) decode(dst io.Writer, src io.Reader) error {
	r := g.readerPool.Get().(*gzip.Reader)
	defer g.readerPool.Put(r)

	if err := r.Reset(src); err != nil {
		return err
	}
	_, err := io.Copy(dst, r) //nolint:gosec // G110: artifacts are produced by this process
	return err
}

// Zstd codec
type zstdStreamer struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdStreamer(level Level) *zstdStreamer {
	zl := mapZstdLevel(level)
	z := &zstdStreamer{}
	z.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zl))
		return enc
	}
	z.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return z
}

func (z *zstdStreamer) encode(dst io.Writer, src io.Reader) error {
	enc := z.encoderPool.Get().(*zstd.Encoder)
	defer z.encoderPool.Put(enc)

	enc.Reset(dst)
	if _, err := io.Copy(enc, src); err != nil {
		return err
	}
	return enc.Close()
}

func (z *zstdStreamer) decode(dst io.Writer, src io.Reader) error {
	dec := z.decoderPool.Get().(*zstd.Decoder)
	defer z.decoderPool.Put(dec)

	if err := dec.Reset(src); err != nil {
		return err
	}
	_, err := io.Copy(dst, dec)
	return err
}

// S2 codec (Snappy-compatible but better compression)
type s2Streamer struct{}

func (s2Streamer) encode(dst io.Writer, src io.Reader) error {
	w := s2.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (s2Streamer) decode(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, s2.NewReader(src))
	return err
}

// Snappy codec
type snappyStreamer struct{}

func (snappyStreamer) encode(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (snappyStreamer) decode(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, snappy.NewReader(src))
	return err
}

// LZ4 codec
type lz4Streamer struct {
	level lz4.CompressionLevel
}

func newLZ4Streamer(level Level) *lz4Streamer {
	return &lz4Streamer{level: mapLZ4Level(level)}
}

func (l *lz4Streamer) encode(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(l.level)); err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (l *lz4Streamer) decode(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, lz4.NewReader(src))
	return err
}

// Helper functions to map compression levels

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Better:
		return 7
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapBzip2Level(level Level) int {
	switch level {
	case Fastest:
		return bzip2.BestSpeed
	case Better:
		return 8
	case Best:
		return bzip2.BestCompression
	default:
		return bzip2.DefaultCompression
	}
}

// mapLZMADictCap trades dictionary size for speed; lzma has no level knob.
func mapLZMADictCap(level Level) int {
	switch level {
	case Fastest:
		return 1 << 16
	case Better:
		return 1 << 24
	case Best:
		return 1 << 25
	default:
		return 1 << 23
	}
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
