package sink

import (
	"errors"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used for an output.
type CompressionType uint8

const (
	// CompressionNone writes plain text.
	CompressionNone CompressionType = iota
	// CompressionLZ4 writes an LZ4 frame stream (fast).
	CompressionLZ4
	// CompressionZSTD writes a zstd stream (better ratio).
	CompressionZSTD
)

func (c CompressionType) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Detect picks the compression for an output name by its extension.
func Detect(name string) CompressionType {
	switch strings.ToLower(path.Ext(name)) {
	case ".zst", ".zstd":
		return CompressionZSTD
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Writer compresses into an underlying WriteCloser. Close flushes the
// compressor and then closes the underlying writer.
type Writer struct {
	io.Writer
	enc   io.Closer // nil for CompressionNone
	under io.Closer
}

// NewWriter wraps w with the given compression.
func NewWriter(w io.WriteCloser, c CompressionType) (*Writer, error) {
	switch c {
	case CompressionNone:
		return &Writer{Writer: w, under: w}, nil
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.BlockSizeOption(lz4.Block256Kb)); err != nil {
			return nil, err
		}
		return &Writer{Writer: zw, enc: zw, under: w}, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return &Writer{Writer: enc, enc: enc, under: w}, nil
	default:
		return nil, errors.New("sink: unknown compression type")
	}
}

// Close flushes and closes. The underlying writer is closed even if the
// compressor fails.
func (w *Writer) Close() error {
	var err error
	if w.enc != nil {
		err = w.enc.Close()
	}
	return errors.Join(err, w.under.Close())
}

// NewReader returns a decompressing reader for data written by a Writer
// with the same compression.
func NewReader(r io.Reader, c CompressionType) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, errors.New("sink: unknown compression type")
	}
}
