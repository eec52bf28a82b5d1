package featurestore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/internal/hash"
)

// ConvertOptions controls ConvertFFM.
type ConvertOptions struct {
	// IndexBits is the width of the feature index space.
	IndexBits uint32

	// Hash folds "field:index" tokens into 2^IndexBits buckets. When false,
	// indices must be integers below 2^IndexBits.
	Hash bool

	// Unlabeled ignores the label column and stores 0 labels.
	Unlabeled bool
}

// DefaultConvertOptions returns the converter defaults.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{IndexBits: 20, Hash: true}
}

// ConvertFFM reads libffm text ("label field:index:value ...", one example
// per line) from r and writes it as dataset name into store.
// Labels 1/+1 map to +1, 0/-1 map to -1.
func ConvertFFM(ctx context.Context, r io.Reader, store blobstore.BlobStore, name string, opts ConvertOptions) (*Index, error) {
	w, err := NewWriter(ctx, store, name, Schema{NumIndexBits: opts.IndexBits})
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var feats []Record
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				w.abort()
				return nil, err
			}
		}

		fields := bytes.Fields(sc.Bytes())
		if len(fields) == 0 {
			continue
		}

		var y float32
		if !opts.Unlabeled {
			y, err = parseLabel(fields[0])
			if err != nil {
				w.abort()
				return nil, fmt.Errorf("featurestore: line %d: %w", line, err)
			}
		}

		feats = feats[:0]
		for _, tok := range fields[1:] {
			f, err := parseFeature(tok, opts)
			if err != nil {
				w.abort()
				return nil, fmt.Errorf("featurestore: line %d: %w", line, err)
			}
			feats = append(feats, f)
		}

		if err := w.Add(y, feats); err != nil {
			w.abort()
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		w.abort()
		return nil, fmt.Errorf("featurestore: read input: %w", err)
	}

	return w.Close()
}

func parseLabel(tok []byte) (float32, error) {
	switch string(tok) {
	case "1", "+1":
		return 1, nil
	case "0", "-1":
		return -1, nil
	}
	return 0, fmt.Errorf("invalid label %q", tok)
}

func parseFeature(tok []byte, opts ConvertOptions) (Record, error) {
	i := bytes.IndexByte(tok, ':')
	j := bytes.LastIndexByte(tok, ':')
	if i <= 0 || j <= i+1 || j == len(tok)-1 {
		return Record{}, fmt.Errorf("invalid feature %q", tok)
	}

	field, err := strconv.ParseUint(string(tok[:i]), 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid field in %q: %w", tok, err)
	}
	value, err := strconv.ParseFloat(string(tok[j+1:]), 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid value in %q: %w", tok, err)
	}

	var index uint32
	if opts.Hash {
		index = hash.Bucket(tok[:j], opts.IndexBits)
	} else {
		v, err := strconv.ParseUint(string(tok[i+1:j]), 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("invalid index in %q: %w", tok, err)
		}
		if opts.IndexBits < 32 && v >= 1<<opts.IndexBits {
			return Record{}, fmt.Errorf("index %d exceeds %d bits", v, opts.IndexBits)
		}
		index = uint32(v)
	}

	return Record{Field: uint32(field), Index: index, Value: float32(value)}, nil
}
