package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/batchlearn"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/sink"
)

func convertCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := featurestore.DefaultConvertOptions()
	var noHash bool
	var logs logFlags

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bits := fs.Uint("bits", uint(opts.IndexBits), "index bits of the dataset")
	fs.BoolVar(&noHash, "no-hash", false, "keep indices as given instead of hashing them")
	fs.BoolVar(&opts.Unlabeled, "unlabeled", false, "ignore the label column and store unlabeled examples")
	logs.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: batchlearn convert [flags] <input.ffm[.zst|.lz4]|-> <dataset>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("convert: expected input and dataset arguments")
	}
	if *bits == 0 || *bits > 31 {
		return fmt.Errorf("convert: -bits must be in [1, 31], got %d", *bits)
	}
	opts.IndexBits = uint32(*bits)
	opts.Hash = !noHash

	h, err := logs.handler(stderr)
	if err != nil {
		return err
	}
	logger := batchlearn.NewLogger(h)

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	store, name, err := batchlearn.OpenStore(ctx, fs.Arg(1), batchlearn.DefaultConfig())
	if err != nil {
		return err
	}

	ix, err := featurestore.ConvertFFM(ctx, in, store, name, opts)
	logger.LogDatasetLoaded(ctx, "convert", fs.Arg(1), exampleCount(ix), err)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d examples, %d records, %d index bits\n",
		fs.Arg(1), ix.NumExamples(), ix.NumRecords(), ix.NumIndexBits)
	return nil
}

// openInput opens a local file, decompressing by extension, or stdin for "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := sink.NewReader(f, sink.Detect(path))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &inputFile{ReadCloser: r, f: f}, nil
}

type inputFile struct {
	io.ReadCloser
	f *os.File
}

func (i *inputFile) Close() error {
	_ = i.ReadCloser.Close()
	return i.f.Close()
}

func exampleCount(ix *featurestore.Index) int {
	if ix == nil {
		return 0
	}
	return ix.NumExamples()
}

func infoCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("info: expected one dataset argument")
	}

	store, name, err := batchlearn.OpenStore(ctx, fs.Arg(0), batchlearn.DefaultConfig())
	if err != nil {
		return err
	}
	ix, err := featurestore.ReadIndex(ctx, store, name)
	if err != nil {
		return err
	}

	var pos, neg int
	for _, y := range ix.Labels {
		switch {
		case y > 0:
			pos++
		case y < 0:
			neg++
		}
	}
	fmt.Fprintf(stdout, "examples\t%d\nrecords\t%d\nfields\t%d\nindices\t%d\nindex bits\t%d\nlabeled\t%t\npositives\t%d\nnegatives\t%d\n",
		ix.NumExamples(), ix.NumRecords(), ix.NumFields, ix.NumIndices, ix.NumIndexBits, ix.Labeled(), pos, neg)
	return nil
}
