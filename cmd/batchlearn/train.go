package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/batchlearn"
	"github.com/hupe1980/batchlearn/codec"
	"github.com/hupe1980/batchlearn/dropout"
)

type trainFlags struct {
	cfg         batchlearn.Config
	logs        logFlags
	metricsAddr string
	software    bool
	codec       codec.Codec
}

func parseTrainFlags(args []string, stderr io.Writer) (*trainFlags, error) {
	f := &trainFlags{cfg: batchlearn.DefaultConfig()}
	f.cfg.Threads = defaultThreads()

	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := &f.cfg
	fs.StringVar(&c.Train, "train", "", "training dataset (required)")
	fs.StringVar(&c.Validation, "val", "", "validation dataset")
	fs.StringVar(&c.Test, "test", "", "test dataset")
	fs.StringVar(&c.Predictions, "out", "", "predictions output for the test dataset (.zst/.lz4 compress)")
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "number of training epochs")
	fs.IntVar(&c.Threads, "threads", c.Threads, "worker threads")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "shuffle seed")
	fs.IntVar(&c.DropoutLog, "dropout-log", c.DropoutLog, "dropout strength; each feature is dropped with probability 2^-n")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "examples per batch")
	fs.IntVar(&c.MiniBatchSize, "mini-batch-size", c.MiniBatchSize, "examples per mini-batch")
	fs.IntVar(&c.MaxMaskWords, "max-mask-words", c.MaxMaskWords, "dropout mask bound in 64-bit words")
	lr := fs.Float64("lr", float64(c.LearningRate), "learning rate of the linear model")
	l2 := fs.Float64("l2", float64(c.L2), "L2 regularization of the linear model")
	fs.Int64Var(&c.MemoryLimitBytes, "memory-limit", 0, "resident batch memory budget in bytes (0 = unlimited)")
	fs.Int64Var(&c.IOLimitBytesPerSec, "io-limit", 0, "feature read throughput in bytes/sec (0 = unlimited)")
	fs.Int64Var(&c.CacheBytes, "cache", 0, "block cache in bytes for remote datasets (0 = off)")
	fs.BoolVar(&c.DisableMmap, "no-mmap", false, "read local datasets with pread instead of mmap")
	fs.StringVar(&c.ReportPath, "report", "", "write a JSON run report to this file")
	reportCodec := fs.String("report-codec", codec.Default.Name(), "report encoding: go-json or json")
	fs.StringVar(&c.PlotPath, "plot", "", "write a loss curve PNG to this file")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :2112)")
	fs.BoolVar(&f.software, "software-rng", false, "use the ChaCha8 source even when RDRAND is available")
	f.logs.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("train: unexpected arguments %v", fs.Args())
	}
	c.LearningRate = float32(*lr)
	c.L2 = float32(*l2)

	enc, ok := codec.ByName(*reportCodec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown report codec %q", batchlearn.ErrInvalidConfig, *reportCodec)
	}
	f.codec = enc

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func trainCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseTrainFlags(args, stderr)
	if err != nil {
		return err
	}

	h, err := f.logs.handler(stderr)
	if err != nil {
		return err
	}
	logger := batchlearn.NewLogger(h)
	logHost(ctx, logger)

	opts := []batchlearn.Option{batchlearn.WithLogger(logger), batchlearn.WithCodec(f.codec)}
	if f.software {
		opts = append(opts, batchlearn.WithRandomSource(dropout.NewSoftwareSource))
	}

	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector := NewPrometheusCollector(reg)
		opts = append(opts, batchlearn.WithMetricsCollector(collector))

		srv, err := serveMetrics(f.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown(srv)
		logger.InfoContext(ctx, "serving metrics", "addr", srv.Addr)
	}

	report, err := batchlearn.Run(ctx, f.cfg, opts...)
	if err != nil {
		return err
	}

	for _, e := range report.Epochs {
		if e.HasValidation {
			fmt.Fprintf(stdout, "epoch %d\ttrain %.6f\tval %.6f\n", e.Epoch, e.TrainLoss, e.ValLoss)
		} else {
			fmt.Fprintf(stdout, "epoch %d\ttrain %.6f\n", e.Epoch, e.TrainLoss)
		}
	}
	if report.HasTest {
		fmt.Fprintf(stdout, "test %.6f\n", report.TestLoss)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *batchlearn.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv, nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
