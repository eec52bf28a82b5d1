// Command batchlearn trains logistic models on out-of-core sparse datasets
// and converts libffm text into the dataset format.
//
// Usage:
//
//	batchlearn train -train data/train [-val data/val] [-test data/test -out preds.txt] [flags]
//	batchlearn convert [-bits 20] [-no-hash] [-unlabeled] input.ffm data/train
//	batchlearn info data/train
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "batchlearn: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return flag.ErrHelp
	}

	switch args[0] {
	case "train":
		return trainCmd(ctx, args[1:], stdout, stderr)
	case "convert":
		return convertCmd(ctx, args[1:], stdout, stderr)
	case "info":
		return infoCmd(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: batchlearn <command> [flags]

commands:
  train     train a model, optionally validating and writing test predictions
  convert   convert libffm text into a dataset
  info      print the index summary of a dataset

Run "batchlearn <command> -h" for the flags of a command.
`)
}

// logFlags are shared by all subcommands.
type logFlags struct {
	level  string
	format string
}

func (l *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&l.level, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&l.format, "log-format", "text", "log format (text, json)")
}

func (l *logFlags) handler(w io.Writer) (slog.Handler, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.format {
	case "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid -log-format %q", l.format)
	}
}
