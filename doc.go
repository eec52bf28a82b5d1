// Package batchlearn trains logistic models on sparse feature data that does
// not fit in memory.
//
// Datasets live in a blob store as two artifacts, <name>.index (labels and
// per-example record offsets) and <name>.data (flat feature records). A run
// streams contiguous batches of examples from the store into a fixed pool of
// workers that update one shared model without locks, applies dropout drawn
// from a hardware (RDRAND) or ChaCha8 random source, and reports the mean log
// loss per epoch.
//
// # Quick Start
//
//	cfg := batchlearn.DefaultConfig()
//	cfg.Train = "data/train"          // data/train.index + data/train.data
//	cfg.Validation = "data/val"
//	cfg.Test = "s3://bucket/ds/test"  // any supported store
//	cfg.Predictions = "out/preds.zst" // compressed by extension
//
//	report, err := batchlearn.Run(ctx, cfg,
//		batchlearn.WithLogger(batchlearn.NewTextLogger(slog.LevelInfo)),
//	)
//
// Datasets are built with featurestore.NewWriter or converted from libffm text
// with featurestore.ConvertFFM. Lower-level control over passes is available
// from the trainer package.
//
// # Concurrency
//
// Training and evaluation passes run one batch per worker goroutine, claiming
// batches dynamically. Model updates from different workers are not
// synchronized, so results are only approximately reproducible across thread
// counts. Prediction runs on one goroutine and writes in example order.
package batchlearn
