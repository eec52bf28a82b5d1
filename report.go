package batchlearn

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hupe1980/batchlearn/codec"
)

// EpochReport summarizes one training epoch.
type EpochReport struct {
	Epoch         int     `json:"epoch"`
	TrainExamples int64   `json:"train_examples"`
	TrainLoss     float64 `json:"train_loss"`
	TrainSeconds  float64 `json:"train_seconds"`
	HasValidation bool    `json:"has_validation"`
	ValExamples   int64   `json:"val_examples,omitempty"`
	ValLoss       float64 `json:"val_loss,omitempty"`
	ValSeconds    float64 `json:"val_seconds,omitempty"`
}

// Report is the outcome of Run.
type Report struct {
	Train        string        `json:"train"`
	Validation   string        `json:"validation,omitempty"`
	Test         string        `json:"test,omitempty"`
	Output       string        `json:"output,omitempty"`
	Threads      int           `json:"threads"`
	Seed         uint64        `json:"seed"`
	RandomSource string        `json:"random_source"`
	Epochs       []EpochReport `json:"epochs"`
	HasTest      bool          `json:"has_test"`
	TestLoss     float64       `json:"test_loss,omitempty"`
	Predictions  int64         `json:"predictions"`
	Seconds      float64       `json:"seconds"`
}

// TrainLosses returns the per-epoch mean training loss.
func (r *Report) TrainLosses() []float64 {
	out := make([]float64, len(r.Epochs))
	for i, e := range r.Epochs {
		out[i] = e.TrainLoss
	}
	return out
}

// ValLosses returns the per-epoch validation loss, or nil without
// validation data.
func (r *Report) ValLosses() []float64 {
	if len(r.Epochs) == 0 || !r.Epochs[0].HasValidation {
		return nil
	}
	out := make([]float64, len(r.Epochs))
	for i, e := range r.Epochs {
		out[i] = e.ValLoss
	}
	return out
}

// BestEpoch returns the epoch with the lowest validation loss, or the lowest
// training loss when there is no validation data.
func (r *Report) BestEpoch() (EpochReport, bool) {
	losses := r.ValLosses()
	if losses == nil {
		losses = r.TrainLosses()
	}
	if len(losses) == 0 {
		return EpochReport{}, false
	}
	return r.Epochs[floats.MinIdx(losses)], true
}

// MeanTrainSeconds is the average wall time of a training epoch.
func (r *Report) MeanTrainSeconds() float64 {
	if len(r.Epochs) == 0 {
		return 0
	}
	secs := make([]float64, len(r.Epochs))
	for i, e := range r.Epochs {
		secs[i] = e.TrainSeconds
	}
	return floats.Sum(secs) / float64(len(secs))
}

// WriteReport encodes r with c and writes it to a local file.
func WriteReport(path string, r *Report, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	b, err := c.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(path string, c codec.Codec) (*Report, error) {
	if c == nil {
		c = codec.Default
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := c.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// PlotLoss writes a PNG with the training (and validation) loss per epoch.
func PlotLoss(path string, r *Report) error {
	if len(r.Epochs) == 0 {
		return fmt.Errorf("plot loss: no epochs")
	}

	p := plot.New()
	p.Title.Text = "Log loss per epoch"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "mean log loss"
	p.Add(plotter.NewGrid())

	curves := []struct {
		name   string
		losses []float64
		color  color.RGBA
	}{
		{"train", r.TrainLosses(), color.RGBA{R: 20, G: 80, B: 200, A: 255}},
		{"validation", r.ValLosses(), color.RGBA{R: 200, G: 30, B: 30, A: 255}},
	}
	for _, c := range curves {
		if c.losses == nil {
			continue
		}
		xys := make(plotter.XYs, len(c.losses))
		for i, l := range c.losses {
			xys[i] = plotter.XY{X: float64(r.Epochs[i].Epoch), Y: l}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		line.Color = c.color
		line.Width = vg.Points(1.2)
		points.GlyphStyle.Color = c.color
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(c.name, line, points)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
