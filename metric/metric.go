package metric

import (
	"math"

	"github.com/hupe1980/batchlearn/featurestore"
)

// LogLoss returns log(1 + exp(-y*t)).
func LogLoss(y, t float32) float64 {
	return softplus(-float64(y) * float64(t))
}

// Gradient returns the derivative of LogLoss with respect to t,
// -y * exp(-y*t) / (1 + exp(-y*t)).
func Gradient(y, t float32) float32 {
	z := float64(y) * float64(t)
	return float32(-float64(y) * sigmoid(-z))
}

// Sigmoid returns the predicted probability 1 / (1 + exp(-t)).
func Sigmoid(t float32) float64 {
	return sigmoid(float64(t))
}

// SquaredNorm returns the sum of squared feature values.
func SquaredNorm(feats []featurestore.Record) float32 {
	var norm float32
	for i := range feats {
		norm += feats[i].Value * feats[i].Value
	}
	return norm
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Loss accumulates loss over processed examples.
// The zero value is ready to use. Not safe for concurrent use; workers keep
// their own and Merge at the end of a pass.
type Loss struct {
	Sum   float64
	Count int64
}

// Add records one example.
func (l *Loss) Add(loss float64) {
	l.Sum += loss
	l.Count++
}

// Merge folds o into l.
func (l *Loss) Merge(o Loss) {
	l.Sum += o.Sum
	l.Count += o.Count
}

// Mean returns Sum/Count, or 0 when nothing was processed.
func (l Loss) Mean() float64 {
	if l.Count == 0 {
		return 0
	}
	return l.Sum / float64(l.Count)
}
