// Package metric implements the logistic loss arithmetic shared by the
// training, evaluation and prediction passes.
//
// Scores t are raw model outputs; labels y are +1 or -1.
//
//	loss(y, t)     = log(1 + exp(-y*t))
//	gradient(y, t) = -y * exp(-y*t) / (1 + exp(-y*t))
//	sigmoid(t)     = 1 / (1 + exp(-t))
//
// All three are evaluated in float64 in a form that does not overflow for
// large |t|.
package metric
