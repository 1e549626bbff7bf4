package calib

import "math"

// StandardScaler standardizes features to zero mean and unit variance.
// Fitted on training data only; serving applies the stored parameters.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation. Columns with
// zero variance (constant features, e.g. an unused scenario indicator) keep
// a divisor of 1 so transformation is a no-op for them.
func FitScaler(features [][]float64) *StandardScaler {
	if len(features) == 0 {
		return &StandardScaler{}
	}
	dim := len(features[0])
	mean := make([]float64, dim)
	std := make([]float64, dim)

	for _, row := range features {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(features))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range features {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return &StandardScaler{Mean: mean, Std: std}
}

// Transform standardizes one feature vector.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes a full feature matrix.
func (s *StandardScaler) TransformAll(features [][]float64) [][]float64 {
	out := make([][]float64, len(features))
	for i, row := range features {
		out[i] = s.Transform(row)
	}
	return out
}
