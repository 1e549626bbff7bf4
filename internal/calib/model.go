package calib

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/alvintehg/fhri/internal/api"
)

// Model is the immutable calibration artifact: scaler parameters, logistic
// regression weights in a fixed feature order, the chosen decision threshold
// in P(hallucination) space, and the scenario vocabulary used for one-hot
// encoding. Versioned by training run, consumed read-only at inference.
type Model struct {
	Version            string          `json:"version"`
	TrainedAt          time.Time       `json:"trained_at"`
	Scaler             *StandardScaler `json:"scaler"`
	Weights            []float64       `json:"weights"`
	Intercept          float64         `json:"intercept"`
	Threshold          float64         `json:"threshold"`
	ThresholdObjective string          `json:"threshold_objective"`
	FeatureNames       []string        `json:"feature_names"`
	ScenarioVocabulary []api.Scenario  `json:"scenario_vocabulary"`
	DatasetHash        string          `json:"dataset_hash"`
	NumSamples         int             `json:"num_samples"`
	PositiveRatio      float64         `json:"positive_ratio"`
}

// Predict returns P(hallucination) for a raw (unscaled) feature vector.
func (m *Model) Predict(features []float64) float64 {
	scaled := m.Scaler.Transform(features)
	z := m.Intercept
	for j, w := range m.Weights {
		z += w * scaled[j]
	}
	return sigmoid(z)
}

// PredictLabel applies the stored threshold: p >= threshold means the sample
// is classified as a hallucination.
func (m *Model) PredictLabel(features []float64) api.Label {
	if m.Predict(features) >= m.Threshold {
		return api.LabelHallucination
	}
	return api.LabelAccurate
}

// TrustThreshold converts the probability-space threshold into the trust-space
// threshold consumed by the decision engine's threshold table.
func (m *Model) TrustThreshold() float64 {
	return 1 - m.Threshold
}

// Validate checks artifact integrity after loading.
func (m *Model) Validate() error {
	if len(m.Weights) != NumFeatures {
		return fmt.Errorf("model has %d weights, want %d", len(m.Weights), NumFeatures)
	}
	if m.Scaler == nil || len(m.Scaler.Mean) != NumFeatures || len(m.Scaler.Std) != NumFeatures {
		return fmt.Errorf("model scaler dimensionality mismatch")
	}
	if len(m.FeatureNames) != NumFeatures {
		return fmt.Errorf("model has %d feature names, want %d", len(m.FeatureNames), NumFeatures)
	}
	if m.Threshold < 0 || m.Threshold > 1 {
		return fmt.Errorf("model threshold %.3f outside [0, 1]", m.Threshold)
	}
	return nil
}

// Save writes the artifact as indented JSON. The write goes through a temp
// file and rename so a failed run never leaves a partial artifact behind.
func (m *Model) Save(path string) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid model: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize model file: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
