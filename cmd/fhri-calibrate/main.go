package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alvintehg/fhri/internal/calib"
)

var (
	datasetPath string
	modelPath   string
	objective   string
	epochs      int
	lr          float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhri-calibrate",
		Short: "Calibration tool for the FHRI decision engine",
		Long: `Fits the supervised calibration model (class-balanced logistic regression
over standardized sub-score features) on a labeled dataset, selects a decision
threshold, and manages the resulting model artifacts.`,
	}

	rootCmd.AddCommand(fitCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(showCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// fitCmd trains a new calibration model and writes the artifact.
func fitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Train a calibration model on a labeled dataset",
		Long: `Trains on a JSON dataset of labeled rows (sample + computed sub-scores).
Contradiction-labeled rows are excluded from the binary fit. Fails with no
artifact written when the dataset has zero usable rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := loadRows(datasetPath)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			cfg := calib.DefaultTrainConfig()
			cfg.Objective = calib.ThresholdObjective(objective)
			if epochs > 0 {
				cfg.Epochs = epochs
			}
			if lr > 0 {
				cfg.LearningRate = lr
			}

			model, err := calib.Train(rows, cfg)
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			report, err := calib.Evaluate(model, rows)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			if err := model.Save(modelPath); err != nil {
				return fmt.Errorf("failed to save model: %w", err)
			}

			fmt.Printf("=== Calibration Fit ===\n")
			fmt.Printf("Model version: %s\n", model.Version)
			fmt.Printf("Dataset hash:  %s\n", model.DatasetHash[:16])
			fmt.Printf("Objective:     %s\n", model.ThresholdObjective)
			fmt.Printf("\n%s\n", report)
			fmt.Printf("Model saved to %s\n", modelPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "i", "", "Labeled dataset (JSON array of rows)")
	cmd.Flags().StringVarP(&modelPath, "out", "o", "model.json", "Output model artifact path")
	cmd.Flags().StringVar(&objective, "objective", "f1", "Threshold objective: f1, recall, precision")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "Training epochs (0 = default)")
	cmd.Flags().Float64Var(&lr, "learning-rate", 0, "Learning rate (0 = default)")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

// reportCmd evaluates an existing model against a labeled dataset.
func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate a model artifact against a labeled dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := calib.LoadModel(modelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}
			rows, err := loadRows(datasetPath)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			report, err := calib.Evaluate(model, rows)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			fmt.Printf("=== Calibration Report (%s) ===\n", model.Version)
			fmt.Printf("%s", report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model artifact path")
	cmd.Flags().StringVarP(&datasetPath, "dataset", "i", "", "Labeled dataset (JSON array of rows)")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

// showCmd dumps artifact metadata without the weight vector.
func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show model artifact metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := calib.LoadModel(modelPath)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}

			fmt.Printf("Version:        %s\n", model.Version)
			fmt.Printf("Trained at:     %s\n", model.TrainedAt.Format("2006-01-02 15:04:05 UTC"))
			fmt.Printf("Objective:      %s\n", model.ThresholdObjective)
			fmt.Printf("Threshold:      %.4f (trust-space: %.4f)\n", model.Threshold, model.TrustThreshold())
			fmt.Printf("Samples:        %d (%.1f%% hallucination)\n", model.NumSamples, model.PositiveRatio*100)
			fmt.Printf("Dataset hash:   %s\n", model.DatasetHash)
			fmt.Printf("Features (%d):\n", len(model.FeatureNames))
			for i, name := range model.FeatureNames {
				fmt.Printf("  %-28s %+.4f\n", name, model.Weights[i])
			}
			fmt.Printf("Intercept:      %+.4f\n", model.Intercept)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model artifact path")
	cmd.MarkFlagRequired("model")

	return cmd
}

func loadRows(path string) ([]calib.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []calib.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
