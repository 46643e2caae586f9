package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tbdelay/platform/pkg/ml/linear"
	"github.com/tbdelay/platform/pkg/ml/metrics"
	"github.com/tbdelay/platform/pkg/ml/preprocess"
	"github.com/tbdelay/platform/pkg/records"
	"github.com/tbdelay/platform/pkg/schema"
)

// AUCUnavailable is reported in place of the AUC when the test split holds a
// single class.
const AUCUnavailable = "Could not be computed (only one class in test set)."

// Evaluation holds the held-out scores of a trained pipeline.
type Evaluation struct {
	Accuracy  float64           `json:"accuracy"`
	Precision float64           `json:"precision"`
	Recall    float64           `json:"recall"`
	AUC       *float64          `json:"auc,omitempty"`
	Confusion metrics.Confusion `json:"confusion"`
	Report    metrics.Report    `json:"report"`
	Solver    linear.Metrics    `json:"solver"`
	TrainRows int               `json:"train_rows"`
	TestRows  int               `json:"test_rows"`
}

func (e Evaluation) AUCText() string {
	if e.AUC == nil {
		return AUCUnavailable
	}
	return strconv.FormatFloat(*e.AUC, 'f', -1, 64)
}

// Map flattens the headline scores for the run registry and events.
func (e Evaluation) Map() map[string]interface{} {
	m := map[string]interface{}{
		"accuracy":          e.Accuracy,
		"precision":         e.Precision,
		"recall":            e.Recall,
		"train_rows":        e.TrainRows,
		"test_rows":         e.TestRows,
		"solver_iterations": e.Solver.Iterations,
		"solver_converged":  e.Solver.Converged,
	}
	if e.AUC != nil {
		m["auc"] = *e.AUC
	} else {
		m["auc"] = nil
	}
	return m
}

// Pipeline is the fitted preprocessing plus classifier, saved as one artifact.
type Pipeline struct {
	Preprocessor *preprocess.ColumnTransformer `json:"preprocessor"`
	Weights      linear.Weights                `json:"weights"`
	FeatureNames []string                      `json:"feature_names"`
	Target       string                        `json:"target"`
	Evaluation   Evaluation                    `json:"evaluation"`
	TrainedAt    time.Time                     `json:"trained_at"`
}

// PredictProba returns the probability of a long diagnostic delay.
func (p *Pipeline) PredictProba(obs schema.Observation) (float64, error) {
	if p == nil || p.Preprocessor == nil {
		return 0, preprocess.ErrNotFitted
	}
	sample, err := p.Preprocessor.Transform(obs)
	if err != nil {
		return 0, err
	}
	if len(sample) != len(p.Weights.Coefficients) {
		return 0, SchemaMismatchError{reason: fmt.Errorf("transformed width %d but model has %d coefficients", len(sample), len(p.Weights.Coefficients))}
	}
	return linear.Predict(p.Weights, sample), nil
}

// Predict returns the class label, 1 when the probability exceeds one half.
func (p *Pipeline) Predict(obs schema.Observation) (int, error) {
	prob, err := p.PredictProba(obs)
	if err != nil {
		return 0, err
	}
	if prob > 0.5 {
		return 1, nil
	}
	return 0, nil
}

// SaveArtifact writes the pipeline as JSON, replacing any existing file.
func SaveArtifact(path string, p *Pipeline) error {
	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return PersistenceError{Path: path, reason: err}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return PersistenceError{Path: path, reason: err}
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return PersistenceError{Path: path, reason: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return PersistenceError{Path: path, reason: err}
	}
	return nil
}

// LoadArtifact reads a saved pipeline and checks it consumes every schema
// input. A missing file surfaces as fs.ErrNotExist through the error chain.
func LoadArtifact(path string) (*Pipeline, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, PersistenceError{Path: path, reason: err}
	}
	var p Pipeline
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, PersistenceError{Path: path, reason: fmt.Errorf("decode: %w", err)}
	}
	if p.Preprocessor == nil || !p.Preprocessor.Fitted {
		return nil, PersistenceError{Path: path, reason: errors.New("artifact has no fitted preprocessor")}
	}

	have := make(map[string]struct{})
	for _, col := range p.Preprocessor.InputColumns() {
		have[col] = struct{}{}
	}
	var missing []string
	for _, name := range schema.Names() {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, SchemaMismatchError{Missing: missing}
	}
	if p.Preprocessor.Width() != len(p.Weights.Coefficients) {
		return nil, SchemaMismatchError{reason: fmt.Errorf("preprocessor width %d but model has %d coefficients", p.Preprocessor.Width(), len(p.Weights.Coefficients))}
	}
	if p.Target == "" {
		p.Target = records.ColLongDelay
	}
	return &p, nil
}
