package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tbdelay/platform/pkg/common/config"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/models"
	"github.com/tbdelay/platform/pkg/ml/linear"
	"github.com/tbdelay/platform/pkg/ml/metrics"
	"github.com/tbdelay/platform/pkg/ml/preprocess"
	"github.com/tbdelay/platform/pkg/ml/split"
	"github.com/tbdelay/platform/pkg/records"
	"github.com/tbdelay/platform/pkg/schema"
	"gorm.io/datatypes"
)

const eventSource = "trainer"

type Options struct {
	TestFraction float64
	Seed         int64
	Linear       linear.Options
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TestFraction: cfg.TestFraction,
		Seed:         cfg.SplitSeed,
		Linear: linear.Options{
			Solver:        cfg.Solver,
			MaxIterations: cfg.MaxIterations,
			C:             cfg.Regularization,
		},
	}
}

// Registry records the lifecycle of a run. *Repository satisfies it.
type Registry interface {
	Create(ctx context.Context, run *RunModel) error
	UpdateStatus(ctx context.Context, runID uuid.UUID, status string, metrics map[string]interface{}, artifactPath, errorMessage string) error
	SetRows(ctx context.Context, runID uuid.UUID, rows int) error
	SetTimestamps(ctx context.Context, runID uuid.UUID, startedAt, completedAt *time.Time) error
}

// Publisher announces finished runs. *kafka.Producer satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service runs the training pipeline end to end. Registry and publisher are
// optional; failures there are logged and never fail a run.
type Service struct {
	opts      Options
	registry  Registry
	publisher Publisher
}

func NewService(opts Options, registry Registry, publisher Publisher) *Service {
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = 0.2
	}
	return &Service{opts: opts, registry: registry, publisher: publisher}
}

type Result struct {
	RunID        uuid.UUID
	DatasetPath  string
	ArtifactPath string
	Rows         int
	Pipeline     *Pipeline
}

// Run loads the dataset, fits the pipeline on a stratified training split,
// scores it on the held-out split and saves the artifact.
func (s *Service) Run(ctx context.Context, datasetPath, artifactPath string) (*Result, error) {
	runID := uuid.New()
	log := logger.WithFields(logrus.Fields{"run_id": runID.String(), "dataset": datasetPath})
	s.startRun(ctx, runID, datasetPath)

	ds, err := LoadDataset(datasetPath)
	if err != nil {
		return nil, s.failRun(ctx, runID, err)
	}
	log.WithField("rows", ds.Len()).Info("Dataset loaded")
	if s.registry != nil {
		if err := s.registry.SetRows(ctx, runID, ds.Len()); err != nil {
			log.WithError(err).Warn("failed to record row count")
		}
	}

	trainRows, testRows, err := split.StratifiedSplit(ds.Labels, s.opts.TestFraction, s.opts.Seed)
	if err != nil {
		return nil, s.failRun(ctx, runID, DataLoadError{Path: datasetPath, reason: err})
	}
	trainObs, trainLabels := ds.subset(trainRows)
	testObs, testLabels := ds.subset(testRows)
	log.WithFields(logrus.Fields{"train_rows": len(trainRows), "test_rows": len(testRows)}).Info("Dataset split")

	ct := preprocess.FromSchema()
	if err := ct.Fit(trainObs); err != nil {
		return nil, s.failRun(ctx, runID, DataLoadError{Path: datasetPath, reason: fmt.Errorf("fit preprocessor: %w", err)})
	}
	trainX, err := ct.TransformAll(trainObs)
	if err != nil {
		return nil, s.failRun(ctx, runID, DataLoadError{Path: datasetPath, reason: fmt.Errorf("transform training split: %w", err)})
	}

	log.Info("Training model")
	weights, solverMetrics, err := linear.TrainLogistic(trainX, toFloat(trainLabels), s.opts.Linear)
	if err != nil {
		return nil, s.failRun(ctx, runID, fmt.Errorf("fit classifier: %w", err))
	}
	if !solverMetrics.Converged {
		log.WithField("iterations", solverMetrics.Iterations).Warn("solver reached the iteration limit before converging")
	}

	pipeline := &Pipeline{
		Preprocessor: ct,
		Weights:      weights,
		FeatureNames: ct.FeatureNames(),
		Target:       records.ColLongDelay,
		TrainedAt:    time.Now().UTC(),
	}
	eval, err := evaluate(pipeline, testObs, testLabels)
	if err != nil {
		return nil, s.failRun(ctx, runID, DataLoadError{Path: datasetPath, reason: fmt.Errorf("score test split: %w", err)})
	}
	eval.Solver = solverMetrics
	eval.TrainRows = len(trainRows)
	eval.TestRows = len(testRows)
	pipeline.Evaluation = eval

	log.WithFields(logrus.Fields{
		"accuracy":  eval.Accuracy,
		"precision": eval.Precision,
		"recall":    eval.Recall,
		"auc":       eval.AUCText(),
	}).Info("Model evaluated")

	if err := SaveArtifact(artifactPath, pipeline); err != nil {
		return nil, s.failRun(ctx, runID, err)
	}
	log.WithField("artifact", artifactPath).Info("Model saved")

	s.completeRun(ctx, runID, datasetPath, artifactPath, eval)
	return &Result{
		RunID:        runID,
		DatasetPath:  datasetPath,
		ArtifactPath: artifactPath,
		Rows:         ds.Len(),
		Pipeline:     pipeline,
	}, nil
}

func evaluate(p *Pipeline, obs []schema.Observation, labels []int) (Evaluation, error) {
	predicted := make([]int, len(obs))
	scores := make([]float64, len(obs))
	for i, o := range obs {
		prob, err := p.PredictProba(o)
		if err != nil {
			return Evaluation{}, fmt.Errorf("row %d: %w", i, err)
		}
		scores[i] = prob
		if prob > 0.5 {
			predicted[i] = 1
		}
	}

	confusion := metrics.NewConfusion(labels, predicted)
	eval := Evaluation{
		Accuracy:  confusion.Accuracy(),
		Precision: confusion.Precision(),
		Recall:    confusion.Recall(),
		Confusion: confusion,
		Report:    metrics.ClassificationReport(labels, predicted),
	}
	auc, err := metrics.ROCAUC(labels, scores)
	switch {
	case errors.Is(err, metrics.ErrUndefinedAUC):
	case err != nil:
		return Evaluation{}, err
	default:
		eval.AUC = &auc
	}
	return eval, nil
}

func (s *Service) startRun(ctx context.Context, runID uuid.UUID, datasetPath string) {
	if s.registry == nil {
		return
	}
	now := time.Now().UTC()
	run := &RunModel{
		ID:          runID,
		DatasetPath: datasetPath,
		Status:      StatusRunning,
		Options: datatypes.JSONMap{
			"test_fraction":  s.opts.TestFraction,
			"seed":           s.opts.Seed,
			"solver":         s.opts.Linear.Solver,
			"max_iterations": s.opts.Linear.MaxIterations,
			"c":              s.opts.Linear.C,
		},
		CreatedAt: now,
		UpdatedAt: now,
		StartedAt: &now,
	}
	if err := s.registry.Create(ctx, run); err != nil {
		logger.Log.WithError(err).Warn("failed to register training run")
	}
}

func (s *Service) completeRun(ctx context.Context, runID uuid.UUID, datasetPath, artifactPath string, eval Evaluation) {
	summary := eval.Map()
	if s.registry != nil {
		if err := s.registry.UpdateStatus(ctx, runID, StatusCompleted, summary, artifactPath, ""); err != nil {
			logger.Log.WithError(err).Warn("failed to mark training run complete")
		}
		completed := time.Now().UTC()
		if err := s.registry.SetTimestamps(ctx, runID, nil, &completed); err != nil {
			logger.Log.WithError(err).Warn("failed to set completion timestamp")
		}
	}
	if s.publisher != nil {
		data := map[string]interface{}{
			"run_id":        runID.String(),
			"dataset_path":  datasetPath,
			"artifact_path": artifactPath,
			"metrics":       summary,
		}
		if err := s.publisher.PublishEvent(ctx, EventTrainingCompleted, eventSource, data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish training event")
		}
	}
}

// failRun records the failure and hands the error back unchanged.
func (s *Service) failRun(ctx context.Context, runID uuid.UUID, err error) error {
	logger.Log.WithError(err).WithField("run_id", runID.String()).Error("training run failed")
	if s.registry != nil {
		_ = s.registry.UpdateStatus(ctx, runID, StatusFailed, nil, "", err.Error())
		completed := time.Now().UTC()
		_ = s.registry.SetTimestamps(ctx, runID, nil, &completed)
	}
	return err
}

// WriteSummary prints the run the way an operator reads it on a terminal.
func (r *Result) WriteSummary(w io.Writer) {
	eval := r.Pipeline.Evaluation
	fmt.Fprintln(w, "Dataset loaded. Total rows:", r.Rows)
	fmt.Fprintln(w, "Train size:", eval.TrainRows)
	fmt.Fprintln(w, "Test size:", eval.TestRows)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== MODEL PERFORMANCE ===")
	fmt.Fprintln(w, "Accuracy :", eval.Accuracy)
	fmt.Fprintln(w, "Precision:", eval.Precision)
	fmt.Fprintln(w, "Recall   :", eval.Recall)
	fmt.Fprintln(w, "AUC      :", eval.AUCText())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== CLASSIFICATION REPORT ===")
	fmt.Fprintln(w, eval.Report.String())
	fmt.Fprintln(w, "Model saved as", r.ArtifactPath)
}

// ToDomain converts a registry row for display.
func ToDomain(run *RunModel) models.TrainingRun {
	result := models.TrainingRun{
		ID:           run.ID,
		DatasetPath:  run.DatasetPath,
		ArtifactPath: run.ArtifactPath,
		Status:       run.Status,
		Rows:         run.Rows,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
	}
	if run.StartedAt != nil {
		result.StartedAt = *run.StartedAt
	}
	if run.Metrics != nil {
		result.Metrics = map[string]interface{}(run.Metrics)
		result.TrainRows = intMetric(run.Metrics, "train_rows")
		result.TestRows = intMetric(run.Metrics, "test_rows")
	}
	return result
}

func intMetric(m datatypes.JSONMap, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func toFloat(labels []int) []float64 {
	out := make([]float64, len(labels))
	for i, y := range labels {
		out[i] = float64(y)
	}
	return out
}
