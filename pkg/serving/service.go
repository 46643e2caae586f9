package serving

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/models"
	"github.com/tbdelay/platform/pkg/observability/metrics"
	"github.com/tbdelay/platform/pkg/schema"
	"github.com/tbdelay/platform/pkg/serving/predictor"
)

const (
	CategoryHigh      = "HIGH RISK"
	CategoryLowMedium = "LOW / MEDIUM RISK"

	Disclaimer = "This MVP is for educational purposes and not a medical diagnostic tool."

	DefaultThreshold = 0.5
)

// InputError reports a submission outside the form's domains.
type InputError struct {
	reason error
}

func (e InputError) Error() string {
	return e.reason.Error()
}

func (e InputError) Unwrap() error {
	return e.reason
}

func IsInputError(err error) bool {
	var ie InputError
	return errors.As(err, &ie)
}

// ModelSource yields the current pipeline. *predictor.Predictor satisfies it.
type ModelSource interface {
	Load() (predictor.Model, error)
}

// Cache stores probabilities by model version and input fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, probability float64) error
}

// PredictionLogger persists served predictions. *Repository satisfies it.
type PredictionLogger interface {
	RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error
}

type Assessment struct {
	Probability     float64
	Category        string
	Threshold       float64
	Recommendations []string
	Disclaimer      string
	Cached          bool
	Latency         time.Duration
}

func (a Assessment) HighRisk() bool {
	return a.Category == CategoryHigh
}

func (a Assessment) Response(patientID string) models.PredictionResponse {
	return models.PredictionResponse{
		PatientID:       patientID,
		Probability:     a.Probability,
		Category:        a.Category,
		Threshold:       a.Threshold,
		Recommendations: a.Recommendations,
		Disclaimer:      a.Disclaimer,
		Latency:         a.Latency,
	}
}

type Service struct {
	models    ModelSource
	threshold float64
	cache     Cache
	log       PredictionLogger
}

// NewService builds the assessment service. cache and log may be nil.
func NewService(source ModelSource, threshold float64, cache Cache, log PredictionLogger) *Service {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Service{models: source, threshold: threshold, cache: cache, log: log}
}

func (s *Service) Threshold() float64 {
	return s.threshold
}

// Assess scores an anonymous submission.
func (s *Service) Assess(ctx context.Context, obs schema.Observation) (Assessment, error) {
	return s.AssessPatient(ctx, "", obs)
}

// AssessPatient validates the inputs, scores them and applies the triage
// rules. A probability strictly above the threshold is high risk.
func (s *Service) AssessPatient(ctx context.Context, patientID string, obs schema.Observation) (Assessment, error) {
	start := time.Now()
	if err := schema.Validate(obs); err != nil {
		metrics.ObserveRejectedInput()
		return Assessment{}, InputError{reason: err}
	}

	model, err := s.models.Load()
	if err != nil {
		if errors.Is(err, predictor.ErrModelNotFound) {
			metrics.ObserveModelUnavailable()
		}
		return Assessment{}, err
	}

	values := ObservationValues(obs)
	key := cacheKey(model.Version, values)
	prob, cached := s.lookup(ctx, key)
	if !cached {
		prob, err = model.Pipeline.PredictProba(obs)
		if err != nil {
			return Assessment{}, err
		}
		s.store(ctx, key, prob)
	}

	a := Assessment{
		Probability:     prob,
		Category:        CategoryLowMedium,
		Threshold:       s.threshold,
		Recommendations: Recommendations(obs),
		Disclaimer:      Disclaimer,
		Cached:          cached,
	}
	if prob > s.threshold {
		a.Category = CategoryHigh
	}
	a.Latency = time.Since(start)
	metrics.ObservePrediction(a.HighRisk(), a.Latency.Microseconds())

	logger.Log.WithFields(map[string]interface{}{
		"patient_id":    patientID,
		"probability":   a.Probability,
		"category":      a.Category,
		"cached":        a.Cached,
		"model_version": model.Version,
		"latency_ms":    a.Latency.Milliseconds(),
	}).Info("Prediction completed")

	if s.log != nil {
		req := models.PredictionRequest{PatientID: patientID, Features: values}
		if err := s.log.RecordPrediction(ctx, req, a.Response(patientID)); err != nil {
			logger.Log.WithError(err).Warn("failed to record prediction")
		}
	}
	return a, nil
}

func (s *Service) lookup(ctx context.Context, key string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	prob, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Log.WithError(err).Warn("prediction cache read failed")
		return 0, false
	}
	metrics.ObserveCache(ok)
	return prob, ok
}

func (s *Service) store(ctx context.Context, key string, prob float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, prob); err != nil {
		logger.Log.WithError(err).Warn("prediction cache write failed")
	}
}

// ObservationValues flattens an observation into JSON-friendly values keyed
// by feature name. Missing values are omitted.
func ObservationValues(obs schema.Observation) map[string]interface{} {
	values := make(map[string]interface{})
	for _, f := range schema.Features() {
		if f.Kind == schema.Categorical {
			if v, ok := obs.Category(f.Name); ok {
				values[f.Name] = v
			}
			continue
		}
		if v, ok := obs.Number(f.Name); ok {
			values[f.Name] = v
		}
	}
	return values
}

// cacheKey fingerprints the inputs; json.Marshal sorts map keys.
func cacheKey(version string, values map[string]interface{}) string {
	payload, _ := json.Marshal(values)
	sum := sha256.Sum256(payload)
	return version + ":" + hex.EncodeToString(sum[:])
}
