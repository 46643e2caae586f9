package training

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/ml/linear"
	"github.com/tbdelay/platform/pkg/ml/preprocess"
	"github.com/tbdelay/platform/pkg/schema"
)

func fittedPipeline(t *testing.T, ct *preprocess.ColumnTransformer) *Pipeline {
	t.Helper()
	rows := []schema.Observation{
		patient(0, true).Observation(),
		patient(1, false).Observation(),
		patient(2, true).Observation(),
		patient(3, false).Observation(),
	}
	require.NoError(t, ct.Fit(rows))
	return &Pipeline{
		Preprocessor: ct,
		Weights:      linear.Weights{Coefficients: make([]float64, ct.Width())},
		FeatureNames: ct.FeatureNames(),
	}
}

func TestArtifactRoundTripPredictions(t *testing.T) {
	p := fittedPipeline(t, preprocess.FromSchema())
	p.Weights.Coefficients[0] = 0.05
	p.Weights.Bias = -2
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(path, p))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)

	obs := schema.DefaultObservation()
	want, err := p.PredictProba(obs)
	require.NoError(t, err)
	got, err := loaded.PredictProba(obs)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-(0.05*30-2))), got, 1e-12)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, IsPersistenceError(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadArtifactCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadArtifact(path)
	assert.True(t, IsPersistenceError(err))
}

func TestLoadArtifactSchemaMismatch(t *testing.T) {
	numeric := schema.NumericNames()[:2]
	ct := preprocess.NewColumnTransformer(numeric, schema.CategoricalNames(), schema.PassthroughNames())
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(path, fittedPipeline(t, ct)))

	_, err := LoadArtifact(path)
	require.Error(t, err)
	var se SchemaMismatchError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{schema.DistanceKm}, se.Missing)
}

func TestPredictWithoutPreprocessor(t *testing.T) {
	var p Pipeline
	_, err := p.PredictProba(schema.DefaultObservation())
	assert.ErrorIs(t, err, preprocess.ErrNotFitted)
}
