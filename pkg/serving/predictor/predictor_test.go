package predictor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/generator"
	"github.com/tbdelay/platform/pkg/ml/linear"
	"github.com/tbdelay/platform/pkg/ml/preprocess"
	"github.com/tbdelay/platform/pkg/schema"
	"github.com/tbdelay/platform/pkg/training"
)

func writeArtifact(t *testing.T, path string, bias float64) {
	t.Helper()
	var rows []schema.Observation
	for _, rec := range generator.New(generator.Options{Seed: 3}).Generate(30) {
		rows = append(rows, rec.Observation())
	}
	ct := preprocess.FromSchema()
	require.NoError(t, ct.Fit(rows))
	p := &training.Pipeline{
		Preprocessor: ct,
		Weights:      linear.Weights{Bias: bias, Coefficients: make([]float64, ct.Width())},
		FeatureNames: ct.FeatureNames(),
	}
	require.NoError(t, training.SaveArtifact(path, p))
}

func TestLoadMissingArtifact(t *testing.T) {
	p := NewPredictor(filepath.Join(t.TempDir(), "model_pipeline.json"))
	assert.False(t, p.Available())

	_, err := p.Load()
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = p.Predict(schema.DefaultObservation())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadCachesUntilFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_pipeline.json")
	writeArtifact(t, path, 0)
	p := NewPredictor(path)
	require.True(t, p.Available())

	first, err := p.Load()
	require.NoError(t, err)
	second, err := p.Load()
	require.NoError(t, err)
	assert.Same(t, first.Pipeline, second.Pipeline)
	assert.Equal(t, first.Version, second.Version)

	prob, err := p.Predict(schema.DefaultObservation())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-12)

	writeArtifact(t, path, 2)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := p.Load()
	require.NoError(t, err)
	assert.NotSame(t, first.Pipeline, third.Pipeline)
	assert.NotEqual(t, first.Version, third.Version)

	prob, err = p.Predict(schema.DefaultObservation())
	require.NoError(t, err)
	assert.Greater(t, prob, 0.5)
}
