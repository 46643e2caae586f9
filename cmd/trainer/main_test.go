package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/common/models"
	"github.com/tbdelay/platform/pkg/generator"
	"github.com/tbdelay/platform/pkg/training"
)

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tb.csv")
	output := filepath.Join(dir, "model_pipeline.json")
	_, err := generator.WriteDataset(input, generator.Options{Rows: 200, Seed: 3})
	require.NoError(t, err)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--input", input, "--output", output})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "=== MODEL PERFORMANCE ===")
	assert.Contains(t, stdout.String(), "Model saved as "+output)

	p, err := training.LoadArtifact(output)
	require.NoError(t, err)
	assert.Equal(t, 160, p.Evaluation.TrainRows)
	assert.Equal(t, 40, p.Evaluation.TestRows)
}

func TestTrainCommandMissingDataset(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--input", filepath.Join(dir, "absent.csv"), "--output", filepath.Join(dir, "m.json")})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, training.IsDataLoadError(err))
}

type memoryRuns struct {
	runs  []training.RunModel
	limit int
}

func (m *memoryRuns) Get(_ context.Context, runID uuid.UUID) (*training.RunModel, error) {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			return &m.runs[i], nil
		}
	}
	return nil, training.ErrRunNotFound
}

func (m *memoryRuns) List(_ context.Context, limit int) ([]training.RunModel, error) {
	m.limit = limit
	return m.runs, nil
}

func sampleRuns() *memoryRuns {
	return &memoryRuns{runs: []training.RunModel{
		{
			ID:          uuid.New(),
			DatasetPath: "tb_dummy_500.csv",
			Status:      training.StatusCompleted,
			Rows:        500,
			Metrics:     map[string]interface{}{"train_rows": 400.0, "test_rows": 100.0},
		},
		{ID: uuid.New(), DatasetPath: "broken.csv", Status: training.StatusFailed, ErrorMessage: "load dataset broken.csv: EOF"},
	}}
}

func TestShowRunsLists(t *testing.T) {
	store := sampleRuns()
	var out bytes.Buffer
	require.NoError(t, showRuns(context.Background(), &out, store, "", 5))
	assert.Equal(t, 5, store.limit)

	var runs []models.TrainingRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, 400, runs[0].TrainRows)
	assert.Equal(t, training.StatusFailed, runs[1].Status)
}

func TestShowRunsByID(t *testing.T) {
	store := sampleRuns()
	want := store.runs[1]

	var out bytes.Buffer
	require.NoError(t, showRuns(context.Background(), &out, store, want.ID.String(), 20))
	var run models.TrainingRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &run))
	assert.Equal(t, want.ID, run.ID)
	assert.Equal(t, "load dataset broken.csv: EOF", run.ErrorMessage)

	err := showRuns(context.Background(), &out, store, uuid.NewString(), 20)
	assert.ErrorIs(t, err, training.ErrRunNotFound)

	err = showRuns(context.Background(), &out, store, "not-a-uuid", 20)
	assert.ErrorContains(t, err, "invalid run id")
}
