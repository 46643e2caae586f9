package models

import (
	"time"

	"github.com/google/uuid"
)

// Event bus envelope
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // training.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Model Training
type TrainingRun struct {
	ID           uuid.UUID              `json:"id"`
	DatasetPath  string                 `json:"dataset_path"`
	ArtifactPath string                 `json:"artifact_path,omitempty"`
	Status       string                 `json:"status"`
	Rows         int                    `json:"rows"`
	TrainRows    int                    `json:"train_rows"`
	TestRows     int                    `json:"test_rows"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// Model Serving
type PredictionRequest struct {
	PatientID string                 `json:"patient_id,omitempty"`
	Features  map[string]interface{} `json:"features"`
}

type PredictionResponse struct {
	PatientID       string        `json:"patient_id,omitempty"`
	Probability     float64       `json:"probability"`
	Category        string        `json:"category"`
	Threshold       float64       `json:"threshold"`
	Recommendations []string      `json:"recommendations"`
	Disclaimer      string        `json:"disclaimer"`
	Latency         time.Duration `json:"latency"`
}
