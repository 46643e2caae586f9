package serving

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tbdelay/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for served predictions.
type PredictionLog struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PatientID       string            `gorm:"column:patient_id" json:"patient_id,omitempty"`
	Inputs          datatypes.JSONMap `gorm:"column:inputs" json:"inputs"`
	Probability     float64           `gorm:"column:probability" json:"probability"`
	Category        string            `gorm:"column:category" json:"category"`
	Threshold       float64           `gorm:"column:threshold" json:"threshold"`
	Recommendations datatypes.JSON    `gorm:"column:recommendations" json:"recommendations"`
	LatencyMs       float64           `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, req models.PredictionRequest, resp models.PredictionResponse) error {
	log := NewPredictionLog(req, resp)
	return r.db.WithContext(ctx).Create(&log).Error
}

func NewPredictionLog(req models.PredictionRequest, resp models.PredictionResponse) PredictionLog {
	recs := datatypes.JSON("[]")
	if len(resp.Recommendations) > 0 {
		if payload, err := json.Marshal(resp.Recommendations); err == nil {
			recs = datatypes.JSON(payload)
		}
	}
	return PredictionLog{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		Inputs:          datatypes.JSONMap(req.Features),
		Probability:     resp.Probability,
		Category:        resp.Category,
		Threshold:       resp.Threshold,
		Recommendations: recs,
		LatencyMs:       float64(resp.Latency.Microseconds()) / 1000.0,
		CreatedAt:       time.Now().UTC(),
	}
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
