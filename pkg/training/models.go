package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// EventTrainingCompleted is published after an artifact is saved.
const EventTrainingCompleted = "training.completed"

type RunModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	DatasetPath  string            `gorm:"column:dataset_path"`
	ArtifactPath string            `gorm:"column:artifact_path"`
	Status       string            `gorm:"column:status"`
	Rows         int               `gorm:"column:rows"`
	Options      datatypes.JSONMap `gorm:"column:options"`
	Metrics      datatypes.JSONMap `gorm:"column:metrics"`
	ErrorMessage string            `gorm:"column:error_message"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
	StartedAt    *time.Time        `gorm:"column:started_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
}

func (RunModel) TableName() string {
	return "training_runs"
}
