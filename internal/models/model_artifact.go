package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModelArtifact registers a persisted demand model. The artifact bytes live at
// Path; this row only records provenance and training metrics.
type ModelArtifact struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Name      string         `gorm:"type:varchar(64);not null;index:idx_artifacts_name_trained"`
	Version   string         `gorm:"type:varchar(36);not null;uniqueIndex"`
	Path      string         `gorm:"type:text;not null"`
	Rows      int            `gorm:"not null;default:0"`
	Metrics   datatypes.JSON `gorm:"column:metrics"`
	TrainedAt time.Time      `gorm:"not null;index:idx_artifacts_name_trained"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (ModelArtifact) TableName() string {
	return "model_artifacts"
}
