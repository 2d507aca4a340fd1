package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LearningModule is a curated bundle of resources sharing a grade/subject
// classification. Membership lives in ResourceModuleMapping rows.
type LearningModule struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null;index" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`

	GradeID   uuid.UUID `gorm:"type:uuid;not null;index" json:"grade_id"`
	Grade     *Grade    `gorm:"foreignKey:GradeID;references:ID" json:"grade,omitempty"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject   *Subject  `gorm:"foreignKey:SubjectID;references:ID" json:"subject,omitempty"`

	ImageURL string `gorm:"column:image_url" json:"image_url,omitempty"`

	CreatedBy uuid.UUID      `gorm:"type:uuid;column:created_by;not null;index" json:"created_by"`
	UpdatedBy uuid.UUID      `gorm:"type:uuid;column:updated_by" json:"updated_by"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningModule) TableName() string { return "learning_module" }
