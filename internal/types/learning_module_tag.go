package types

import (
	"time"

	"github.com/google/uuid"
)

type LearningModuleTag struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearningModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_module_tag,unique,priority:1" json:"learning_module_id"`
	TagID            uuid.UUID `gorm:"type:uuid;not null;index:idx_module_tag,unique,priority:2" json:"tag_id"`
	Tag              *Tag      `gorm:"foreignKey:TagID;references:ID" json:"tag,omitempty"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (LearningModuleTag) TableName() string { return "learning_module_tag" }
