package types

import (
	"time"

	"github.com/google/uuid"
)

type LearningModuleVote struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearningModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_module_vote,unique,priority:1" json:"learning_module_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index:idx_module_vote,unique,priority:2" json:"user_id"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (LearningModuleVote) TableName() string { return "learning_module_vote" }
