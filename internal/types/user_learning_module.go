package types

import (
	"time"

	"github.com/google/uuid"
)

// UserLearningModule marks a learning module the user bookmarked for later.
type UserLearningModule struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index:idx_user_module,unique,priority:1" json:"user_id"`
	LearningModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_user_module,unique,priority:2" json:"learning_module_id"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (UserLearningModule) TableName() string { return "user_learning_module" }
