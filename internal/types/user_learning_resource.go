package types

import (
	"time"

	"github.com/google/uuid"
)

// UserLearningResource marks a resource the user bookmarked for later.
type UserLearningResource struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_user_resource,unique,priority:1" json:"user_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index:idx_user_resource,unique,priority:2" json:"resource_id"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (UserLearningResource) TableName() string { return "user_learning_resource" }
