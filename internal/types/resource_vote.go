package types

import (
	"time"

	"github.com/google/uuid"
)

// ResourceVote presence means the user has upvoted the resource; the pair is
// unique so double votes cannot inflate counts.
type ResourceVote struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_vote,unique,priority:1" json:"resource_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_vote,unique,priority:2" json:"user_id"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ResourceVote) TableName() string { return "resource_vote" }
