package types

import (
	"time"

	"github.com/google/uuid"
)

// ResourceTag is a join row; it exists only as a side effect of resource
// writes and is hard-deleted on reconciliation.
type ResourceTag struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_tag,unique,priority:1" json:"resource_id"`
	TagID      uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_tag,unique,priority:2" json:"tag_id"`
	Tag        *Tag      `gorm:"foreignKey:TagID;references:ID" json:"tag,omitempty"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ResourceTag) TableName() string { return "resource_tag" }
