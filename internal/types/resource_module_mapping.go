package types

import (
	"time"

	"github.com/google/uuid"
)

// ResourceModuleMapping records membership of a resource in a learning
// module. Reconciled by diff on module updates, never written directly.
// Position carries the insertion sequence; batch inserts share a created_at
// timestamp, so ordering on the timestamp alone is not deterministic.
type ResourceModuleMapping struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearningModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_module,unique,priority:1" json:"learning_module_id"`
	ResourceID       uuid.UUID `gorm:"type:uuid;not null;index:idx_resource_module,unique,priority:2" json:"resource_id"`
	Resource         *Resource `gorm:"foreignKey:ResourceID;references:ID" json:"resource,omitempty"`
	Position         int       `gorm:"column:position;not null" json:"position"`
	CreatedBy        uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ResourceModuleMapping) TableName() string { return "resource_module_mapping" }
