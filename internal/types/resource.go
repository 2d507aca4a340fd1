package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResourceType values stored in resource.type. A resource carries either an
// uploaded attachment (document, slide, spreadsheet, pdf) or an external link.
const (
	ResourceTypeDocument    = "document"
	ResourceTypeSlide       = "slide"
	ResourceTypeSpreadsheet = "spreadsheet"
	ResourceTypePDF         = "pdf"
	ResourceTypeLink        = "link"
)

type Resource struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null;index" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Type        string    `gorm:"column:type;not null" json:"type"`

	GradeID   uuid.UUID `gorm:"type:uuid;not null;index" json:"grade_id"`
	Grade     *Grade    `gorm:"foreignKey:GradeID;references:ID" json:"grade,omitempty"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject   *Subject  `gorm:"foreignKey:SubjectID;references:ID" json:"subject,omitempty"`

	// Blob metadata for uploaded attachments; byte transfer lives with the
	// file provider, the catalog only keeps the returned URL.
	AttachmentURL         string `gorm:"column:attachment_url" json:"attachment_url,omitempty"`
	AttachmentFileName    string `gorm:"column:attachment_file_name" json:"attachment_file_name,omitempty"`
	AttachmentContentType string `gorm:"column:attachment_content_type" json:"attachment_content_type,omitempty"`
	LinkURL               string `gorm:"column:link_url" json:"link_url,omitempty"`
	ImageURL              string `gorm:"column:image_url" json:"image_url,omitempty"`

	CreatedBy uuid.UUID      `gorm:"type:uuid;column:created_by;not null;index" json:"created_by"`
	UpdatedBy uuid.UUID      `gorm:"type:uuid;column:updated_by" json:"updated_by"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Resource) TableName() string { return "resource" }
