package types

import "github.com/google/uuid"

// ResourceDetail is the read model for resource views: base fields plus
// aggregates computed at query time (never materialized).
type ResourceDetail struct {
	Resource
	Tags      []*Tag `json:"tags"`
	VoteCount int64  `json:"vote_count"`
	UserVote  bool   `json:"user_vote"`
	IsSaved   bool   `json:"is_saved"`
}

// ResourceSummary is the membership display row inside a module detail.
type ResourceSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url,omitempty"`
	Grade    *Grade    `json:"grade,omitempty"`
	Subject  *Subject  `json:"subject,omitempty"`
}

type LearningModuleDetail struct {
	LearningModule
	Tags          []*Tag             `json:"tags"`
	Resources     []*ResourceSummary `json:"resources"`
	ResourceCount int                `json:"resource_count"`
	VoteCount     int64              `json:"vote_count"`
	UserVote      bool               `json:"user_vote"`
	IsSaved       bool               `json:"is_saved"`
}
