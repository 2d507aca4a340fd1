package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

// TaxonomyRepo serves the three name-keyed taxonomy tables (grade, subject,
// tag). They share a shape, so the repo is generic over the entity type.
type TaxonomyRepo[T any] struct {
	*Store[T]
}

func NewTaxonomyRepo[T any](db *gorm.DB, baseLog *logger.Logger) *TaxonomyRepo[T] {
	return &TaxonomyRepo[T]{Store: NewStore[T](db, baseLog)}
}

// NameExists reports whether another live row already uses the name,
// case-insensitively. excludeID skips the row being edited.
func (r *TaxonomyRepo[T]) NameExists(ctx context.Context, tx *gorm.DB, name string, excludeID uuid.UUID) (bool, error) {
	q := r.handle(tx).WithContext(ctx).
		Model(new(T)).
		Where("lower(name) = lower(?)", name)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
