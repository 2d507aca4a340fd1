package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

// Scope narrows a query; compose with List/Count the way gorm scopes work.
type Scope func(*gorm.DB) *gorm.DB

// Store is the uniform persistence layer every aggregate repo builds on.
// It is mechanical: no business validation happens here. Every method takes
// an optional tx; nil runs against the base handle (auto-commit), a
// transaction handle scopes the call to the caller's unit of work.
type Store[T any] struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStore[T any](db *gorm.DB, baseLog *logger.Logger) *Store[T] {
	return &Store[T]{db: db, log: baseLog.With("repo", "Store")}
}

func (s *Store[T]) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *Store[T]) Add(ctx context.Context, tx *gorm.DB, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	return s.handle(tx).WithContext(ctx).Create(&rows).Error
}

// AddIgnoringDuplicates inserts the rows, silently skipping any that collide
// with an existing unique key. Set-membership writes (votes, saves) use this
// so a concurrent duplicate toggle lands as a no-op instead of an error.
func (s *Store[T]) AddIgnoringDuplicates(ctx context.Context, tx *gorm.DB, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	return s.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// Update persists the full row; gorm.ErrRecordNotFound when the id is absent.
func (s *Store[T]) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, row *T) error {
	h := s.handle(tx).WithContext(ctx)
	var count int64
	if err := h.Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return h.Save(row).Error
}

func (s *Store[T]) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	if err := s.handle(tx).WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store[T]) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*T, error) {
	var rows []*T
	if len(ids) == 0 {
		return rows, nil
	}
	if err := s.handle(tx).WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store[T]) List(ctx context.Context, tx *gorm.DB, scopes ...Scope) ([]*T, error) {
	var rows []*T
	q := s.handle(tx).WithContext(ctx).Model(new(T))
	for _, sc := range scopes {
		q = sc(q)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store[T]) Count(ctx context.Context, tx *gorm.DB, scopes ...Scope) (int64, error) {
	var count int64
	q := s.handle(tx).WithContext(ctx).Model(new(T))
	for _, sc := range scopes {
		q = sc(q)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store[T]) Delete(ctx context.Context, tx *gorm.DB, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	return s.handle(tx).WithContext(ctx).Delete(&rows).Error
}

// DeleteWhere removes every row matching the condition; join-table cleanup
// during cascades goes through here.
func (s *Store[T]) DeleteWhere(ctx context.Context, tx *gorm.DB, query string, args ...interface{}) error {
	return s.handle(tx).WithContext(ctx).Where(query, args...).Delete(new(T)).Error
}

// Where builds a condition scope.
func Where(query string, args ...interface{}) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}

// OrderBy applies an ordering clause.
func OrderBy(expr string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(expr) }
}

// Paginate applies creation-ordered paging; page is 1-based.
func Paginate(page, pageSize int) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
