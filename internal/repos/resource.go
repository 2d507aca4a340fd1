package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

type ResourceRepo interface {
	Add(ctx context.Context, tx *gorm.DB, r *types.Resource) error
	Update(ctx context.Context, tx *gorm.DB, r *types.Resource) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Resource, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Resource, error)
	List(ctx context.Context, tx *gorm.DB, scopes ...Scope) ([]*types.Resource, error)
	Delete(ctx context.Context, tx *gorm.DB, r *types.Resource) error
	TitleExists(ctx context.Context, tx *gorm.DB, title string, excludeID uuid.UUID) (bool, error)
	CountByGradeOrSubject(ctx context.Context, tx *gorm.DB, gradeIDs, subjectIDs []uuid.UUID) (int64, error)

	TagIDs(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) ([]uuid.UUID, error)
	AddTags(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, tagIDs []uuid.UUID) error
	RemoveTags(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, tagIDs []uuid.UUID) error
	TagsByResource(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) (map[uuid.UUID][]*types.Tag, error)
	ResourceIDsByTags(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) ([]uuid.UUID, error)
	DeleteTagJoins(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) error

	VoteCounts(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	VotedByUser(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error)
	AddVote(ctx context.Context, tx *gorm.DB, resourceID, userID uuid.UUID) error
	RemoveVote(ctx context.Context, tx *gorm.DB, resourceID, userID uuid.UUID) error

	// DeleteJoinRows clears the joins owned by one resource (tags, votes).
	DeleteJoinRows(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error
}

type resourceRepo struct {
	log       *logger.Logger
	resources *Store[types.Resource]
	tags      *Store[types.ResourceTag]
	votes     *Store[types.ResourceVote]
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{
		log:       baseLog.With("repo", "ResourceRepo"),
		resources: NewStore[types.Resource](db, baseLog),
		tags:      NewStore[types.ResourceTag](db, baseLog),
		votes:     NewStore[types.ResourceVote](db, baseLog),
	}
}

func (rr *resourceRepo) Add(ctx context.Context, tx *gorm.DB, r *types.Resource) error {
	return rr.resources.Add(ctx, tx, r)
}

func (rr *resourceRepo) Update(ctx context.Context, tx *gorm.DB, r *types.Resource) error {
	return rr.resources.Update(ctx, tx, r.ID, r)
}

func (rr *resourceRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Resource, error) {
	return rr.resources.GetByID(ctx, tx, id)
}

func (rr *resourceRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Resource, error) {
	return rr.resources.GetByIDs(ctx, tx, ids)
}

func (rr *resourceRepo) List(ctx context.Context, tx *gorm.DB, scopes ...Scope) ([]*types.Resource, error) {
	return rr.resources.List(ctx, tx, scopes...)
}

func (rr *resourceRepo) Delete(ctx context.Context, tx *gorm.DB, r *types.Resource) error {
	return rr.resources.Delete(ctx, tx, r)
}

func (rr *resourceRepo) TitleExists(ctx context.Context, tx *gorm.DB, title string, excludeID uuid.UUID) (bool, error) {
	scopes := []Scope{Where("lower(title) = lower(?)", title)}
	if excludeID != uuid.Nil {
		scopes = append(scopes, Where("id <> ?", excludeID))
	}
	count, err := rr.resources.Count(ctx, tx, scopes...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (rr *resourceRepo) CountByGradeOrSubject(ctx context.Context, tx *gorm.DB, gradeIDs, subjectIDs []uuid.UUID) (int64, error) {
	if len(gradeIDs) == 0 && len(subjectIDs) == 0 {
		return 0, nil
	}
	q := rr.resources.handle(tx).WithContext(ctx).Model(&types.Resource{})
	switch {
	case len(gradeIDs) > 0 && len(subjectIDs) > 0:
		q = q.Where("grade_id IN ? OR subject_id IN ?", gradeIDs, subjectIDs)
	case len(gradeIDs) > 0:
		q = q.Where("grade_id IN ?", gradeIDs)
	default:
		q = q.Where("subject_id IN ?", subjectIDs)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (rr *resourceRepo) TagIDs(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := rr.tags.List(ctx, tx, Where("resource_id = ?", resourceID))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TagID)
	}
	return ids, nil
}

func (rr *resourceRepo) AddTags(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, tagIDs []uuid.UUID) error {
	rows := make([]*types.ResourceTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, &types.ResourceTag{ID: uuid.New(), ResourceID: resourceID, TagID: tagID})
	}
	return rr.tags.Add(ctx, tx, rows...)
}

func (rr *resourceRepo) RemoveTags(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return rr.tags.DeleteWhere(ctx, tx, "resource_id = ? AND tag_id IN ?", resourceID, tagIDs)
}

func (rr *resourceRepo) TagsByResource(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) (map[uuid.UUID][]*types.Tag, error) {
	out := make(map[uuid.UUID][]*types.Tag, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	var rows []*types.ResourceTag
	if err := rr.tags.handle(tx).WithContext(ctx).
		Preload("Tag").
		Where("resource_id IN ?", resourceIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Tag == nil {
			continue
		}
		out[row.ResourceID] = append(out[row.ResourceID], row.Tag)
	}
	return out, nil
}

func (rr *resourceRepo) ResourceIDsByTags(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	rows, err := rr.tags.List(ctx, tx, Where("tag_id IN ?", tagIDs))
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ResourceID]; ok {
			continue
		}
		seen[row.ResourceID] = struct{}{}
		ids = append(ids, row.ResourceID)
	}
	return ids, nil
}

func (rr *resourceRepo) DeleteTagJoins(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return rr.tags.DeleteWhere(ctx, tx, "tag_id IN ?", tagIDs)
}

func (rr *resourceRepo) VoteCounts(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ResourceID uuid.UUID
		Count      int64
	}
	if err := rr.votes.handle(tx).WithContext(ctx).
		Model(&types.ResourceVote{}).
		Select("resource_id, count(*) as count").
		Where("resource_id IN ?", resourceIDs).
		Group("resource_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ResourceID] = row.Count
	}
	return out, nil
}

func (rr *resourceRepo) VotedByUser(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(resourceIDs))
	if len(resourceIDs) == 0 || userID == uuid.Nil {
		return out, nil
	}
	rows, err := rr.votes.List(ctx, tx, Where("resource_id IN ? AND user_id = ?", resourceIDs, userID))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ResourceID] = true
	}
	return out, nil
}

// AddVote inserts the (resource, user) pair if absent; present is a no-op.
func (rr *resourceRepo) AddVote(ctx context.Context, tx *gorm.DB, resourceID, userID uuid.UUID) error {
	return rr.votes.AddIgnoringDuplicates(ctx, tx, &types.ResourceVote{ID: uuid.New(), ResourceID: resourceID, UserID: userID})
}

func (rr *resourceRepo) RemoveVote(ctx context.Context, tx *gorm.DB, resourceID, userID uuid.UUID) error {
	return rr.votes.DeleteWhere(ctx, tx, "resource_id = ? AND user_id = ?", resourceID, userID)
}

func (rr *resourceRepo) DeleteJoinRows(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error {
	if err := rr.tags.DeleteWhere(ctx, tx, "resource_id = ?", resourceID); err != nil {
		return err
	}
	return rr.votes.DeleteWhere(ctx, tx, "resource_id = ?", resourceID)
}
