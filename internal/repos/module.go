package repos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

type ModuleRepo interface {
	Add(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error
	Update(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LearningModule, error)
	List(ctx context.Context, tx *gorm.DB, scopes ...Scope) ([]*types.LearningModule, error)
	Delete(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error
	TitleExists(ctx context.Context, tx *gorm.DB, title string, excludeID uuid.UUID) (bool, error)
	CountByGradeOrSubject(ctx context.Context, tx *gorm.DB, gradeIDs, subjectIDs []uuid.UUID) (int64, error)

	TagIDs(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error)
	AddTags(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, tagIDs []uuid.UUID) error
	RemoveTags(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, tagIDs []uuid.UUID) error
	TagsByModule(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID][]*types.Tag, error)
	ModuleIDsByTags(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) ([]uuid.UUID, error)
	DeleteTagJoins(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) error

	VoteCounts(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	VotedByUser(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error)
	AddVote(ctx context.Context, tx *gorm.DB, moduleID, userID uuid.UUID) error
	RemoveVote(ctx context.Context, tx *gorm.DB, moduleID, userID uuid.UUID) error

	MemberResourceIDs(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error)
	AddMembers(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, resourceIDs []uuid.UUID, createdBy uuid.UUID) error
	RemoveMembers(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, resourceIDs []uuid.UUID) error
	MappingsByModule(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID][]*types.ResourceModuleMapping, error)
	DeleteMappingsForResource(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error

	// DeleteJoinRows clears everything one module owns: tags, votes, mappings.
	DeleteJoinRows(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error
}

type moduleRepo struct {
	log      *logger.Logger
	modules  *Store[types.LearningModule]
	tags     *Store[types.LearningModuleTag]
	votes    *Store[types.LearningModuleVote]
	mappings *Store[types.ResourceModuleMapping]
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{
		log:      baseLog.With("repo", "ModuleRepo"),
		modules:  NewStore[types.LearningModule](db, baseLog),
		tags:     NewStore[types.LearningModuleTag](db, baseLog),
		votes:    NewStore[types.LearningModuleVote](db, baseLog),
		mappings: NewStore[types.ResourceModuleMapping](db, baseLog),
	}
}

func (mr *moduleRepo) Add(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error {
	return mr.modules.Add(ctx, tx, m)
}

func (mr *moduleRepo) Update(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error {
	return mr.modules.Update(ctx, tx, m.ID, m)
}

func (mr *moduleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.LearningModule, error) {
	return mr.modules.GetByID(ctx, tx, id)
}

func (mr *moduleRepo) List(ctx context.Context, tx *gorm.DB, scopes ...Scope) ([]*types.LearningModule, error) {
	return mr.modules.List(ctx, tx, scopes...)
}

func (mr *moduleRepo) Delete(ctx context.Context, tx *gorm.DB, m *types.LearningModule) error {
	return mr.modules.Delete(ctx, tx, m)
}

func (mr *moduleRepo) TitleExists(ctx context.Context, tx *gorm.DB, title string, excludeID uuid.UUID) (bool, error) {
	scopes := []Scope{Where("lower(title) = lower(?)", title)}
	if excludeID != uuid.Nil {
		scopes = append(scopes, Where("id <> ?", excludeID))
	}
	count, err := mr.modules.Count(ctx, tx, scopes...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (mr *moduleRepo) CountByGradeOrSubject(ctx context.Context, tx *gorm.DB, gradeIDs, subjectIDs []uuid.UUID) (int64, error) {
	if len(gradeIDs) == 0 && len(subjectIDs) == 0 {
		return 0, nil
	}
	q := mr.modules.handle(tx).WithContext(ctx).Model(&types.LearningModule{})
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

func (mr *moduleRepo) TagIDs(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := mr.tags.List(ctx, tx, Where("learning_module_id = ?", moduleID))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TagID)
	}
	return ids, nil
}

func (mr *moduleRepo) AddTags(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, tagIDs []uuid.UUID) error {
	rows := make([]*types.LearningModuleTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, &types.LearningModuleTag{ID: uuid.New(), LearningModuleID: moduleID, TagID: tagID})
	}
	return mr.tags.Add(ctx, tx, rows...)
}

func (mr *moduleRepo) RemoveTags(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return mr.tags.DeleteWhere(ctx, tx, "learning_module_id = ? AND tag_id IN ?", moduleID, tagIDs)
}

func (mr *moduleRepo) TagsByModule(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID][]*types.Tag, error) {
	out := make(map[uuid.UUID][]*types.Tag, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []*types.LearningModuleTag
	if err := mr.tags.handle(tx).WithContext(ctx).
		Preload("Tag").
		Where("learning_module_id IN ?", moduleIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Tag == nil {
			continue
		}
		out[row.LearningModuleID] = append(out[row.LearningModuleID], row.Tag)
	}
	return out, nil
}

func (mr *moduleRepo) ModuleIDsByTags(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	rows, err := mr.tags.List(ctx, tx, Where("tag_id IN ?", tagIDs))
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.LearningModuleID]; ok {
			continue
		}
		seen[row.LearningModuleID] = struct{}{}
		ids = append(ids, row.LearningModuleID)
	}
	return ids, nil
}

func (mr *moduleRepo) DeleteTagJoins(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return mr.tags.DeleteWhere(ctx, tx, "tag_id IN ?", tagIDs)
}

func (mr *moduleRepo) VoteCounts(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		LearningModuleID uuid.UUID
		Count            int64
	}
	if err := mr.votes.handle(tx).WithContext(ctx).
		Model(&types.LearningModuleVote{}).
		Select("learning_module_id, count(*) as count").
		Where("learning_module_id IN ?", moduleIDs).
		Group("learning_module_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LearningModuleID] = row.Count
	}
	return out, nil
}

func (mr *moduleRepo) VotedByUser(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(moduleIDs))
	if len(moduleIDs) == 0 || userID == uuid.Nil {
		return out, nil
	}
	rows, err := mr.votes.List(ctx, tx, Where("learning_module_id IN ? AND user_id = ?", moduleIDs, userID))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LearningModuleID] = true
	}
	return out, nil
}

func (mr *moduleRepo) AddVote(ctx context.Context, tx *gorm.DB, moduleID, userID uuid.UUID) error {
	return mr.votes.AddIgnoringDuplicates(ctx, tx, &types.LearningModuleVote{ID: uuid.New(), LearningModuleID: moduleID, UserID: userID})
}

func (mr *moduleRepo) RemoveVote(ctx context.Context, tx *gorm.DB, moduleID, userID uuid.UUID) error {
	return mr.votes.DeleteWhere(ctx, tx, "learning_module_id = ? AND user_id = ?", moduleID, userID)
}

func (mr *moduleRepo) MemberResourceIDs(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := mr.mappings.List(ctx, tx, Where("learning_module_id = ?", moduleID))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ResourceID)
	}
	return ids, nil
}

// AddMembers appends the resources after the module's current members,
// assigning each a sequence position so list order survives batch inserts.
func (mr *moduleRepo) AddMembers(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, resourceIDs []uuid.UUID, createdBy uuid.UUID) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	var maxPos sql.NullInt64
	if err := mr.mappings.handle(tx).WithContext(ctx).
		Model(&types.ResourceModuleMapping{}).
		Where("learning_module_id = ?", moduleID).
		Select("max(position)").
		Scan(&maxPos).Error; err != nil {
		return err
	}
	next := 0
	if maxPos.Valid {
		next = int(maxPos.Int64) + 1
	}
	rows := make([]*types.ResourceModuleMapping, 0, len(resourceIDs))
	for i, resourceID := range resourceIDs {
		rows = append(rows, &types.ResourceModuleMapping{
			ID:               uuid.New(),
			LearningModuleID: moduleID,
			ResourceID:       resourceID,
			Position:         next + i,
			CreatedBy:        createdBy,
		})
	}
	return mr.mappings.Add(ctx, tx, rows...)
}

func (mr *moduleRepo) RemoveMembers(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, resourceIDs []uuid.UUID) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	return mr.mappings.DeleteWhere(ctx, tx, "learning_module_id = ? AND resource_id IN ?", moduleID, resourceIDs)
}

func (mr *moduleRepo) MappingsByModule(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) (map[uuid.UUID][]*types.ResourceModuleMapping, error) {
	out := make(map[uuid.UUID][]*types.ResourceModuleMapping, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []*types.ResourceModuleMapping
	if err := mr.mappings.handle(tx).WithContext(ctx).
		Preload("Resource").
		Preload("Resource.Grade").
		Preload("Resource.Subject").
		Where("learning_module_id IN ?", moduleIDs).
		Order("position ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LearningModuleID] = append(out[row.LearningModuleID], row)
	}
	return out, nil
}

func (mr *moduleRepo) DeleteMappingsForResource(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error {
	return mr.mappings.DeleteWhere(ctx, tx, "resource_id = ?", resourceID)
}

func (mr *moduleRepo) DeleteJoinRows(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error {
	if err := mr.tags.DeleteWhere(ctx, tx, "learning_module_id = ?", moduleID); err != nil {
		return err
	}
	if err := mr.votes.DeleteWhere(ctx, tx, "learning_module_id = ?", moduleID); err != nil {
		return err
	}
	return mr.mappings.DeleteWhere(ctx, tx, "learning_module_id = ?", moduleID)
}
