package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

// UserLearningRepo owns the per-user saved-item markers. Saves behave as set
// membership: adding an existing pair and removing a missing pair are no-ops.
type UserLearningRepo interface {
	SaveResource(ctx context.Context, tx *gorm.DB, userID, resourceID uuid.UUID) error
	UnsaveResource(ctx context.Context, tx *gorm.DB, userID, resourceID uuid.UUID) error
	SavedResourceIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	SavedResourcesByUser(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error)
	DeleteSavedForResource(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error

	SaveModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error
	UnsaveModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error
	SavedModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	SavedModulesByUser(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error)
	DeleteSavedForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error
}

type userLearningRepo struct {
	log            *logger.Logger
	savedResources *Store[types.UserLearningResource]
	savedModules   *Store[types.UserLearningModule]
}

func NewUserLearningRepo(db *gorm.DB, baseLog *logger.Logger) UserLearningRepo {
	return &userLearningRepo{
		log:            baseLog.With("repo", "UserLearningRepo"),
		savedResources: NewStore[types.UserLearningResource](db, baseLog),
		savedModules:   NewStore[types.UserLearningModule](db, baseLog),
	}
}

func (ur *userLearningRepo) SaveResource(ctx context.Context, tx *gorm.DB, userID, resourceID uuid.UUID) error {
	return ur.savedResources.AddIgnoringDuplicates(ctx, tx, &types.UserLearningResource{
		ID:         uuid.New(),
		UserID:     userID,
		ResourceID: resourceID,
	})
}

func (ur *userLearningRepo) UnsaveResource(ctx context.Context, tx *gorm.DB, userID, resourceID uuid.UUID) error {
	return ur.savedResources.DeleteWhere(ctx, tx, "user_id = ? AND resource_id = ?", userID, resourceID)
}

func (ur *userLearningRepo) SavedResourceIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := ur.savedResources.List(ctx, tx, Where("user_id = ?", userID), OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ResourceID)
	}
	return ids, nil
}

func (ur *userLearningRepo) SavedResourcesByUser(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(resourceIDs))
	if len(resourceIDs) == 0 || userID == uuid.Nil {
		return out, nil
	}
	rows, err := ur.savedResources.List(ctx, tx, Where("resource_id IN ? AND user_id = ?", resourceIDs, userID))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ResourceID] = true
	}
	return out, nil
}

func (ur *userLearningRepo) DeleteSavedForResource(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) error {
	return ur.savedResources.DeleteWhere(ctx, tx, "resource_id = ?", resourceID)
}

func (ur *userLearningRepo) SaveModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error {
	return ur.savedModules.AddIgnoringDuplicates(ctx, tx, &types.UserLearningModule{
		ID:               uuid.New(),
		UserID:           userID,
		LearningModuleID: moduleID,
	})
}

func (ur *userLearningRepo) UnsaveModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) error {
	return ur.savedModules.DeleteWhere(ctx, tx, "user_id = ? AND learning_module_id = ?", userID, moduleID)
}

func (ur *userLearningRepo) SavedModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := ur.savedModules.List(ctx, tx, Where("user_id = ?", userID), OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.LearningModuleID)
	}
	return ids, nil
}

func (ur *userLearningRepo) SavedModulesByUser(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(moduleIDs))
	if len(moduleIDs) == 0 || userID == uuid.Nil {
		return out, nil
	}
	rows, err := ur.savedModules.List(ctx, tx, Where("learning_module_id IN ? AND user_id = ?", moduleIDs, userID))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LearningModuleID] = true
	}
	return out, nil
}

func (ur *userLearningRepo) DeleteSavedForModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error {
	return ur.savedModules.DeleteWhere(ctx, tx, "learning_module_id = ?", moduleID)
}
