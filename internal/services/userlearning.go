package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/pkg/ctxutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

// UserLearningService tracks per-user saved items and votes. Every toggle is
// idempotent set membership, so concurrent double-toggles are safe without
// any in-process locking.
type UserLearningService interface {
	SetResourceSaved(ctx context.Context, resourceID uuid.UUID, saved bool) error
	SetModuleSaved(ctx context.Context, moduleID uuid.UUID, saved bool) error
	SetResourceVote(ctx context.Context, resourceID uuid.UUID, upvoted bool) error
	SetModuleVote(ctx context.Context, moduleID uuid.UUID, upvoted bool) error

	// QueryResources returns the caller's learning view: saved items only
	// when isSaved, otherwise the full catalog, in creation order.
	QueryResources(ctx context.Context, searchText string, isSaved bool) ([]*types.ResourceDetail, error)
	QueryModules(ctx context.Context, searchText string, isSaved bool) ([]*types.LearningModuleDetail, error)
}

type userLearningService struct {
	db              *gorm.DB
	log             *logger.Logger
	userRepo        repos.UserLearningRepo
	resourceRepo    repos.ResourceRepo
	moduleRepo      repos.ModuleRepo
	resourceService ResourceService
	moduleService   ModuleService
}

func NewUserLearningService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserLearningRepo,
	resourceRepo repos.ResourceRepo,
	moduleRepo repos.ModuleRepo,
	resourceService ResourceService,
	moduleService ModuleService,
) UserLearningService {
	return &userLearningService{
		db:              db,
		log:             baseLog.With("service", "UserLearningService"),
		userRepo:        userRepo,
		resourceRepo:    resourceRepo,
		moduleRepo:      moduleRepo,
		resourceService: resourceService,
		moduleService:   moduleService,
	}
}

func (us *userLearningService) requireUser(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.New(401, apierr.CodeUnauthorized, errors.New("no authenticated user on request"))
	}
	return rd.UserID, nil
}

func (us *userLearningService) resourceExists(ctx context.Context, id uuid.UUID) error {
	if _, err := us.resourceRepo.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("resource")
		}
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) moduleExists(ctx context.Context, id uuid.UUID) error {
	if _, err := us.moduleRepo.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("learning module")
		}
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) SetResourceSaved(ctx context.Context, resourceID uuid.UUID, saved bool) error {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return err
	}
	if err := us.resourceExists(ctx, resourceID); err != nil {
		return err
	}
	if saved {
		err = us.userRepo.SaveResource(ctx, nil, userID, resourceID)
	} else {
		err = us.userRepo.UnsaveResource(ctx, nil, userID, resourceID)
	}
	if err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) SetModuleSaved(ctx context.Context, moduleID uuid.UUID, saved bool) error {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return err
	}
	if err := us.moduleExists(ctx, moduleID); err != nil {
		return err
	}
	if saved {
		err = us.userRepo.SaveModule(ctx, nil, userID, moduleID)
	} else {
		err = us.userRepo.UnsaveModule(ctx, nil, userID, moduleID)
	}
	if err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) SetResourceVote(ctx context.Context, resourceID uuid.UUID, upvoted bool) error {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return err
	}
	if err := us.resourceExists(ctx, resourceID); err != nil {
		return err
	}
	if upvoted {
		err = us.resourceRepo.AddVote(ctx, nil, resourceID, userID)
	} else {
		err = us.resourceRepo.RemoveVote(ctx, nil, resourceID, userID)
	}
	if err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) SetModuleVote(ctx context.Context, moduleID uuid.UUID, upvoted bool) error {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return err
	}
	if err := us.moduleExists(ctx, moduleID); err != nil {
		return err
	}
	if upvoted {
		err = us.moduleRepo.AddVote(ctx, nil, moduleID, userID)
	} else {
		err = us.moduleRepo.RemoveVote(ctx, nil, moduleID, userID)
	}
	if err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (us *userLearningService) QueryResources(ctx context.Context, searchText string, isSaved bool) ([]*types.ResourceDetail, error) {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	scopes := []repos.Scope{repos.OrderBy("created_at ASC")}
	if isSaved {
		savedIDs, err := us.userRepo.SavedResourceIDs(ctx, nil, userID)
		if err != nil {
			return nil, apierr.Storage(err)
		}
		if len(savedIDs) == 0 {
			return []*types.ResourceDetail{}, nil
		}
		scopes = append(scopes, repos.Where("id IN ?", savedIDs))
	}
	if search := strings.TrimSpace(searchText); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		scopes = append(scopes, repos.Where("lower(title) LIKE ? OR lower(description) LIKE ?", pattern, pattern))
	}
	rows, err := us.resourceRepo.List(ctx, nil, scopes...)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	details, err := us.resourceService.Details(ctx, rows, userID)
	if err != nil {
		return nil, apierr.From(err)
	}
	return details, nil
}

func (us *userLearningService) QueryModules(ctx context.Context, searchText string, isSaved bool) ([]*types.LearningModuleDetail, error) {
	userID, err := us.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	scopes := []repos.Scope{repos.OrderBy("created_at ASC")}
	if isSaved {
		savedIDs, err := us.userRepo.SavedModuleIDs(ctx, nil, userID)
		if err != nil {
			return nil, apierr.Storage(err)
		}
		if len(savedIDs) == 0 {
			return []*types.LearningModuleDetail{}, nil
		}
		scopes = append(scopes, repos.Where("id IN ?", savedIDs))
	}
	if search := strings.TrimSpace(searchText); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		scopes = append(scopes, repos.Where("lower(title) LIKE ? OR lower(description) LIKE ?", pattern, pattern))
	}
	rows, err := us.moduleRepo.List(ctx, nil, scopes...)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	details, err := us.moduleService.Details(ctx, rows, userID)
	if err != nil {
		return nil, apierr.From(err)
	}
	return details, nil
}
