package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

// ModuleInput is the write payload for create and update. ResourceIDs is the
// full requested membership set; reconciliation handles the diff.
type ModuleInput struct {
	Title       string
	Description string
	GradeID     uuid.UUID
	SubjectID   uuid.UUID
	ImageURL    string
	TagIDs      []uuid.UUID
	ResourceIDs []uuid.UUID
}

type ModuleFilter struct {
	GradeIDs   []uuid.UUID
	SubjectIDs []uuid.UUID
	TagIDs     []uuid.UUID
	CreatedBy  uuid.UUID
	SearchText string
	Page       int
}

type ModuleService interface {
	Create(ctx context.Context, input ModuleInput) (*types.LearningModuleDetail, error)
	Update(ctx context.Context, id uuid.UUID, input ModuleInput) (*types.LearningModuleDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*types.LearningModuleDetail, error)
	Query(ctx context.Context, filter ModuleFilter) ([]*types.LearningModuleDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateTitle(ctx context.Context, title string, excludeID uuid.UUID) (bool, error)
	SetResourceMembership(ctx context.Context, moduleID uuid.UUID, resourceIDs []uuid.UUID) error

	Details(ctx context.Context, rows []*types.LearningModule, userID uuid.UUID) ([]*types.LearningModuleDetail, error)
}

type moduleService struct {
	db           *gorm.DB
	log          *logger.Logger
	moduleRepo   repos.ModuleRepo
	resourceRepo repos.ResourceRepo
	userRepo     repos.UserLearningRepo
	grades       *repos.TaxonomyRepo[types.Grade]
	subjects     *repos.TaxonomyRepo[types.Subject]
	tags         *repos.TaxonomyRepo[types.Tag]
}

func NewModuleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	moduleRepo repos.ModuleRepo,
	resourceRepo repos.ResourceRepo,
	userRepo repos.UserLearningRepo,
	grades *repos.TaxonomyRepo[types.Grade],
	subjects *repos.TaxonomyRepo[types.Subject],
	tags *repos.TaxonomyRepo[types.Tag],
) ModuleService {
	return &moduleService{
		db:           db,
		log:          baseLog.With("service", "ModuleService"),
		moduleRepo:   moduleRepo,
		resourceRepo: resourceRepo,
		userRepo:     userRepo,
		grades:       grades,
		subjects:     subjects,
		tags:         tags,
	}
}

func (ms *moduleService) validateInput(ctx context.Context, tx *gorm.DB, input ModuleInput, excludeID uuid.UUID) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return apierr.Validation("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apierr.Validation("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return apierr.Validation("description", "must not be empty")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return apierr.Validation("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}

	if _, err := ms.grades.GetByID(ctx, tx, input.GradeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.Referential("unknown grade id")
		}
		return apierr.Storage(err)
	}
	if _, err := ms.subjects.GetByID(ctx, tx, input.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.Referential("unknown subject id")
		}
		return apierr.Storage(err)
	}
	if len(input.TagIDs) > 0 {
		found, err := ms.tags.GetByIDs(ctx, tx, input.TagIDs)
		if err != nil {
			return apierr.Storage(err)
		}
		if len(found) != len(dedupe(input.TagIDs)) {
			return apierr.Referential("unknown tag id")
		}
	}
	if err := ms.checkResourceIDs(ctx, tx, input.ResourceIDs); err != nil {
		return err
	}

	exists, err := ms.moduleRepo.TitleExists(ctx, tx, title, excludeID)
	if err != nil {
		return apierr.Storage(err)
	}
	if exists {
		return apierr.DuplicateTitle(title)
	}
	return nil
}

func (ms *moduleService) checkResourceIDs(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) error {
	wanted := dedupe(resourceIDs)
	if len(wanted) == 0 {
		return nil
	}
	found, err := ms.resourceRepo.GetByIDs(ctx, tx, wanted)
	if err != nil {
		return apierr.Storage(err)
	}
	if len(found) != len(wanted) {
		return apierr.Referential("unknown resource id")
	}
	return nil
}

func (ms *moduleService) Create(ctx context.Context, input ModuleInput) (*types.LearningModuleDetail, error) {
	var created *types.LearningModule
	err := ms.db.Transaction(func(tx *gorm.DB) error {
		if err := ms.validateInput(ctx, tx, input, uuid.Nil); err != nil {
			return err
		}
		by := callerID(ctx)
		row := &types.LearningModule{
			ID:          uuid.New(),
			Title:       strings.TrimSpace(input.Title),
			Description: strings.TrimSpace(input.Description),
			GradeID:     input.GradeID,
			SubjectID:   input.SubjectID,
			ImageURL:    input.ImageURL,
			CreatedBy:   by,
			UpdatedBy:   by,
		}
		if err := ms.moduleRepo.Add(ctx, tx, row); err != nil {
			return classifyWriteError(err, apierr.DuplicateTitle(row.Title))
		}
		if err := ms.moduleRepo.AddTags(ctx, tx, row.ID, dedupe(input.TagIDs)); err != nil {
			return err
		}
		if err := ms.moduleRepo.AddMembers(ctx, tx, row.ID, dedupe(input.ResourceIDs), by); err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	return ms.Get(ctx, created.ID)
}

func (ms *moduleService) Update(ctx context.Context, id uuid.UUID, input ModuleInput) (*types.LearningModuleDetail, error) {
	err := ms.db.Transaction(func(tx *gorm.DB) error {
		row, err := ms.moduleRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("learning module")
			}
			return err
		}
		if err := ms.validateInput(ctx, tx, input, id); err != nil {
			return err
		}
		row.Title = strings.TrimSpace(input.Title)
		row.Description = strings.TrimSpace(input.Description)
		row.GradeID = input.GradeID
		row.SubjectID = input.SubjectID
		row.ImageURL = input.ImageURL
		row.UpdatedBy = callerID(ctx)
		if err := ms.moduleRepo.Update(ctx, tx, row); err != nil {
			return classifyWriteError(err, apierr.DuplicateTitle(row.Title))
		}
		if err := ms.reconcileTags(ctx, tx, id, dedupe(input.TagIDs)); err != nil {
			return err
		}
		return ms.reconcileMembers(ctx, tx, id, dedupe(input.ResourceIDs))
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	return ms.Get(ctx, id)
}

func (ms *moduleService) reconcileTags(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, wanted []uuid.UUID) error {
	current, err := ms.moduleRepo.TagIDs(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	toAdd, toRemove := diffIDs(current, wanted)
	if err := ms.moduleRepo.AddTags(ctx, tx, moduleID, toAdd); err != nil {
		return err
	}
	return ms.moduleRepo.RemoveTags(ctx, tx, moduleID, toRemove)
}

func (ms *moduleService) reconcileMembers(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, wanted []uuid.UUID) error {
	current, err := ms.moduleRepo.MemberResourceIDs(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	toAdd, toRemove := diffIDs(current, wanted)
	if err := ms.moduleRepo.AddMembers(ctx, tx, moduleID, toAdd, callerID(ctx)); err != nil {
		return err
	}
	return ms.moduleRepo.RemoveMembers(ctx, tx, moduleID, toRemove)
}

// SetResourceMembership replaces the module's resource set with the
// requested one, reconciling mappings the same way tags are reconciled.
func (ms *moduleService) SetResourceMembership(ctx context.Context, moduleID uuid.UUID, resourceIDs []uuid.UUID) error {
	err := ms.db.Transaction(func(tx *gorm.DB) error {
		if _, err := ms.moduleRepo.GetByID(ctx, tx, moduleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("learning module")
			}
			return err
		}
		if err := ms.checkResourceIDs(ctx, tx, resourceIDs); err != nil {
			return err
		}
		return ms.reconcileMembers(ctx, tx, moduleID, dedupe(resourceIDs))
	})
	if err != nil {
		ms.log.Error("SetResourceMembership failed", "error", err, "module_id", moduleID)
		return apierr.From(err)
	}
	return nil
}

func (ms *moduleService) Get(ctx context.Context, id uuid.UUID) (*types.LearningModuleDetail, error) {
	row, err := ms.moduleRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("learning module")
		}
		return nil, apierr.Storage(err)
	}
	details, err := ms.Details(ctx, []*types.LearningModule{row}, callerID(ctx))
	if err != nil {
		return nil, apierr.From(err)
	}
	return details[0], nil
}

func (ms *moduleService) Query(ctx context.Context, filter ModuleFilter) ([]*types.LearningModuleDetail, error) {
	scopes := []repos.Scope{}
	if len(filter.GradeIDs) > 0 {
		scopes = append(scopes, repos.Where("grade_id IN ?", filter.GradeIDs))
	}
	if len(filter.SubjectIDs) > 0 {
		scopes = append(scopes, repos.Where("subject_id IN ?", filter.SubjectIDs))
	}
	if filter.CreatedBy != uuid.Nil {
		scopes = append(scopes, repos.Where("created_by = ?", filter.CreatedBy))
	}
	if search := strings.TrimSpace(filter.SearchText); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		scopes = append(scopes, repos.Where("lower(title) LIKE ? OR lower(description) LIKE ?", pattern, pattern))
	}
	if len(filter.TagIDs) > 0 {
		ids, err := ms.moduleRepo.ModuleIDsByTags(ctx, nil, filter.TagIDs)
		if err != nil {
			return nil, apierr.Storage(err)
		}
		if len(ids) == 0 {
			return []*types.LearningModuleDetail{}, nil
		}
		scopes = append(scopes, repos.Where("id IN ?", ids))
	}
	scopes = append(scopes, repos.OrderBy("updated_at DESC"), repos.Paginate(filter.Page, catalogPageSize))

	rows, err := ms.moduleRepo.List(ctx, nil, scopes...)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	details, err := ms.Details(ctx, rows, callerID(ctx))
	if err != nil {
		return nil, apierr.From(err)
	}
	return details, nil
}

func (ms *moduleService) Delete(ctx context.Context, id uuid.UUID) error {
	err := ms.db.Transaction(func(tx *gorm.DB) error {
		row, err := ms.moduleRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("learning module")
			}
			return err
		}
		if err := ms.moduleRepo.DeleteJoinRows(ctx, tx, id); err != nil {
			return err
		}
		if err := ms.userRepo.DeleteSavedForModule(ctx, tx, id); err != nil {
			return err
		}
		return ms.moduleRepo.Delete(ctx, tx, row)
	})
	if err != nil {
		ms.log.Error("Delete module failed", "error", err, "module_id", id)
		return apierr.From(err)
	}
	return nil
}

func (ms *moduleService) ValidateTitle(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, apierr.Validation("title", "must not be empty")
	}
	exists, err := ms.moduleRepo.TitleExists(ctx, nil, title, excludeID)
	if err != nil {
		return false, apierr.Storage(err)
	}
	return !exists, nil
}

func (ms *moduleService) Details(ctx context.Context, rows []*types.LearningModule, userID uuid.UUID) ([]*types.LearningModuleDetail, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	tagsByID, err := ms.moduleRepo.TagsByModule(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	voteCounts, err := ms.moduleRepo.VoteCounts(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	userVotes, err := ms.moduleRepo.VotedByUser(ctx, nil, ids, userID)
	if err != nil {
		return nil, err
	}
	saved, err := ms.userRepo.SavedModulesByUser(ctx, nil, ids, userID)
	if err != nil {
		return nil, err
	}
	mappings, err := ms.moduleRepo.MappingsByModule(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	details := make([]*types.LearningModuleDetail, 0, len(rows))
	for _, row := range rows {
		tags := tagsByID[row.ID]
		if tags == nil {
			tags = []*types.Tag{}
		}
		summaries := make([]*types.ResourceSummary, 0, len(mappings[row.ID]))
		for _, mapping := range mappings[row.ID] {
			if mapping.Resource == nil {
				continue
			}
			summaries = append(summaries, &types.ResourceSummary{
				ID:       mapping.Resource.ID,
				Title:    mapping.Resource.Title,
				ImageURL: mapping.Resource.ImageURL,
				Grade:    mapping.Resource.Grade,
				Subject:  mapping.Resource.Subject,
			})
		}
		details = append(details, &types.LearningModuleDetail{
			LearningModule: *row,
			Tags:           tags,
			Resources:      summaries,
			ResourceCount:  len(summaries),
			VoteCount:      voteCounts[row.ID],
			UserVote:       userVotes[row.ID],
			IsSaved:        saved[row.ID],
		})
	}
	return details, nil
}
