package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
	catalogPageSize      = 20
)

// extensionTypes maps attachment file extensions onto the resource type the
// catalog stores. Anything else is rejected at validation.
var extensionTypes = map[string]string{
	".doc":  types.ResourceTypeDocument,
	".docx": types.ResourceTypeDocument,
	".ppt":  types.ResourceTypeSlide,
	".pptx": types.ResourceTypeSlide,
	".xls":  types.ResourceTypeSpreadsheet,
	".xlsx": types.ResourceTypeSpreadsheet,
	".pdf":  types.ResourceTypePDF,
}

// ResourceInput is the write payload for create and update.
type ResourceInput struct {
	Title                 string
	Description           string
	GradeID               uuid.UUID
	SubjectID             uuid.UUID
	AttachmentURL         string
	AttachmentFileName    string
	AttachmentContentType string
	LinkURL               string
	ImageURL              string
	TagIDs                []uuid.UUID
}

// ResourceFilter narrows Query results; zero values mean "no constraint".
type ResourceFilter struct {
	GradeIDs   []uuid.UUID
	SubjectIDs []uuid.UUID
	TagIDs     []uuid.UUID
	CreatedBy  uuid.UUID
	SearchText string
	Page       int
}

type ResourceService interface {
	Create(ctx context.Context, input ResourceInput) (*types.ResourceDetail, error)
	Update(ctx context.Context, id uuid.UUID, input ResourceInput) (*types.ResourceDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*types.ResourceDetail, error)
	Query(ctx context.Context, filter ResourceFilter) ([]*types.ResourceDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateTitle(ctx context.Context, title string, excludeID uuid.UUID) (bool, error)

	// Details resolves tags, vote counts and saved markers for rows already
	// loaded elsewhere (the user-learning view reuses it).
	Details(ctx context.Context, rows []*types.Resource, userID uuid.UUID) ([]*types.ResourceDetail, error)
}

type resourceService struct {
	db           *gorm.DB
	log          *logger.Logger
	resourceRepo repos.ResourceRepo
	moduleRepo   repos.ModuleRepo
	userRepo     repos.UserLearningRepo
	grades       *repos.TaxonomyRepo[types.Grade]
	subjects     *repos.TaxonomyRepo[types.Subject]
	tags         *repos.TaxonomyRepo[types.Tag]
}

func NewResourceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	resourceRepo repos.ResourceRepo,
	moduleRepo repos.ModuleRepo,
	userRepo repos.UserLearningRepo,
	grades *repos.TaxonomyRepo[types.Grade],
	subjects *repos.TaxonomyRepo[types.Subject],
	tags *repos.TaxonomyRepo[types.Tag],
) ResourceService {
	return &resourceService{
		db:           db,
		log:          baseLog.With("service", "ResourceService"),
		resourceRepo: resourceRepo,
		moduleRepo:   moduleRepo,
		userRepo:     userRepo,
		grades:       grades,
		subjects:     subjects,
		tags:         tags,
	}
}

// inferResourceType derives the stored type from the attachment extension or
// the external link. Attachment and link are mutually exclusive.
func inferResourceType(input ResourceInput) (string, error) {
	hasAttachment := strings.TrimSpace(input.AttachmentURL) != ""
	hasLink := strings.TrimSpace(input.LinkURL) != ""
	switch {
	case hasAttachment && hasLink:
		return "", apierr.Validation("link_url", "a resource carries either an attachment or an external link, not both")
	case hasAttachment:
		name := input.AttachmentFileName
		if name == "" {
			name = input.AttachmentURL
		}
		ext := strings.ToLower(path.Ext(name))
		t, ok := extensionTypes[ext]
		if !ok {
			return "", apierr.Validation("attachment_file_name", fmt.Sprintf("unsupported file type %q", ext))
		}
		return t, nil
	case hasLink:
		u, err := url.Parse(input.LinkURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", apierr.Validation("link_url", "must be a valid http(s) URL")
		}
		return types.ResourceTypeLink, nil
	default:
		return "", apierr.Validation("attachment_url", "a resource needs an attachment or an external link")
	}
}

func (rs *resourceService) validateInput(ctx context.Context, tx *gorm.DB, input ResourceInput, excludeID uuid.UUID) (string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", apierr.Validation("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", apierr.Validation("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return "", apierr.Validation("description", "must not be empty")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return "", apierr.Validation("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}

	resourceType, err := inferResourceType(input)
	if err != nil {
		return "", err
	}

	if _, err := rs.grades.GetByID(ctx, tx, input.GradeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierr.Referential("unknown grade id")
		}
		return "", apierr.Storage(err)
	}
	if _, err := rs.subjects.GetByID(ctx, tx, input.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierr.Referential("unknown subject id")
		}
		return "", apierr.Storage(err)
	}
	if err := rs.checkTagIDs(ctx, tx, input.TagIDs); err != nil {
		return "", err
	}

	exists, err := rs.resourceRepo.TitleExists(ctx, tx, title, excludeID)
	if err != nil {
		return "", apierr.Storage(err)
	}
	if exists {
		return "", apierr.DuplicateTitle(title)
	}
	return resourceType, nil
}

func (rs *resourceService) checkTagIDs(ctx context.Context, tx *gorm.DB, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	found, err := rs.tags.GetByIDs(ctx, tx, tagIDs)
	if err != nil {
		return apierr.Storage(err)
	}
	if len(found) != len(dedupe(tagIDs)) {
		return apierr.Referential("unknown tag id")
	}
	return nil
}

func (rs *resourceService) Create(ctx context.Context, input ResourceInput) (*types.ResourceDetail, error) {
	var created *types.Resource
	err := rs.db.Transaction(func(tx *gorm.DB) error {
		resourceType, err := rs.validateInput(ctx, tx, input, uuid.Nil)
		if err != nil {
			return err
		}
		by := callerID(ctx)
		row := &types.Resource{
			ID:                    uuid.New(),
			Title:                 strings.TrimSpace(input.Title),
			Description:           strings.TrimSpace(input.Description),
			Type:                  resourceType,
			GradeID:               input.GradeID,
			SubjectID:             input.SubjectID,
			AttachmentURL:         input.AttachmentURL,
			AttachmentFileName:    input.AttachmentFileName,
			AttachmentContentType: input.AttachmentContentType,
			LinkURL:               input.LinkURL,
			ImageURL:              input.ImageURL,
			CreatedBy:             by,
			UpdatedBy:             by,
		}
		if err := rs.resourceRepo.Add(ctx, tx, row); err != nil {
			return classifyWriteError(err, apierr.DuplicateTitle(row.Title))
		}
		if err := rs.resourceRepo.AddTags(ctx, tx, row.ID, dedupe(input.TagIDs)); err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	return rs.Get(ctx, created.ID)
}

func (rs *resourceService) Update(ctx context.Context, id uuid.UUID, input ResourceInput) (*types.ResourceDetail, error) {
	err := rs.db.Transaction(func(tx *gorm.DB) error {
		row, err := rs.resourceRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("resource")
			}
			return err
		}
		resourceType, err := rs.validateInput(ctx, tx, input, id)
		if err != nil {
			return err
		}
		row.Title = strings.TrimSpace(input.Title)
		row.Description = strings.TrimSpace(input.Description)
		row.Type = resourceType
		row.GradeID = input.GradeID
		row.SubjectID = input.SubjectID
		row.AttachmentURL = input.AttachmentURL
		row.AttachmentFileName = input.AttachmentFileName
		row.AttachmentContentType = input.AttachmentContentType
		row.LinkURL = input.LinkURL
		row.ImageURL = input.ImageURL
		row.UpdatedBy = callerID(ctx)
		if err := rs.resourceRepo.Update(ctx, tx, row); err != nil {
			return classifyWriteError(err, apierr.DuplicateTitle(row.Title))
		}
		return rs.reconcileTags(ctx, tx, id, dedupe(input.TagIDs))
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	return rs.Get(ctx, id)
}

// reconcileTags diffs the requested tag set against the stored one and
// applies only the difference, so unchanged joins are never rewritten.
func (rs *resourceService) reconcileTags(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID, wanted []uuid.UUID) error {
	current, err := rs.resourceRepo.TagIDs(ctx, tx, resourceID)
	if err != nil {
		return err
	}
	toAdd, toRemove := diffIDs(current, wanted)
	if err := rs.resourceRepo.AddTags(ctx, tx, resourceID, toAdd); err != nil {
		return err
	}
	return rs.resourceRepo.RemoveTags(ctx, tx, resourceID, toRemove)
}

func (rs *resourceService) Get(ctx context.Context, id uuid.UUID) (*types.ResourceDetail, error) {
	row, err := rs.resourceRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("resource")
		}
		return nil, apierr.Storage(err)
	}
	details, err := rs.Details(ctx, []*types.Resource{row}, callerID(ctx))
	if err != nil {
		return nil, apierr.From(err)
	}
	return details[0], nil
}

func (rs *resourceService) Query(ctx context.Context, filter ResourceFilter) ([]*types.ResourceDetail, error) {
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
		ids, err := rs.resourceRepo.ResourceIDsByTags(ctx, nil, filter.TagIDs)
		if err != nil {
			return nil, apierr.Storage(err)
		}
		if len(ids) == 0 {
			return []*types.ResourceDetail{}, nil
		}
		scopes = append(scopes, repos.Where("id IN ?", ids))
	}
	scopes = append(scopes, repos.OrderBy("updated_at DESC"), repos.Paginate(filter.Page, catalogPageSize))

	rows, err := rs.resourceRepo.List(ctx, nil, scopes...)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	details, err := rs.Details(ctx, rows, callerID(ctx))
	if err != nil {
		return nil, apierr.From(err)
	}
	return details, nil
}

// Delete removes the resource together with every join row that references
// it: tags, votes, module memberships and saved markers, atomically.
func (rs *resourceService) Delete(ctx context.Context, id uuid.UUID) error {
	err := rs.db.Transaction(func(tx *gorm.DB) error {
		row, err := rs.resourceRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("resource")
			}
			return err
		}
		if err := rs.resourceRepo.DeleteJoinRows(ctx, tx, id); err != nil {
			return err
		}
		if err := rs.moduleRepo.DeleteMappingsForResource(ctx, tx, id); err != nil {
			return err
		}
		if err := rs.userRepo.DeleteSavedForResource(ctx, tx, id); err != nil {
			return err
		}
		return rs.resourceRepo.Delete(ctx, tx, row)
	})
	if err != nil {
		rs.log.Error("Delete resource failed", "error", err, "resource_id", id)
		return apierr.From(err)
	}
	return nil
}

func (rs *resourceService) ValidateTitle(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, apierr.Validation("title", "must not be empty")
	}
	exists, err := rs.resourceRepo.TitleExists(ctx, nil, title, excludeID)
	if err != nil {
		return false, apierr.Storage(err)
	}
	return !exists, nil
}

func (rs *resourceService) Details(ctx context.Context, rows []*types.Resource, userID uuid.UUID) ([]*types.ResourceDetail, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	tagsByID, err := rs.resourceRepo.TagsByResource(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	voteCounts, err := rs.resourceRepo.VoteCounts(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	userVotes, err := rs.resourceRepo.VotedByUser(ctx, nil, ids, userID)
	if err != nil {
		return nil, err
	}
	saved, err := rs.userRepo.SavedResourcesByUser(ctx, nil, ids, userID)
	if err != nil {
		return nil, err
	}
	details := make([]*types.ResourceDetail, 0, len(rows))
	for _, row := range rows {
		tags := tagsByID[row.ID]
		if tags == nil {
			tags = []*types.Tag{}
		}
		details = append(details, &types.ResourceDetail{
			Resource:  *row,
			Tags:      tags,
			VoteCount: voteCounts[row.ID],
			UserVote:  userVotes[row.ID],
			IsSaved:   saved[row.ID],
		})
	}
	return details, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// diffIDs computes the symmetric difference between the stored and requested
// sets: what to insert and what to delete, leaving the intersection alone.
func diffIDs(current, wanted []uuid.UUID) (toAdd, toRemove []uuid.UUID) {
	currentSet := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	wantedSet := make(map[uuid.UUID]struct{}, len(wanted))
	for _, id := range wanted {
		wantedSet[id] = struct{}{}
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := wantedSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}
