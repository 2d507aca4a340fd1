package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/pkg/ctxutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

const maxNameLength = 100

// TaxonomyService owns the grade/subject/tag lifecycle. Mutations are
// moderator-only; the policy check happens at the router, not here.
type TaxonomyService interface {
	ListGrades(ctx context.Context) ([]*types.Grade, error)
	CreateGrade(ctx context.Context, name string) (*types.Grade, error)
	UpdateGrade(ctx context.Context, id uuid.UUID, name string) (*types.Grade, error)
	DeleteGrades(ctx context.Context, ids []uuid.UUID) error

	ListSubjects(ctx context.Context) ([]*types.Subject, error)
	CreateSubject(ctx context.Context, name string) (*types.Subject, error)
	UpdateSubject(ctx context.Context, id uuid.UUID, name string) (*types.Subject, error)
	DeleteSubjects(ctx context.Context, ids []uuid.UUID) error

	ListTags(ctx context.Context) ([]*types.Tag, error)
	CreateTag(ctx context.Context, name string) (*types.Tag, error)
	UpdateTag(ctx context.Context, id uuid.UUID, name string) (*types.Tag, error)
	DeleteTags(ctx context.Context, ids []uuid.UUID) error
}

type taxonomyService struct {
	db           *gorm.DB
	log          *logger.Logger
	grades       *repos.TaxonomyRepo[types.Grade]
	subjects     *repos.TaxonomyRepo[types.Subject]
	tags         *repos.TaxonomyRepo[types.Tag]
	resourceRepo repos.ResourceRepo
	moduleRepo   repos.ModuleRepo
}

func NewTaxonomyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	grades *repos.TaxonomyRepo[types.Grade],
	subjects *repos.TaxonomyRepo[types.Subject],
	tags *repos.TaxonomyRepo[types.Tag],
	resourceRepo repos.ResourceRepo,
	moduleRepo repos.ModuleRepo,
) TaxonomyService {
	return &taxonomyService{
		db:           db,
		log:          baseLog.With("service", "TaxonomyService"),
		grades:       grades,
		subjects:     subjects,
		tags:         tags,
		resourceRepo: resourceRepo,
		moduleRepo:   moduleRepo,
	}
}

func validateTaxonomyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.Validation("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apierr.Validation("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return name, nil
}

func callerID(ctx context.Context) uuid.UUID {
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}

// Grades

func (ts *taxonomyService) ListGrades(ctx context.Context) ([]*types.Grade, error) {
	return ts.grades.List(ctx, nil, repos.OrderBy("created_at ASC"))
}

func (ts *taxonomyService) CreateGrade(ctx context.Context, name string) (*types.Grade, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	exists, err := ts.grades.NameExists(ctx, nil, name, uuid.Nil)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	by := callerID(ctx)
	grade := &types.Grade{ID: uuid.New(), Name: name, CreatedBy: by, UpdatedBy: by}
	if err := ts.grades.Add(ctx, nil, grade); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return grade, nil
}

func (ts *taxonomyService) UpdateGrade(ctx context.Context, id uuid.UUID, name string) (*types.Grade, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	grade, err := ts.grades.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("grade")
		}
		return nil, apierr.Storage(err)
	}
	exists, err := ts.grades.NameExists(ctx, nil, name, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	grade.Name = name
	grade.UpdatedBy = callerID(ctx)
	if err := ts.grades.Update(ctx, nil, id, grade); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return grade, nil
}

// DeleteGrades refuses to delete grades still referenced by resources or
// modules; nulling the classification out from under live content would
// leave detail views half-resolved. (The alternative cascade is documented
// in DESIGN.md.)
func (ts *taxonomyService) DeleteGrades(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := ts.db.Transaction(func(tx *gorm.DB) error {
		refs, err := ts.countGradeSubjectRefs(ctx, tx, ids, nil)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierr.Referential("grade is referenced by existing resources or learning modules")
		}
		return ts.grades.DeleteWhere(ctx, tx, "id IN ?", ids)
	})
	if err != nil {
		ts.log.Error("DeleteGrades failed", "error", err, "count", len(ids))
		return apierr.From(err)
	}
	return nil
}

// Subjects

func (ts *taxonomyService) ListSubjects(ctx context.Context) ([]*types.Subject, error) {
	return ts.subjects.List(ctx, nil, repos.OrderBy("created_at ASC"))
}

func (ts *taxonomyService) CreateSubject(ctx context.Context, name string) (*types.Subject, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	exists, err := ts.subjects.NameExists(ctx, nil, name, uuid.Nil)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	by := callerID(ctx)
	subject := &types.Subject{ID: uuid.New(), Name: name, CreatedBy: by, UpdatedBy: by}
	if err := ts.subjects.Add(ctx, nil, subject); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return subject, nil
}

func (ts *taxonomyService) UpdateSubject(ctx context.Context, id uuid.UUID, name string) (*types.Subject, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	subject, err := ts.subjects.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("subject")
		}
		return nil, apierr.Storage(err)
	}
	exists, err := ts.subjects.NameExists(ctx, nil, name, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	subject.Name = name
	subject.UpdatedBy = callerID(ctx)
	if err := ts.subjects.Update(ctx, nil, id, subject); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return subject, nil
}

func (ts *taxonomyService) DeleteSubjects(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := ts.db.Transaction(func(tx *gorm.DB) error {
		refs, err := ts.countGradeSubjectRefs(ctx, tx, nil, ids)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apierr.Referential("subject is referenced by existing resources or learning modules")
		}
		return ts.subjects.DeleteWhere(ctx, tx, "id IN ?", ids)
	})
	if err != nil {
		ts.log.Error("DeleteSubjects failed", "error", err, "count", len(ids))
		return apierr.From(err)
	}
	return nil
}

// Tags

func (ts *taxonomyService) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return ts.tags.List(ctx, nil, repos.OrderBy("created_at ASC"))
}

func (ts *taxonomyService) CreateTag(ctx context.Context, name string) (*types.Tag, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	exists, err := ts.tags.NameExists(ctx, nil, name, uuid.Nil)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	by := callerID(ctx)
	tag := &types.Tag{ID: uuid.New(), Name: name, CreatedBy: by, UpdatedBy: by}
	if err := ts.tags.Add(ctx, nil, tag); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return tag, nil
}

func (ts *taxonomyService) UpdateTag(ctx context.Context, id uuid.UUID, name string) (*types.Tag, error) {
	name, err := validateTaxonomyName(name)
	if err != nil {
		return nil, err
	}
	tag, err := ts.tags.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("tag")
		}
		return nil, apierr.Storage(err)
	}
	exists, err := ts.tags.NameExists(ctx, nil, name, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if exists {
		return nil, apierr.DuplicateName(name)
	}
	tag.Name = name
	tag.UpdatedBy = callerID(ctx)
	if err := ts.tags.Update(ctx, nil, id, tag); err != nil {
		return nil, classifyWriteError(err, apierr.DuplicateName(name))
	}
	return tag, nil
}

// DeleteTags cascades: every resource/module join row referencing the tags
// goes first, then the tags, all in one transaction.
func (ts *taxonomyService) DeleteTags(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := ts.db.Transaction(func(tx *gorm.DB) error {
		if err := ts.resourceRepo.DeleteTagJoins(ctx, tx, ids); err != nil {
			return err
		}
		if err := ts.moduleRepo.DeleteTagJoins(ctx, tx, ids); err != nil {
			return err
		}
		return ts.tags.DeleteWhere(ctx, tx, "id IN ?", ids)
	})
	if err != nil {
		ts.log.Error("DeleteTags failed", "error", err, "count", len(ids))
		return apierr.From(err)
	}
	return nil
}

func (ts *taxonomyService) countGradeSubjectRefs(ctx context.Context, tx *gorm.DB, gradeIDs, subjectIDs []uuid.UUID) (int64, error) {
	fromResources, err := ts.resourceRepo.CountByGradeOrSubject(ctx, tx, gradeIDs, subjectIDs)
	if err != nil {
		return 0, err
	}
	fromModules, err := ts.moduleRepo.CountByGradeOrSubject(ctx, tx, gradeIDs, subjectIDs)
	if err != nil {
		return 0, err
	}
	return fromResources + fromModules, nil
}

// classifyWriteError maps a unique-index breach (the concurrent-create race
// the app-level check cannot close) onto the conflict outcome; everything
// else is a storage fault.
func classifyWriteError(err error, conflict *apierr.Error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique") {
		return conflict
	}
	return apierr.Storage(err)
}
