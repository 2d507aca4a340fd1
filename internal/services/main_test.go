package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schoolstack/learnnow-backend/internal/pkg/ctxutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

type testEnv struct {
	db        *gorm.DB
	taxonomy  TaxonomyService
	resources ResourceService
	modules   ModuleService
	learning  UserLearningService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Grade{},
		&types.Subject{},
		&types.Tag{},
		&types.Resource{},
		&types.ResourceTag{},
		&types.ResourceVote{},
		&types.LearningModule{},
		&types.LearningModuleTag{},
		&types.LearningModuleVote{},
		&types.ResourceModuleMapping{},
		&types.UserLearningResource{},
		&types.UserLearningModule{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()

	gradeRepo := repos.NewTaxonomyRepo[types.Grade](db, log)
	subjectRepo := repos.NewTaxonomyRepo[types.Subject](db, log)
	tagRepo := repos.NewTaxonomyRepo[types.Tag](db, log)
	resourceRepo := repos.NewResourceRepo(db, log)
	moduleRepo := repos.NewModuleRepo(db, log)
	userRepo := repos.NewUserLearningRepo(db, log)

	resources := NewResourceService(db, log, resourceRepo, moduleRepo, userRepo, gradeRepo, subjectRepo, tagRepo)
	modules := NewModuleService(db, log, moduleRepo, resourceRepo, userRepo, gradeRepo, subjectRepo, tagRepo)
	return &testEnv{
		db:        db,
		taxonomy:  NewTaxonomyService(db, log, gradeRepo, subjectRepo, tagRepo, resourceRepo, moduleRepo),
		resources: resources,
		modules:   modules,
		learning:  NewUserLearningService(db, log, userRepo, resourceRepo, moduleRepo, resources, modules),
	}
}

func authCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:    userID,
		IsTeacher: true,
	})
}

func mustGrade(t *testing.T, env *testEnv, ctx context.Context, name string) *types.Grade {
	t.Helper()
	grade, err := env.taxonomy.CreateGrade(ctx, name)
	if err != nil {
		t.Fatalf("CreateGrade(%q): %v", name, err)
	}
	return grade
}

func mustSubject(t *testing.T, env *testEnv, ctx context.Context, name string) *types.Subject {
	t.Helper()
	subject, err := env.taxonomy.CreateSubject(ctx, name)
	if err != nil {
		t.Fatalf("CreateSubject(%q): %v", name, err)
	}
	return subject
}

func mustTag(t *testing.T, env *testEnv, ctx context.Context, name string) *types.Tag {
	t.Helper()
	tag, err := env.taxonomy.CreateTag(ctx, name)
	if err != nil {
		t.Fatalf("CreateTag(%q): %v", name, err)
	}
	return tag
}

// linkInput is the smallest valid resource payload.
func linkInput(title string, gradeID, subjectID uuid.UUID) ResourceInput {
	return ResourceInput{
		Title:       title,
		Description: "about " + title,
		GradeID:     gradeID,
		SubjectID:   subjectID,
		LinkURL:     "https://example.org/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
	}
}

func mustResource(t *testing.T, env *testEnv, ctx context.Context, title string, gradeID, subjectID uuid.UUID) *types.ResourceDetail {
	t.Helper()
	detail, err := env.resources.Create(ctx, linkInput(title, gradeID, subjectID))
	if err != nil {
		t.Fatalf("Create resource %q: %v", title, err)
	}
	return detail
}
