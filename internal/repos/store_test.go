package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

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
		&types.Tag{},
		&types.Resource{},
		&types.ResourceTag{},
		&types.ResourceVote{},
		&types.UserLearningResource{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreCRUD(t *testing.T) {
	db := newTestDB(t)
	store := NewStore[types.Grade](db, logger.NewNop())
	ctx := context.Background()

	grade := &types.Grade{ID: uuid.New(), Name: "Grade 1"}
	if err := store.Add(ctx, nil, grade); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := store.GetByID(ctx, nil, grade.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Grade 1" {
		t.Fatalf("name = %q", got.Name)
	}

	got.Name = "Grade One"
	if err := store.Update(ctx, nil, grade.ID, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Update(ctx, nil, uuid.New(), got); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Update unknown id: %v, want ErrRecordNotFound", err)
	}

	count, err := store.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if err := store.Delete(ctx, nil, got); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, nil, grade.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID after delete: %v, want ErrRecordNotFound", err)
	}
}

func TestStoreScopes(t *testing.T) {
	db := newTestDB(t)
	store := NewStore[types.Grade](db, logger.NewNop())
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.Add(ctx, nil, &types.Grade{ID: uuid.New(), Name: fmt.Sprintf("Grade %d", i)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	rows, err := store.List(ctx, nil, Where("name LIKE ?", "Grade %"), OrderBy("name ASC"), Paginate(2, 2))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("page 2 len = %d, want 2", len(rows))
	}
	if rows[0].Name != "Grade 3" || rows[1].Name != "Grade 4" {
		t.Fatalf("page 2 = %q, %q", rows[0].Name, rows[1].Name)
	}

	// pageSize <= 0 means no paging at all.
	all, err := store.List(ctx, nil, Paginate(1, 0))
	if err != nil {
		t.Fatalf("List unpaged: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("unpaged len = %d, want 5", len(all))
	}
}

func TestTaxonomyNameExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaxonomyRepo[types.Grade](db, logger.NewNop())
	ctx := context.Background()

	grade := &types.Grade{ID: uuid.New(), Name: "Kindergarten"}
	if err := repo.Add(ctx, nil, grade); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cases := []struct {
		name      string
		query     string
		excludeID uuid.UUID
		want      bool
	}{
		{name: "exact", query: "Kindergarten", want: true},
		{name: "different_case", query: "KINDERGARTEN", want: true},
		{name: "absent", query: "Grade 1", want: false},
		{name: "excluding_self", query: "Kindergarten", excludeID: grade.ID, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.NameExists(ctx, nil, tc.query, tc.excludeID)
			if err != nil {
				t.Fatalf("NameExists: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NameExists(%q, exclude=%v) = %v, want %v", tc.query, tc.excludeID, got, tc.want)
			}
		})
	}
}

// A vote landing between another writer's duplicate check and insert used to
// surface the unique-index violation as an error. The insert now absorbs the
// collision, so adding a pair that already exists succeeds without a second row.
func TestAddVoteToleratesExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewResourceRepo(db, logger.NewNop())
	ctx := context.Background()

	resourceID := uuid.New()
	userID := uuid.New()
	if err := db.Create(&types.Resource{ID: resourceID, Title: "Contended", Description: "x", Type: types.ResourceTypeLink}).Error; err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	if err := db.Create(&types.ResourceVote{ID: uuid.New(), ResourceID: resourceID, UserID: userID}).Error; err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	if err := repo.AddVote(ctx, nil, resourceID, userID); err != nil {
		t.Fatalf("AddVote over existing row: %v", err)
	}
	counts, err := repo.VoteCounts(ctx, nil, []uuid.UUID{resourceID})
	if err != nil {
		t.Fatalf("VoteCounts: %v", err)
	}
	if counts[resourceID] != 1 {
		t.Fatalf("count = %d, want 1", counts[resourceID])
	}
}

func TestSaveResourceToleratesExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserLearningRepo(db, logger.NewNop())
	ctx := context.Background()

	resourceID := uuid.New()
	userID := uuid.New()
	if err := db.Create(&types.Resource{ID: resourceID, Title: "Saved", Description: "x", Type: types.ResourceTypeLink}).Error; err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	if err := db.Create(&types.UserLearningResource{ID: uuid.New(), UserID: userID, ResourceID: resourceID}).Error; err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := repo.SaveResource(ctx, nil, userID, resourceID); err != nil {
		t.Fatalf("SaveResource over existing row: %v", err)
	}
	ids, err := repo.SavedResourceIDs(ctx, nil, userID)
	if err != nil {
		t.Fatalf("SavedResourceIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != resourceID {
		t.Fatalf("saved ids = %v, want exactly [%v]", ids, resourceID)
	}
}

func TestResourceVotesAreSetMembership(t *testing.T) {
	db := newTestDB(t)
	repo := NewResourceRepo(db, logger.NewNop())
	ctx := context.Background()

	resourceID := uuid.New()
	userID := uuid.New()
	if err := db.Create(&types.Resource{ID: resourceID, Title: "Votable", Description: "x", Type: types.ResourceTypeLink}).Error; err != nil {
		t.Fatalf("seed resource: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.AddVote(ctx, nil, resourceID, userID); err != nil {
			t.Fatalf("AddVote #%d: %v", i+1, err)
		}
	}
	counts, err := repo.VoteCounts(ctx, nil, []uuid.UUID{resourceID})
	if err != nil {
		t.Fatalf("VoteCounts: %v", err)
	}
	if counts[resourceID] != 1 {
		t.Fatalf("count = %d, want 1 after repeated AddVote", counts[resourceID])
	}

	if err := repo.RemoveVote(ctx, nil, resourceID, userID); err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}
	if err := repo.RemoveVote(ctx, nil, resourceID, userID); err != nil {
		t.Fatalf("RemoveVote with no vote standing: %v", err)
	}
	counts, err = repo.VoteCounts(ctx, nil, []uuid.UUID{resourceID})
	if err != nil {
		t.Fatalf("VoteCounts: %v", err)
	}
	if counts[resourceID] != 0 {
		t.Fatalf("count = %d, want 0", counts[resourceID])
	}
}
