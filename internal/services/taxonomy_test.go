package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
)

func TestCreateGradeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	cases := []struct {
		name     string
		input    string
		wantCode string
	}{
		{name: "empty", input: "", wantCode: apierr.CodeValidationFailed},
		{name: "whitespace_only", input: "   ", wantCode: apierr.CodeValidationFailed},
		{name: "too_long", input: strings.Repeat("g", 101), wantCode: apierr.CodeValidationFailed},
		{name: "at_limit", input: strings.Repeat("g", 100), wantCode: ""},
		// Limits count characters, not bytes.
		{name: "multibyte_at_limit", input: strings.Repeat("é", 100), wantCode: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.taxonomy.CreateGrade(ctx, tc.input)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("CreateGrade(%q): %v", tc.input, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("CreateGrade(%q): expected error", tc.input)
			}
			if got := apierr.From(err).Code; got != tc.wantCode {
				t.Fatalf("CreateGrade(%q) code = %q, want %q", tc.input, got, tc.wantCode)
			}
		})
	}
}

func TestCreateGradeTrimsAndPreservesCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "  Grade 5  ")
	if grade.Name != "Grade 5" {
		t.Fatalf("name = %q, want trimmed %q", grade.Name, "Grade 5")
	}
}

func TestDuplicateNamesAreCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	mustGrade(t, env, ctx, "Kindergarten")
	_, err := env.taxonomy.CreateGrade(ctx, "kindergarten")
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if got := apierr.From(err).Code; got != apierr.CodeDuplicateName {
		t.Fatalf("code = %q, want %q", got, apierr.CodeDuplicateName)
	}

	// Same check holds across rename.
	other := mustGrade(t, env, ctx, "Grade 1")
	if _, err := env.taxonomy.UpdateGrade(ctx, other.ID, "KINDERGARTEN"); err == nil {
		t.Fatal("expected duplicate error on rename")
	}
}

func TestUpdateGradeKeepsOwnName(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 3")
	updated, err := env.taxonomy.UpdateGrade(ctx, grade.ID, "GRADE 3")
	if err != nil {
		t.Fatalf("rename to own name (case change): %v", err)
	}
	if updated.Name != "GRADE 3" {
		t.Fatalf("name = %q, want %q", updated.Name, "GRADE 3")
	}
}

func TestUpdateGradeNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	_, err := env.taxonomy.UpdateGrade(ctx, uuid.New(), "Grade 9")
	if got := apierr.From(err).Code; got != apierr.CodeNotFound {
		t.Fatalf("code = %q, want %q", got, apierr.CodeNotFound)
	}
}

func TestDeleteGradeBlockedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 2")
	subject := mustSubject(t, env, ctx, "Math")
	resource := mustResource(t, env, ctx, "Counting Songs", grade.ID, subject.ID)

	err := env.taxonomy.DeleteGrades(ctx, []uuid.UUID{grade.ID})
	if got := apierr.From(err).Code; got != apierr.CodeReferentialViolation {
		t.Fatalf("code = %q, want %q", got, apierr.CodeReferentialViolation)
	}

	// Once the referencing resource is gone the delete goes through.
	if err := env.resources.Delete(ctx, resource.ID); err != nil {
		t.Fatalf("delete resource: %v", err)
	}
	if err := env.taxonomy.DeleteGrades(ctx, []uuid.UUID{grade.ID}); err != nil {
		t.Fatalf("delete grade after resource removal: %v", err)
	}
	grades, err := env.taxonomy.ListGrades(ctx)
	if err != nil {
		t.Fatalf("list grades: %v", err)
	}
	if len(grades) != 0 {
		t.Fatalf("grades left = %d, want 0", len(grades))
	}
}

func TestDeleteSubjectBlockedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 4")
	subject := mustSubject(t, env, ctx, "Science")
	mustResource(t, env, ctx, "Volcano Lab", grade.ID, subject.ID)

	err := env.taxonomy.DeleteSubjects(ctx, []uuid.UUID{subject.ID})
	if got := apierr.From(err).Code; got != apierr.CodeReferentialViolation {
		t.Fatalf("code = %q, want %q", got, apierr.CodeReferentialViolation)
	}
}

func TestDeleteTagsCascadesJoinRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 6")
	subject := mustSubject(t, env, ctx, "History")
	tag := mustTag(t, env, ctx, "primary-sources")

	input := linkInput("Letters Archive", grade.ID, subject.ID)
	input.TagIDs = []uuid.UUID{tag.ID}
	created, err := env.resources.Create(ctx, input)
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if len(created.Tags) != 1 {
		t.Fatalf("tags = %d, want 1", len(created.Tags))
	}

	// Tag deletion is never blocked; the resource just loses the label.
	if err := env.taxonomy.DeleteTags(ctx, []uuid.UUID{tag.ID}); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	detail, err := env.resources.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get resource: %v", err)
	}
	if len(detail.Tags) != 0 {
		t.Fatalf("tags after cascade = %d, want 0", len(detail.Tags))
	}
}

func TestDeleteGradesEmptyBatchIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	if err := env.taxonomy.DeleteGrades(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestListGradesOrderedByCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	names := []string{"Kindergarten", "Grade 1", "Grade 2"}
	for _, name := range names {
		mustGrade(t, env, ctx, name)
	}
	grades, err := env.taxonomy.ListGrades(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grades) != len(names) {
		t.Fatalf("len = %d, want %d", len(grades), len(names))
	}
	for i, grade := range grades {
		if grade.Name != names[i] {
			t.Fatalf("grades[%d] = %q, want %q", i, grade.Name, names[i])
		}
	}
}
