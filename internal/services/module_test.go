package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
)

func TestCreateModuleWithMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")
	first := mustResource(t, env, ctx, "Fractions One", grade.ID, subject.ID)
	second := mustResource(t, env, ctx, "Fractions Two", grade.ID, subject.ID)

	detail, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Fractions Unit",
		Description: "Two weeks of fractions",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
		ResourceIDs: []uuid.UUID{first.ID, second.ID, first.ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if detail.ResourceCount != 2 || len(detail.Resources) != 2 {
		t.Fatalf("members = %d/%d, want 2", detail.ResourceCount, len(detail.Resources))
	}
	// Membership preserves insertion order and resolves display fields.
	if detail.Resources[0].Title != "Fractions One" {
		t.Fatalf("first member = %q", detail.Resources[0].Title)
	}
	if detail.Resources[0].Grade == nil || detail.Resources[0].Grade.Name != "Grade 5" {
		t.Fatalf("member grade not resolved: %+v", detail.Resources[0])
	}
}

// Batch-inserted members share a created_at timestamp, so ordering has to come
// from the mapping's position column, both within one batch and across appends.
func TestModuleMembersKeepInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")
	titles := []string{"Decimals One", "Decimals Two", "Decimals Three"}
	ids := make([]uuid.UUID, 0, len(titles))
	for _, title := range titles {
		ids = append(ids, mustResource(t, env, ctx, title, grade.ID, subject.ID).ID)
	}

	module, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Decimals Unit",
		Description: "ordered walkthrough",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
		ResourceIDs: ids,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(module.Resources) != len(titles) {
		t.Fatalf("members = %d, want %d", len(module.Resources), len(titles))
	}
	for i, title := range titles {
		if module.Resources[i].Title != title {
			t.Fatalf("member %d = %q, want %q", i, module.Resources[i].Title, title)
		}
	}

	// An appended member lands after everything already in the module.
	last := mustResource(t, env, ctx, "Decimals Review", grade.ID, subject.ID)
	if err := env.modules.SetResourceMembership(ctx, module.ID, append(ids, last.ID)); err != nil {
		t.Fatalf("append member: %v", err)
	}
	refreshed, err := env.modules.Get(ctx, module.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := refreshed.Resources[len(refreshed.Resources)-1].Title; got != "Decimals Review" {
		t.Fatalf("appended member = %q, want last", got)
	}
}

func TestCreateModuleRejectsUnknownResource(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")

	_, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Broken Unit",
		Description: "references nothing",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
		ResourceIDs: []uuid.UUID{uuid.New()},
	})
	if got := apierr.From(err).Code; got != apierr.CodeReferentialViolation {
		t.Fatalf("code = %q, want %q", got, apierr.CodeReferentialViolation)
	}
}

// Length limits apply to the trimmed value and count characters, not bytes.
func TestModuleDescriptionLengthLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")

	cases := []struct {
		name        string
		title       string
		description string
		wantCode    string
	}{
		{name: "padded_at_limit", title: "Padded", description: "  " + strings.Repeat("d", 500) + "  "},
		{name: "multibyte_at_limit", title: "Multibyte", description: strings.Repeat("é", 500)},
		{name: "over_limit", title: "Over", description: strings.Repeat("d", 501), wantCode: apierr.CodeValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.modules.Create(ctx, ModuleInput{
				Title:       tc.title,
				Description: tc.description,
				GradeID:     grade.ID,
				SubjectID:   subject.ID,
			})
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				return
			}
			if got := apierr.From(err).Code; got != tc.wantCode {
				t.Fatalf("code = %q, want %q", got, tc.wantCode)
			}
		})
	}
}

func TestModuleTitleDuplicateCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")

	base := ModuleInput{
		Title:       "Geometry Basics",
		Description: "Shapes and angles",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
	}
	if _, err := env.modules.Create(ctx, base); err != nil {
		t.Fatalf("create: %v", err)
	}
	base.Title = "geometry BASICS"
	_, err := env.modules.Create(ctx, base)
	if got := apierr.From(err).Code; got != apierr.CodeDuplicateTitle {
		t.Fatalf("code = %q, want %q", got, apierr.CodeDuplicateTitle)
	}

	// Resource and module titles live in separate namespaces.
	if _, err := env.resources.Create(ctx, linkInput("Geometry Basics", grade.ID, subject.ID)); err != nil {
		t.Fatalf("resource with same title as module: %v", err)
	}
}

func TestSetResourceMembershipReconciles(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 6")
	subject := mustSubject(t, env, ctx, "Science")
	keep := mustResource(t, env, ctx, "Keep Me", grade.ID, subject.ID)
	drop := mustResource(t, env, ctx, "Drop Me", grade.ID, subject.ID)
	add := mustResource(t, env, ctx, "Add Me", grade.ID, subject.ID)

	module, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Rotating Unit",
		Description: "membership churn",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
		ResourceIDs: []uuid.UUID{keep.ID, drop.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.modules.SetResourceMembership(ctx, module.ID, []uuid.UUID{keep.ID, add.ID}); err != nil {
		t.Fatalf("set membership: %v", err)
	}
	refreshed, err := env.modules.Get(ctx, module.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := map[string]bool{}
	for _, member := range refreshed.Resources {
		got[member.Title] = true
	}
	if len(got) != 2 || !got["Keep Me"] || !got["Add Me"] {
		t.Fatalf("membership = %v, want Keep Me and Add Me", got)
	}

	// Replaying the same set is a no-op.
	if err := env.modules.SetResourceMembership(ctx, module.ID, []uuid.UUID{keep.ID, add.ID}); err != nil {
		t.Fatalf("idempotent replay: %v", err)
	}
	again, err := env.modules.Get(ctx, module.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.ResourceCount != 2 {
		t.Fatalf("count after replay = %d, want 2", again.ResourceCount)
	}

	// Clearing the set empties the module.
	if err := env.modules.SetResourceMembership(ctx, module.ID, nil); err != nil {
		t.Fatalf("clear membership: %v", err)
	}
	empty, err := env.modules.Get(ctx, module.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if empty.ResourceCount != 0 {
		t.Fatalf("count after clear = %d, want 0", empty.ResourceCount)
	}
}

func TestSetResourceMembershipUnknownModule(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	err := env.modules.SetResourceMembership(ctx, uuid.New(), nil)
	if got := apierr.From(err).Code; got != apierr.CodeNotFound {
		t.Fatalf("code = %q, want %q", got, apierr.CodeNotFound)
	}
}

func TestDeleteModuleCascadesButKeepsResources(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 7")
	subject := mustSubject(t, env, ctx, "Music")
	member := mustResource(t, env, ctx, "Rhythm Drills", grade.ID, subject.ID)

	module, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Rhythm Unit",
		Description: "clapping exercises",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
		ResourceIDs: []uuid.UUID{member.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.learning.SetModuleSaved(ctx, module.ID, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := env.learning.SetModuleVote(ctx, module.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if err := env.modules.Delete(ctx, module.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.modules.Get(ctx, module.ID); apierr.From(err).Code != apierr.CodeNotFound {
		t.Fatalf("module still resolvable: %v", err)
	}
	// Deleting a module never deletes its member resources.
	if _, err := env.resources.Get(ctx, member.ID); err != nil {
		t.Fatalf("member resource gone after module delete: %v", err)
	}
}
