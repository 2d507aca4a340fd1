package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
)

func TestSaveResourceIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")
	resource := mustResource(t, env, ctx, "Times Tables", grade.ID, subject.ID)

	// Double save, then double unsave: every call succeeds, the end state
	// is what the last call asked for.
	for i := 0; i < 2; i++ {
		if err := env.learning.SetResourceSaved(ctx, resource.ID, true); err != nil {
			t.Fatalf("save #%d: %v", i+1, err)
		}
	}
	saved, err := env.learning.QueryResources(ctx, "", true)
	if err != nil {
		t.Fatalf("query saved: %v", err)
	}
	if len(saved) != 1 || !saved[0].IsSaved {
		t.Fatalf("saved view = %+v, want one saved row", saved)
	}

	for i := 0; i < 2; i++ {
		if err := env.learning.SetResourceSaved(ctx, resource.ID, false); err != nil {
			t.Fatalf("unsave #%d: %v", i+1, err)
		}
	}
	saved, err = env.learning.QueryResources(ctx, "", true)
	if err != nil {
		t.Fatalf("query saved: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("saved view = %d rows after unsave, want 0", len(saved))
	}
}

func TestVoteIdempotentAndCounted(t *testing.T) {
	env := newTestEnv(t)
	alice := uuid.New()
	bob := uuid.New()

	setupCtx := authCtx(alice)
	grade := mustGrade(t, env, setupCtx, "Grade 5")
	subject := mustSubject(t, env, setupCtx, "Math")
	resource := mustResource(t, env, setupCtx, "Number Line", grade.ID, subject.ID)

	// Alice upvotes twice; the count stays at one.
	for i := 0; i < 2; i++ {
		if err := env.learning.SetResourceVote(authCtx(alice), resource.ID, true); err != nil {
			t.Fatalf("alice vote #%d: %v", i+1, err)
		}
	}
	if err := env.learning.SetResourceVote(authCtx(bob), resource.ID, true); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	detail, err := env.resources.Get(authCtx(alice), resource.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.VoteCount != 2 {
		t.Fatalf("vote count = %d, want 2", detail.VoteCount)
	}
	if !detail.UserVote {
		t.Fatal("alice's own vote not reflected")
	}

	// Downvote removes only the caller's vote.
	if err := env.learning.SetResourceVote(authCtx(alice), resource.ID, false); err != nil {
		t.Fatalf("alice downvote: %v", err)
	}
	detail, err = env.resources.Get(authCtx(alice), resource.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.VoteCount != 1 || detail.UserVote {
		t.Fatalf("after downvote: count=%d userVote=%v, want 1/false", detail.VoteCount, detail.UserVote)
	}

	// Downvoting with no standing vote is a no-op, not an error.
	if err := env.learning.SetResourceVote(authCtx(alice), resource.ID, false); err != nil {
		t.Fatalf("repeat downvote: %v", err)
	}
}

func TestSaveUnknownEntity(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	if err := env.learning.SetResourceSaved(ctx, uuid.New(), true); apierr.From(err).Code != apierr.CodeNotFound {
		t.Fatalf("unknown resource: %v", err)
	}
	if err := env.learning.SetModuleSaved(ctx, uuid.New(), true); apierr.From(err).Code != apierr.CodeNotFound {
		t.Fatalf("unknown module: %v", err)
	}
	if err := env.learning.SetResourceVote(ctx, uuid.New(), true); apierr.From(err).Code != apierr.CodeNotFound {
		t.Fatalf("unknown resource vote: %v", err)
	}
}

func TestUserLearningRequiresAuthenticatedCaller(t *testing.T) {
	env := newTestEnv(t)

	err := env.learning.SetResourceSaved(context.Background(), uuid.New(), true)
	if got := apierr.From(err).Code; got != apierr.CodeUnauthorized {
		t.Fatalf("code = %q, want %q", got, apierr.CodeUnauthorized)
	}
	if _, err := env.learning.QueryResources(context.Background(), "", false); apierr.From(err).Code != apierr.CodeUnauthorized {
		t.Fatalf("query without caller: %v", err)
	}
}

func TestSavedViewsArePerUser(t *testing.T) {
	env := newTestEnv(t)
	alice := uuid.New()
	bob := uuid.New()

	setupCtx := authCtx(alice)
	grade := mustGrade(t, env, setupCtx, "Grade 5")
	subject := mustSubject(t, env, setupCtx, "Math")
	resource := mustResource(t, env, setupCtx, "Shared Resource", grade.ID, subject.ID)

	if err := env.learning.SetResourceSaved(authCtx(alice), resource.ID, true); err != nil {
		t.Fatalf("alice save: %v", err)
	}

	aliceView, err := env.learning.QueryResources(authCtx(alice), "", true)
	if err != nil {
		t.Fatalf("alice query: %v", err)
	}
	if len(aliceView) != 1 {
		t.Fatalf("alice saved = %d, want 1", len(aliceView))
	}
	bobView, err := env.learning.QueryResources(authCtx(bob), "", true)
	if err != nil {
		t.Fatalf("bob query: %v", err)
	}
	if len(bobView) != 0 {
		t.Fatalf("bob saved = %d, want 0", len(bobView))
	}

	// In the full catalog view the saved flag is still per caller.
	all, err := env.learning.QueryResources(authCtx(bob), "", false)
	if err != nil {
		t.Fatalf("bob full query: %v", err)
	}
	if len(all) != 1 || all[0].IsSaved {
		t.Fatalf("bob sees someone else's saved flag: %+v", all)
	}
}

func TestQueryResourcesSearchAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Reading")
	first := mustResource(t, env, ctx, "Phonics Alpha", grade.ID, subject.ID)
	second := mustResource(t, env, ctx, "Phonics Beta", grade.ID, subject.ID)
	mustResource(t, env, ctx, "Unrelated", grade.ID, subject.ID)

	results, err := env.learning.QueryResources(ctx, "phonics", false)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// Creation order, oldest first.
	if results[0].ID != first.ID || results[1].ID != second.ID {
		t.Fatalf("order = %q then %q, want Alpha then Beta", results[0].Title, results[1].Title)
	}
}

func TestQueryModulesSavedFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx(uuid.New())

	grade := mustGrade(t, env, ctx, "Grade 5")
	subject := mustSubject(t, env, ctx, "Math")

	saved, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Saved Unit",
		Description: "kept",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.modules.Create(ctx, ModuleInput{
		Title:       "Other Unit",
		Description: "ignored",
		GradeID:     grade.ID,
		SubjectID:   subject.ID,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.learning.SetModuleSaved(ctx, saved.ID, true); err != nil {
		t.Fatalf("save: %v", err)
	}

	view, err := env.learning.QueryModules(ctx, "", true)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(view) != 1 || view[0].ID != saved.ID || !view[0].IsSaved {
		t.Fatalf("saved module view = %+v", view)
	}
}
