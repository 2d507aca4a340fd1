package services

import (
	"context"
	"errors"
	"testing"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

type fakeSearcher struct {
	results []string
	err     error
	calls   int
}

func (f *fakeSearcher) search(ctx context.Context, query string) ([]string, error) {
	f.calls++
	return f.results, f.err
}

func newImageSearchForTest(searcher imageSearcher) *imageSearchService {
	return &imageSearchService{
		log:      logger.NewNop(),
		searcher: searcher,
	}
}

func TestImageSearchFiltersInsecureResults(t *testing.T) {
	searcher := &fakeSearcher{results: []string{
		"https://images.example.org/a.png",
		"http://insecure.example.org/b.png",
		"HTTPS://images.example.org/c.png",
	}}
	svc := newImageSearchForTest(searcher)

	urls, err := svc.Search(context.Background(), "volcano diagram")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{
		"https://images.example.org/a.png",
		"HTTPS://images.example.org/c.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestImageSearchEmptyQuery(t *testing.T) {
	svc := newImageSearchForTest(&fakeSearcher{})

	_, err := svc.Search(context.Background(), "   ")
	if got := apierr.From(err).Code; got != apierr.CodeValidationFailed {
		t.Fatalf("code = %q, want %q", got, apierr.CodeValidationFailed)
	}
}

func TestImageSearchProviderFailure(t *testing.T) {
	svc := newImageSearchForTest(&fakeSearcher{err: errors.New("quota exceeded")})

	_, err := svc.Search(context.Background(), "cells")
	if got := apierr.From(err).Code; got != apierr.CodeStorageUnavailable {
		t.Fatalf("code = %q, want %q", got, apierr.CodeStorageUnavailable)
	}
}

func TestImageSearchWorksWithoutCache(t *testing.T) {
	searcher := &fakeSearcher{results: []string{"https://images.example.org/a.png"}}
	svc := newImageSearchForTest(searcher)

	// Two calls with a nil cache both hit the provider; no panic, no error.
	for i := 0; i < 2; i++ {
		if _, err := svc.Search(context.Background(), "moon phases"); err != nil {
			t.Fatalf("Search #%d: %v", i+1, err)
		}
	}
	if searcher.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", searcher.calls)
	}
}
