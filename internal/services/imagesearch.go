package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/envutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

const imageSearchCacheTTL = time.Hour

// ImageSearchService finds cover images for authoring. Results are external
// and non-authoritative, which is why a cache is fine here and nowhere else.
type ImageSearchService interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// imageSearcher is the raw provider call; split out so tests can fake it.
type imageSearcher interface {
	search(ctx context.Context, query string) ([]string, error)
}

type imageSearchService struct {
	log      *logger.Logger
	searcher imageSearcher
	cache    *redis.Client
}

type customSearchClient struct {
	svc      *customsearch.Service
	engineID string
}

func (c *customSearchClient) search(ctx context.Context, query string) ([]string, error) {
	resp, err := c.svc.Cse.List().
		Context(ctx).
		Cx(c.engineID).
		Q(query).
		SearchType("image").
		ImgSize("MEDIUM").
		Safe("active").
		Do()
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		urls = append(urls, item.Link)
	}
	return urls, nil
}

func NewImageSearchService(log *logger.Logger, cache *redis.Client) (ImageSearchService, error) {
	serviceLog := log.With("service", "ImageSearchService")
	apiKey := envutil.String("IMAGE_SEARCH_API_KEY", "")
	engineID := envutil.String("IMAGE_SEARCH_ENGINE_ID", "")
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("missing env vars IMAGE_SEARCH_API_KEY / IMAGE_SEARCH_ENGINE_ID")
	}
	svc, err := customsearch.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create custom search client: %w", err)
	}
	return &imageSearchService{
		log:      serviceLog,
		searcher: &customSearchClient{svc: svc, engineID: engineID},
		cache:    cache,
	}, nil
}

// Search returns HTTPS image URLs for the query; http results are dropped
// because clients refuse to render them inside the embedded task view.
func (is *imageSearchService) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierr.Validation("query", "must not be empty")
	}

	cacheKey := "imagesearch:" + strings.ToLower(query)
	if is.cache != nil {
		if raw, err := is.cache.Get(ctx, cacheKey).Result(); err == nil {
			var urls []string
			if err := json.Unmarshal([]byte(raw), &urls); err == nil {
				return urls, nil
			}
		}
	}

	results, err := is.searcher.search(ctx, query)
	if err != nil {
		is.log.Error("Image search failed", "error", err, "query", query)
		return nil, apierr.Storage(fmt.Errorf("image search: %w", err))
	}
	urls := make([]string, 0, len(results))
	for _, link := range results {
		if strings.HasPrefix(strings.ToLower(link), "https://") {
			urls = append(urls, link)
		}
	}

	if is.cache != nil {
		if raw, err := json.Marshal(urls); err == nil {
			if err := is.cache.Set(ctx, cacheKey, raw, imageSearchCacheTTL).Err(); err != nil {
				is.log.Debug("Image search cache write failed", "error", err)
			}
		}
	}
	return urls, nil
}
