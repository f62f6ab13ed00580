package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ev-dashboard/internal/cache"
	"ev-dashboard/internal/models"
	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/textsearch"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// ErrUnknownBrand is returned for a brand without an FAQ table
var ErrUnknownBrand = errors.New("unknown brand")

// AllCategories is the group holding every matched entry
const AllCategories = "전체"

// FAQService searches manufacturer FAQs
type FAQService struct {
	repo    repository.FAQRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	cache   *cache.TTLCache[[]*models.BrandFAQ]
}

// NewFAQService creates a new FAQ service whose brand snapshots live for ttl
func NewFAQService(repo repository.FAQRepository, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FAQService {
	return &FAQService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		cache:   cache.New("brand_faq", ttl, cache.WithMetrics[[]*models.BrandFAQ](metricsCollector)),
	}
}

// Caches returns the service cache for administrative invalidation
func (s *FAQService) Caches() []cache.Invalidator {
	return []cache.Invalidator{s.cache}
}

// FAQItem is a matched entry; Highlighted is the question with matches
// wrapped in **…**
type FAQItem struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Question    string `json:"question"`
	Highlighted string `json:"highlighted_question"`
	Answer      string `json:"answer"`
}

// FAQGroup is one category tab
type FAQGroup struct {
	Category string    `json:"category"`
	Items    []FAQItem `json:"items"`
}

// FAQResult is the outcome of a brand FAQ search
type FAQResult struct {
	Brand   models.Brand `json:"brand"`
	Keyword string       `json:"keyword,omitempty"`
	// Terms are the keyword and its English translation, when one exists
	Terms  []string   `json:"terms,omitempty"`
	Count  int        `json:"count"`
	Items  []FAQItem  `json:"items"`
	Groups []FAQGroup `json:"groups,omitempty"`
}

// Search returns the brand's FAQ entries whose question contains the
// keyword or its translation. KIA and Tesla results are also grouped by
// category, 전체 first.
func (s *FAQService) Search(ctx context.Context, brandName, keyword string) (*FAQResult, error) {
	brand, ok := models.ParseBrand(brandName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBrand, brandName)
	}

	faqs, err := s.cache.Get(ctx, string(brand), func(ctx context.Context) ([]*models.BrandFAQ, error) {
		return s.repo.ListBrandFAQ(ctx, brand)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s faq: %w", brand, err)
	}

	terms := textsearch.Terms(keyword)
	result := &FAQResult{
		Brand:   brand,
		Keyword: keyword,
		Terms:   terms,
		Items:   []FAQItem{},
	}

	for _, f := range faqs {
		if len(terms) > 0 && !textsearch.ContainsAny(terms, f.Question) {
			continue
		}
		result.Items = append(result.Items, FAQItem{
			ID:          f.ID,
			Category:    f.Category,
			Question:    f.Question,
			Highlighted: textsearch.Highlight(f.Question, terms),
			Answer:      f.Answer,
		})
	}
	result.Count = len(result.Items)

	if brand.Categorized() && len(result.Items) > 0 {
		result.Groups = groupByCategory(result.Items)
	}

	s.logger.Debug(ctx, "[FAQ_SEARCH] Brand FAQ searched", logging.Fields{
		"brand":   string(brand),
		"keyword": keyword,
		"count":   result.Count,
	})

	return result, nil
}

func groupByCategory(items []FAQItem) []FAQGroup {
	groups := []FAQGroup{{Category: AllCategories, Items: items}}
	index := make(map[string]int)
	for _, item := range items {
		if item.Category == "" {
			continue
		}
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, FAQGroup{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
