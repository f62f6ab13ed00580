package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ev-dashboard/internal/cache"
	"ev-dashboard/internal/models"
	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/textsearch"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// AllTags selects every subsidy FAQ entry
const AllTags = "전체"

const cacheKeyAll = "all"

// SubsidyService serves subsidy, contact and subsidy-FAQ lookups from
// cached table snapshots
type SubsidyService struct {
	repo    repository.SubsidyRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	regions  *cache.TTLCache[[]*models.RegionSubsidy]
	models   *cache.TTLCache[[]*models.ModelSubsidy]
	contacts *cache.TTLCache[[]*models.LocalContact]
	faqs     *cache.TTLCache[[]*models.SubsidyFAQ]
}

// NewSubsidyService creates a new subsidy service whose snapshots live for ttl
func NewSubsidyService(repo repository.SubsidyRepository, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SubsidyService {
	return &SubsidyService{
		repo:     repo,
		logger:   logger,
		metrics:  metricsCollector,
		regions:  cache.New("subsidy_regions", ttl, cache.WithMetrics[[]*models.RegionSubsidy](metricsCollector)),
		models:   cache.New("subsidy_models", ttl, cache.WithMetrics[[]*models.ModelSubsidy](metricsCollector)),
		contacts: cache.New("subsidy_contacts", ttl, cache.WithMetrics[[]*models.LocalContact](metricsCollector)),
		faqs:     cache.New("subsidy_faq", ttl, cache.WithMetrics[[]*models.SubsidyFAQ](metricsCollector)),
	}
}

// Caches returns the service caches for administrative invalidation
func (s *SubsidyService) Caches() []cache.Invalidator {
	return []cache.Invalidator{s.regions, s.models, s.contacts, s.faqs}
}

// ListRegions returns region subsidies whose sido or region name contains
// keyword, ignoring case. An empty keyword returns every region.
func (s *SubsidyService) ListRegions(ctx context.Context, keyword string) ([]*models.RegionSubsidy, error) {
	regions, err := s.regions.Get(ctx, cacheKeyAll, s.repo.ListRegionSubsidies)
	if err != nil {
		return nil, fmt.Errorf("failed to load region subsidies: %w", err)
	}

	terms := textsearch.Terms(keyword)
	if len(terms) == 0 {
		return regions, nil
	}

	out := make([]*models.RegionSubsidy, 0, len(regions))
	for _, r := range regions {
		if textsearch.ContainsAny(terms[:1], r.Sido, r.RegionName) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ModelSelection is a partial cascade selection; later fields are only
// honoured when the earlier ones are set
type ModelSelection struct {
	RegionName   string `json:"region_name"`
	VehicleType  string `json:"vehicle_type"`
	Manufacturer string `json:"manufacturer"`
}

// ModelOptions lists the choices available at each cascade step
type ModelOptions struct {
	Regions       []string `json:"regions"`
	VehicleTypes  []string `json:"vehicle_types"`
	Manufacturers []string `json:"manufacturers"`
	Models        []string `json:"models"`
}

// ModelOptions resolves the cascade region → vehicle type → manufacturer
// → model. Each list is sorted and de-duplicated; a step stays empty
// until its parent is selected.
func (s *SubsidyService) ModelOptions(ctx context.Context, sel ModelSelection) (*ModelOptions, error) {
	items, err := s.models.Get(ctx, cacheKeyAll, func(ctx context.Context) ([]*models.ModelSubsidy, error) {
		return s.repo.ListModelSubsidies(ctx, repository.ModelFilter{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load model subsidies: %w", err)
	}

	opts := &ModelOptions{
		Regions:       []string{},
		VehicleTypes:  []string{},
		Manufacturers: []string{},
		Models:        []string{},
	}

	opts.Regions = uniqueSorted(items, func(m *models.ModelSubsidy) (string, bool) {
		return m.RegionName, true
	})
	if sel.RegionName == "" {
		return opts, nil
	}

	opts.VehicleTypes = uniqueSorted(items, func(m *models.ModelSubsidy) (string, bool) {
		return m.VehicleType, m.RegionName == sel.RegionName
	})
	if sel.VehicleType == "" {
		return opts, nil
	}

	opts.Manufacturers = uniqueSorted(items, func(m *models.ModelSubsidy) (string, bool) {
		return m.Manufacturer, m.RegionName == sel.RegionName && m.VehicleType == sel.VehicleType
	})
	if sel.Manufacturer == "" {
		return opts, nil
	}

	opts.Models = uniqueSorted(items, func(m *models.ModelSubsidy) (string, bool) {
		return m.ModelName, m.RegionName == sel.RegionName && m.VehicleType == sel.VehicleType && m.Manufacturer == sel.Manufacturer
	})
	return opts, nil
}

func uniqueSorted(items []*models.ModelSubsidy, pick func(*models.ModelSubsidy) (string, bool)) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range items {
		v, ok := pick(m)
		if !ok || v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ModelDetail is the subsidy of a fully selected model with display strings
type ModelDetail struct {
	*models.ModelSubsidy
	Display models.SubsidyAmounts `json:"display"`
}

// ModelDetail returns the amounts for a complete selection
func (s *SubsidyService) ModelDetail(ctx context.Context, key repository.ModelKey) (*ModelDetail, error) {
	required := []struct{ field, value string }{
		{"region", key.RegionName},
		{"vehicle_type", key.VehicleType},
		{"manufacturer", key.Manufacturer},
		{"model", key.ModelName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &models.ValidationError{Field: r.field, Message: "is required"}
		}
	}

	item, err := s.repo.GetModelSubsidy(ctx, key)
	if err != nil {
		return nil, err
	}

	return &ModelDetail{ModelSubsidy: item, Display: item.Amounts()}, nil
}

// ListContacts returns contacts whose sido, region or department contains
// keyword, sorted by (sido, region)
func (s *SubsidyService) ListContacts(ctx context.Context, keyword string) ([]*models.LocalContact, error) {
	contacts, err := s.contacts.Get(ctx, cacheKeyAll, s.repo.ListContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	out := make([]*models.LocalContact, 0, len(contacts))
	terms := textsearch.Terms(keyword)
	for _, c := range contacts {
		if len(terms) == 0 || textsearch.ContainsAny(terms[:1], c.Sido, c.RegionName, c.Department) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sido != out[j].Sido {
			return out[i].Sido < out[j].Sido
		}
		return out[i].RegionName < out[j].RegionName
	})
	return out, nil
}

// SubsidyFAQResult is the tag list and the entries of the selected tag
type SubsidyFAQResult struct {
	Tags  []string             `json:"tags"`
	Tag   string               `json:"tag"`
	Items []*models.SubsidyFAQ `json:"items"`
}

// SubsidyFAQ returns FAQ entries for tag; "" or 전체 selects all
func (s *SubsidyService) SubsidyFAQ(ctx context.Context, tag string) (*SubsidyFAQResult, error) {
	faqs, err := s.faqs.Get(ctx, cacheKeyAll, s.repo.ListSubsidyFAQ)
	if err != nil {
		return nil, fmt.Errorf("failed to load subsidy faq: %w", err)
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, f := range faqs {
		if f.Tag != "" && !seen[f.Tag] {
			seen[f.Tag] = true
			tags = append(tags, f.Tag)
		}
	}
	sort.Strings(tags)

	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = AllTags
	}

	result := &SubsidyFAQResult{
		Tags:  append([]string{AllTags}, tags...),
		Tag:   tag,
		Items: []*models.SubsidyFAQ{},
	}
	for _, f := range faqs {
		if tag == AllTags || f.Tag == tag {
			result.Items = append(result.Items, f)
		}
	}
	return result, nil
}
