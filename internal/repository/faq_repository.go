package repository

import (
	"context"
	"fmt"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// brandTables is the only source of table names in brand FAQ queries
var brandTables = map[models.Brand]string{
	models.BrandKIA:   "kia_faq",
	models.BrandBMW:   "bmw_faq",
	models.BrandTesla: "tesla_faq",
	models.BrandBYD:   "byd_faq",
}

// FAQRepository provides data access for manufacturer FAQ tables
type FAQRepository interface {
	ListBrandFAQ(ctx context.Context, brand models.Brand) ([]*models.BrandFAQ, error)
	UpsertBrandFAQ(ctx context.Context, brand models.Brand, faqs []*models.BrandFAQ) error
}

type faqRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFAQRepository creates a new brand FAQ repository
func NewFAQRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) FAQRepository {
	return &faqRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func tableFor(brand models.Brand) (string, error) {
	table, ok := brandTables[brand]
	if !ok {
		return "", &NotFoundError{Resource: "brand", ID: string(brand)}
	}
	return table, nil
}

// ListBrandFAQ returns a brand's FAQ ordered by faq_id
func (r *faqRepository) ListBrandFAQ(ctx context.Context, brand models.Brand) ([]*models.BrandFAQ, error) {
	table, err := tableFor(brand)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT faq_id, category, question, answer
		FROM %s
		ORDER BY faq_id
	`, table)

	var faqs []*models.BrandFAQ
	if err := r.db.SelectContext(ctx, "list_"+table, &faqs, query); err != nil {
		return nil, fmt.Errorf("failed to list %s faq: %w", brand, err)
	}

	r.logger.Debug(ctx, "[REPO_LIST_BRAND_FAQ] Brand FAQ loaded", logging.Fields{
		"brand": string(brand),
		"count": len(faqs),
	})

	return faqs, nil
}

// UpsertBrandFAQ writes a brand's FAQ entries in a single transaction
func (r *faqRepository) UpsertBrandFAQ(ctx context.Context, brand models.Brand, faqs []*models.BrandFAQ) error {
	table, err := tableFor(brand)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (faq_id, category, question, answer)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (faq_id) DO UPDATE SET
			category = EXCLUDED.category,
			question = EXCLUDED.question,
			answer = EXCLUDED.answer
	`, table)

	return execBatch(ctx, r.db, r.logger, r.metrics, table, query, len(faqs), func(i int) []interface{} {
		f := faqs[i]
		return []interface{}{f.ID, f.Category, f.Question, f.Answer}
	})
}
