package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// SubsidyRepository provides data access for subsidy tables
type SubsidyRepository interface {
	// Region operations
	ListRegionSubsidies(ctx context.Context) ([]*models.RegionSubsidy, error)
	UpsertRegionSubsidies(ctx context.Context, regions []*models.RegionSubsidy) error

	// Model operations
	ListModelSubsidies(ctx context.Context, filter ModelFilter) ([]*models.ModelSubsidy, error)
	GetModelSubsidy(ctx context.Context, key ModelKey) (*models.ModelSubsidy, error)
	UpsertModelSubsidies(ctx context.Context, items []*models.ModelSubsidy) error

	// Contact operations
	ListContacts(ctx context.Context) ([]*models.LocalContact, error)
	UpsertContacts(ctx context.Context, contacts []*models.LocalContact) error

	// FAQ operations
	ListSubsidyFAQ(ctx context.Context) ([]*models.SubsidyFAQ, error)
	UpsertSubsidyFAQ(ctx context.Context, faqs []*models.SubsidyFAQ) error

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ModelFilter narrows model subsidies; empty fields match everything
type ModelFilter struct {
	RegionName   string
	VehicleType  string
	Manufacturer string
}

// ModelKey identifies one row of ev_model_local_subsidy
type ModelKey struct {
	RegionName   string
	VehicleType  string
	Manufacturer string
	ModelName    string
}

func (k ModelKey) String() string {
	return strings.Join([]string{k.RegionName, k.VehicleType, k.Manufacturer, k.ModelName}, "/")
}

// subsidyRepository implements SubsidyRepository
type subsidyRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSubsidyRepository creates a new subsidy repository
func NewSubsidyRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SubsidyRepository {
	return &subsidyRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListRegionSubsidies returns every region ordered by (sido, region_name)
func (r *subsidyRepository) ListRegionSubsidies(ctx context.Context) ([]*models.RegionSubsidy, error) {
	query := `
		SELECT sido, region_name, subsidy_passenger, subsidy_micro
		FROM ev_local_car_subsidy
		ORDER BY sido, region_name
	`

	var regions []*models.RegionSubsidy
	if err := r.db.SelectContext(ctx, "list_region_subsidies", &regions, query); err != nil {
		return nil, fmt.Errorf("failed to list region subsidies: %w", err)
	}

	return regions, nil
}

// UpsertRegionSubsidies writes regions in a single transaction
func (r *subsidyRepository) UpsertRegionSubsidies(ctx context.Context, regions []*models.RegionSubsidy) error {
	query := `
		INSERT INTO ev_local_car_subsidy (sido, region_name, subsidy_passenger, subsidy_micro)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sido, region_name) DO UPDATE SET
			subsidy_passenger = EXCLUDED.subsidy_passenger,
			subsidy_micro = EXCLUDED.subsidy_micro
	`

	return execBatch(ctx, r.db, r.logger, r.metrics, "regions", query, len(regions), func(i int) []interface{} {
		g := regions[i]
		return []interface{}{g.Sido, g.RegionName, g.SubsidyPassenger, g.SubsidyMicro}
	})
}

// ListModelSubsidies returns model subsidies matching filter
func (r *subsidyRepository) ListModelSubsidies(ctx context.Context, filter ModelFilter) ([]*models.ModelSubsidy, error) {
	query := `
		SELECT region_name, vehicle_type, manufacturer, model_name,
		       gov_subsidy, local_subsidy, total_subsidy
		FROM ev_model_local_subsidy
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.RegionName != "" {
		query += " AND region_name = ?"
		args = append(args, filter.RegionName)
	}
	if filter.VehicleType != "" {
		query += " AND vehicle_type = ?"
		args = append(args, filter.VehicleType)
	}
	if filter.Manufacturer != "" {
		query += " AND manufacturer = ?"
		args = append(args, filter.Manufacturer)
	}

	query += " ORDER BY region_name, vehicle_type, manufacturer, model_name"

	var items []*models.ModelSubsidy
	if err := r.db.SelectContext(ctx, "list_model_subsidies", &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list model subsidies: %w", err)
	}

	return items, nil
}

// GetModelSubsidy retrieves the subsidy of one fully selected model
func (r *subsidyRepository) GetModelSubsidy(ctx context.Context, key ModelKey) (*models.ModelSubsidy, error) {
	query := `
		SELECT region_name, vehicle_type, manufacturer, model_name,
		       gov_subsidy, local_subsidy, total_subsidy
		FROM ev_model_local_subsidy
		WHERE region_name = ? AND vehicle_type = ? AND manufacturer = ? AND model_name = ?
	`

	var item models.ModelSubsidy
	err := r.db.GetContext(ctx, "get_model_subsidy", &item, query,
		key.RegionName, key.VehicleType, key.Manufacturer, key.ModelName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "model_subsidy",
			ID:       key.String(),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get model subsidy: %w", err)
	}

	return &item, nil
}

// UpsertModelSubsidies writes model subsidies in a single transaction
func (r *subsidyRepository) UpsertModelSubsidies(ctx context.Context, items []*models.ModelSubsidy) error {
	query := `
		INSERT INTO ev_model_local_subsidy (
			region_name, vehicle_type, manufacturer, model_name,
			gov_subsidy, local_subsidy, total_subsidy
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (region_name, vehicle_type, manufacturer, model_name) DO UPDATE SET
			gov_subsidy = EXCLUDED.gov_subsidy,
			local_subsidy = EXCLUDED.local_subsidy,
			total_subsidy = EXCLUDED.total_subsidy
	`

	return execBatch(ctx, r.db, r.logger, r.metrics, "models", query, len(items), func(i int) []interface{} {
		m := items[i]
		return []interface{}{
			m.RegionName, m.VehicleType, m.Manufacturer, m.ModelName,
			m.GovSubsidy, m.LocalSubsidy, m.TotalSubsidy,
		}
	})
}

// ListContacts returns every contact ordered by (sido, region_name)
func (r *subsidyRepository) ListContacts(ctx context.Context) ([]*models.LocalContact, error) {
	query := `
		SELECT sido, region_name, department, phone
		FROM ev_local_contact
		ORDER BY sido, region_name, department
	`

	var contacts []*models.LocalContact
	if err := r.db.SelectContext(ctx, "list_contacts", &contacts, query); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, nil
}

// UpsertContacts writes contacts in a single transaction
func (r *subsidyRepository) UpsertContacts(ctx context.Context, contacts []*models.LocalContact) error {
	query := `
		INSERT INTO ev_local_contact (sido, region_name, department, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sido, region_name, department) DO UPDATE SET
			phone = EXCLUDED.phone
	`

	return execBatch(ctx, r.db, r.logger, r.metrics, "contacts", query, len(contacts), func(i int) []interface{} {
		c := contacts[i]
		return []interface{}{c.Sido, c.RegionName, c.Department, c.Phone}
	})
}

// ListSubsidyFAQ returns the subsidy FAQ ordered by (page, faq_order)
func (r *subsidyRepository) ListSubsidyFAQ(ctx context.Context) ([]*models.SubsidyFAQ, error) {
	query := `
		SELECT page, faq_order, tag, question, answer
		FROM ev_faq
		ORDER BY page, faq_order
	`

	var faqs []*models.SubsidyFAQ
	if err := r.db.SelectContext(ctx, "list_subsidy_faq", &faqs, query); err != nil {
		return nil, fmt.Errorf("failed to list subsidy faq: %w", err)
	}

	return faqs, nil
}

// UpsertSubsidyFAQ writes FAQ entries in a single transaction
func (r *subsidyRepository) UpsertSubsidyFAQ(ctx context.Context, faqs []*models.SubsidyFAQ) error {
	query := `
		INSERT INTO ev_faq (page, faq_order, tag, question, answer)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (page, faq_order) DO UPDATE SET
			tag = EXCLUDED.tag,
			question = EXCLUDED.question,
			answer = EXCLUDED.answer
	`

	return execBatch(ctx, r.db, r.logger, r.metrics, "faq", query, len(faqs), func(i int) []interface{} {
		f := faqs[i]
		return []interface{}{f.Page, f.FAQOrder, f.Tag, f.Question, f.Answer}
	})
}

// HealthCheck checks repository health
func (r *subsidyRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// execBatch executes one prepared statement per row inside a transaction
func execBatch(ctx context.Context, db *database.DB, logger *logging.StructuredLogger, collector *metrics.Collector,
	dataset, query string, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		collector.ImportBatchSize.Observe(float64(n))
		logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
			"dataset":     dataset,
			"count":       n,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, db.Rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			collector.RecordImportError(dataset, "insert_error")
			return fmt.Errorf("failed to upsert %s row %d: %w", dataset, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	collector.RecordImport(dataset, n)

	return nil
}
