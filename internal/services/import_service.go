package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ev-dashboard/internal/models"
	"ev-dashboard/internal/repository"
	"ev-dashboard/pkg/csvio"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// Importable datasets
const (
	DatasetRegions  = "regions"
	DatasetModels   = "models"
	DatasetContacts = "contacts"
	DatasetFAQ      = "faq"
	DatasetBrandFAQ = "brand-faq"
)

// Datasets lists the datasets accepted by Import
var Datasets = []string{DatasetRegions, DatasetModels, DatasetContacts, DatasetFAQ, DatasetBrandFAQ}

// datasetColumns are the CSV header names each dataset requires
var datasetColumns = map[string][]string{
	DatasetRegions:  {"sido", "region_name", "subsidy_passenger", "subsidy_micro"},
	DatasetModels:   {"region_name", "vehicle_type", "manufacturer", "model_name", "gov_subsidy", "local_subsidy", "total_subsidy"},
	DatasetContacts: {"sido", "region_name", "department", "phone"},
	DatasetFAQ:      {"page", "faq_order", "tag", "question", "answer"},
	DatasetBrandFAQ: {"faq_id", "category", "question", "answer"},
}

// ImportService loads the reference tables from CSV exports
type ImportService struct {
	subsidies repository.SubsidyRepository
	faqs      repository.FAQRepository
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// ImportResult contains import statistics
type ImportResult struct {
	Dataset           string        `json:"dataset" yaml:"dataset"`
	Files             int           `json:"files,omitempty" yaml:"files,omitempty"`
	TotalRecords      int           `json:"total_records" yaml:"total_records"`
	SuccessfulRecords int           `json:"successful_records" yaml:"successful_records"`
	FailedRecords     int           `json:"failed_records" yaml:"failed_records"`
	Duration          time.Duration `json:"duration" yaml:"duration"`
	Errors            []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewImportService creates a new import service
func NewImportService(subsidies repository.SubsidyRepository, faqs repository.FAQRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ImportService {
	return &ImportService{
		subsidies: subsidies,
		faqs:      faqs,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ImportOptions selects the dataset and, for brand-faq, the brand
type ImportOptions struct {
	Dataset string
	Brand   string
}

// Import parses r as CSV and upserts the valid rows in one transaction.
// Rows that fail to parse are counted and reported, not fatal.
func (s *ImportService) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	startTime := time.Now()

	columns, ok := datasetColumns[opts.Dataset]
	if !ok {
		return nil, &models.ValidationError{Field: "dataset", Value: opts.Dataset, Message: "unknown dataset"}
	}

	var brand models.Brand
	if opts.Dataset == DatasetBrandFAQ {
		if brand, ok = models.ParseBrand(opts.Brand); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBrand, opts.Brand)
		}
	}

	s.logger.Info(ctx, "[IMPORT_START] Starting dataset import", logging.Fields{
		"dataset": opts.Dataset,
		"brand":   string(brand),
		"stage":   "INITIALIZATION",
	})

	records, err := csvio.ReadAll(r)
	if err != nil {
		s.metrics.RecordImportError(opts.Dataset, "read_error")
		return nil, err
	}
	if len(records) == 0 {
		return nil, &models.ValidationError{Field: "header", Message: "empty csv"}
	}

	header := csvio.NewHeader(records[0])
	if err := header.Require(columns...); err != nil {
		return nil, &models.ValidationError{Field: "header", Message: err.Error()}
	}

	result := &ImportResult{Dataset: opts.Dataset, Errors: []string{}}
	rows := records[1:]

	fail := func(line int, err error) {
		result.FailedRecords++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		s.metrics.RecordImportError(opts.Dataset, "parse_error")
	}

	switch opts.Dataset {
	case DatasetRegions:
		var batch []*models.RegionSubsidy
		for i, rec := range rows {
			if isEmptyRecord(rec) {
				continue
			}
			result.TotalRecords++
			item, err := parseRegion(header, rec)
			if err != nil {
				fail(i+2, err)
				continue
			}
			batch = append(batch, item)
		}
		err = s.subsidies.UpsertRegionSubsidies(ctx, batch)
		result.SuccessfulRecords = len(batch)

	case DatasetModels:
		var batch []*models.ModelSubsidy
		for i, rec := range rows {
			if isEmptyRecord(rec) {
				continue
			}
			result.TotalRecords++
			item, err := parseModel(header, rec)
			if err != nil {
				fail(i+2, err)
				continue
			}
			batch = append(batch, item)
		}
		err = s.subsidies.UpsertModelSubsidies(ctx, batch)
		result.SuccessfulRecords = len(batch)

	case DatasetContacts:
		var batch []*models.LocalContact
		for i, rec := range rows {
			if isEmptyRecord(rec) {
				continue
			}
			result.TotalRecords++
			item, err := parseContact(header, rec)
			if err != nil {
				fail(i+2, err)
				continue
			}
			batch = append(batch, item)
		}
		err = s.subsidies.UpsertContacts(ctx, batch)
		result.SuccessfulRecords = len(batch)

	case DatasetFAQ:
		var batch []*models.SubsidyFAQ
		for i, rec := range rows {
			if isEmptyRecord(rec) {
				continue
			}
			result.TotalRecords++
			item, err := parseSubsidyFAQ(header, rec)
			if err != nil {
				fail(i+2, err)
				continue
			}
			batch = append(batch, item)
		}
		err = s.subsidies.UpsertSubsidyFAQ(ctx, batch)
		result.SuccessfulRecords = len(batch)

	case DatasetBrandFAQ:
		var batch []*models.BrandFAQ
		for i, rec := range rows {
			if isEmptyRecord(rec) {
				continue
			}
			result.TotalRecords++
			item, err := parseBrandFAQ(header, rec)
			if err != nil {
				fail(i+2, err)
				continue
			}
			batch = append(batch, item)
		}
		err = s.faqs.UpsertBrandFAQ(ctx, brand, batch)
		result.SuccessfulRecords = len(batch)
	}

	if err != nil {
		s.logger.Error(ctx, "[IMPORT_ERROR] Dataset import failed", logging.Fields{
			"dataset": opts.Dataset,
			"stage":   "UPSERT",
		}, err)
		return nil, fmt.Errorf("failed to import %s: %w", opts.Dataset, err)
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Dataset import completed", logging.Fields{
		"dataset":            opts.Dataset,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// ImportDirectory imports every *.csv file in dir as the same dataset.
// A file that fails as a whole is reported in Errors and skipped.
func (s *ImportService) ImportDirectory(ctx context.Context, dir string, opts ImportOptions) (*ImportResult, error) {
	startTime := time.Now()

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no csv files found in %s", dir)
	}

	s.logger.Info(ctx, "[IMPORT_FILES] Found data files", logging.Fields{
		"dataset":    opts.Dataset,
		"dir":        dir,
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	result := &ImportResult{Dataset: opts.Dataset, Files: len(files), Errors: []string{}}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := s.importFile(ctx, path, opts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			s.logger.Error(ctx, "[IMPORT_FILE_ERROR] File import failed", logging.Fields{
				"file_path": path,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordImportError(opts.Dataset, "file_error")
			continue
		}

		result.TotalRecords += fileResult.TotalRecords
		result.SuccessfulRecords += fileResult.SuccessfulRecords
		result.FailedRecords += fileResult.FailedRecords
		for _, e := range fileResult.Errors {
			result.Errors = append(result.Errors, filepath.Base(path)+": "+e)
		}
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

func (s *ImportService) importFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return s.Import(ctx, f, opts)
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

func requireText(h csvio.Header, rec []string, columns ...string) error {
	for _, c := range columns {
		if h.Get(rec, c) == "" {
			return &models.ValidationError{Field: c, Message: "is required"}
		}
	}
	return nil
}

func parseInt(h csvio.Header, rec []string, column string) (int, error) {
	raw := h.Get(rec, column)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: column, Value: raw, Message: "must be an integer"}
	}
	return v, nil
}

func parseRegion(h csvio.Header, rec []string) (*models.RegionSubsidy, error) {
	if err := requireText(h, rec, "sido", "region_name"); err != nil {
		return nil, err
	}
	passenger, err := models.ParseAmount("subsidy_passenger", h.Get(rec, "subsidy_passenger"))
	if err != nil {
		return nil, err
	}
	micro, err := models.ParseAmount("subsidy_micro", h.Get(rec, "subsidy_micro"))
	if err != nil {
		return nil, err
	}
	return &models.RegionSubsidy{
		Sido:             h.Get(rec, "sido"),
		RegionName:       h.Get(rec, "region_name"),
		SubsidyPassenger: passenger,
		SubsidyMicro:     micro,
	}, nil
}

func parseModel(h csvio.Header, rec []string) (*models.ModelSubsidy, error) {
	if err := requireText(h, rec, "region_name", "vehicle_type", "manufacturer", "model_name"); err != nil {
		return nil, err
	}
	m := &models.ModelSubsidy{
		RegionName:   h.Get(rec, "region_name"),
		VehicleType:  h.Get(rec, "vehicle_type"),
		Manufacturer: h.Get(rec, "manufacturer"),
		ModelName:    h.Get(rec, "model_name"),
	}
	var err error
	if m.GovSubsidy, err = models.ParseAmount("gov_subsidy", h.Get(rec, "gov_subsidy")); err != nil {
		return nil, err
	}
	if m.LocalSubsidy, err = models.ParseAmount("local_subsidy", h.Get(rec, "local_subsidy")); err != nil {
		return nil, err
	}
	if m.TotalSubsidy, err = models.ParseAmount("total_subsidy", h.Get(rec, "total_subsidy")); err != nil {
		return nil, err
	}
	return m, nil
}

func parseContact(h csvio.Header, rec []string) (*models.LocalContact, error) {
	if err := requireText(h, rec, "sido", "region_name", "department"); err != nil {
		return nil, err
	}
	return &models.LocalContact{
		Sido:       h.Get(rec, "sido"),
		RegionName: h.Get(rec, "region_name"),
		Department: h.Get(rec, "department"),
		Phone:      h.Get(rec, "phone"),
	}, nil
}

func parseSubsidyFAQ(h csvio.Header, rec []string) (*models.SubsidyFAQ, error) {
	if err := requireText(h, rec, "question"); err != nil {
		return nil, err
	}
	page, err := parseInt(h, rec, "page")
	if err != nil {
		return nil, err
	}
	order, err := parseInt(h, rec, "faq_order")
	if err != nil {
		return nil, err
	}
	return &models.SubsidyFAQ{
		Page:     page,
		FAQOrder: order,
		Tag:      h.Get(rec, "tag"),
		Question: h.Get(rec, "question"),
		Answer:   h.Get(rec, "answer"),
	}, nil
}

func parseBrandFAQ(h csvio.Header, rec []string) (*models.BrandFAQ, error) {
	if err := requireText(h, rec, "question"); err != nil {
		return nil, err
	}
	id, err := parseInt(h, rec, "faq_id")
	if err != nil {
		return nil, err
	}
	return &models.BrandFAQ{
		ID:       int64(id),
		Category: h.Get(rec, "category"),
		Question: h.Get(rec, "question"),
		Answer:   h.Get(rec, "answer"),
	}, nil
}
