package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ev-dashboard/internal/cache"
	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/models"
	"ev-dashboard/internal/source"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// ErrNoCongestionData is returned when a (charge type, hour) has no row
var ErrNoCongestionData = errors.New("no congestion data")

// CongestionOptions configures where the load table comes from
type CongestionOptions struct {
	Source   string
	Sheet    string
	Schema   congestion.Schema
	Location *time.Location
	TTL      time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

// CongestionService builds the hourly congestion table from the load
// source and answers lookups against it. The table is rebuilt after the
// cache TTL and never persisted.
type CongestionService struct {
	opener   *source.Opener
	location source.Location
	format   congestion.Format
	sheet    string
	schema   congestion.Schema
	tz       *time.Location
	now      func() time.Time

	cache   *cache.TTLCache[congestion.Table]
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewCongestionService validates the source and creates the service
func NewCongestionService(opener *source.Opener, opts CongestionOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*CongestionService, error) {
	loc, err := source.Parse(opts.Source)
	if err != nil {
		return nil, err
	}
	format, err := congestion.FormatFromName(loc.Name())
	if err != nil {
		return nil, err
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}

	return &CongestionService{
		opener:   opener,
		location: loc,
		format:   format,
		sheet:    opts.Sheet,
		schema:   opts.Schema,
		tz:       opts.Location,
		now:      opts.Now,
		cache:    cache.New("congestion", opts.TTL, cache.WithMetrics[congestion.Table](metricsCollector)),
		logger: logger.WithFields(logging.Fields{
			"component": "congestion",
			"source":    loc.String(),
		}),
		metrics: metricsCollector,
	}, nil
}

// Caches returns the service cache for administrative invalidation
func (s *CongestionService) Caches() []cache.Invalidator {
	return []cache.Invalidator{s.cache}
}

// Source returns the configured source location
func (s *CongestionService) Source() string {
	return s.location.String()
}

func (s *CongestionService) table(ctx context.Context) (congestion.Table, error) {
	return s.cache.Get(ctx, s.location.String(), s.build)
}

func (s *CongestionService) build(ctx context.Context) (congestion.Table, error) {
	rc, err := s.opener.Open(ctx, s.location)
	if err != nil {
		s.logger.Error(ctx, "[CONGESTION_SOURCE_ERROR] Failed to open load table", logging.Fields{}, err)
		return nil, err
	}
	defer rc.Close()

	timer := s.metrics.NewTimer(s.metrics.CongestionBuildDuration)

	wide, err := s.schema.Read(rc, s.format, s.sheet)
	if err != nil {
		s.logger.Error(ctx, "[CONGESTION_PARSE_ERROR] Failed to parse load table", logging.Fields{
			"format": string(s.format),
		}, err)
		return nil, err
	}

	records := congestion.Reshape(wide)
	table := congestion.BuildTable(records)
	duration := timer.ObserveDuration()

	for _, row := range table {
		s.metrics.RecordCongestionLevel(string(row.Level))
	}

	s.logger.Info(ctx, "[CONGESTION_BUILD] Congestion table built", logging.Fields{
		"wide_rows":   len(wide.Rows),
		"hours":       len(wide.Hours),
		"records":     len(records),
		"table_rows":  len(table),
		"categories":  table.Categories(),
		"duration_ms": duration.Milliseconds(),
	})

	return table, nil
}

// Table returns the classified table, optionally limited to one charge type
func (s *CongestionService) Table(ctx context.Context, chargeType string) (congestion.Table, error) {
	table, err := s.table(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build congestion table: %w", err)
	}

	chargeType = strings.TrimSpace(chargeType)
	if chargeType == "" {
		return table, nil
	}
	return table.ForCategory(chargeType), nil
}

// Categories returns the charge types present in the source
func (s *CongestionService) Categories(ctx context.Context) ([]string, error) {
	table, err := s.table(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build congestion table: %w", err)
	}
	return table.Categories(), nil
}

// Thresholds returns the q25/q75 cut points of each charge type
func (s *CongestionService) Thresholds(ctx context.Context) (map[string]congestion.Thresholds, error) {
	table, err := s.table(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build congestion table: %w", err)
	}
	return table.Thresholds(), nil
}

// CurrentHour returns the wall-clock hour in the configured timezone
func (s *CongestionService) CurrentHour() int {
	return s.now().In(s.tz).Hour()
}

// Current returns the congestion for chargeType at hour, or at the
// current hour when hour is nil. A missing row is ErrNoCongestionData.
func (s *CongestionService) Current(ctx context.Context, chargeType string, hour *int) (congestion.Current, error) {
	chargeType = strings.TrimSpace(chargeType)
	if chargeType == "" {
		return congestion.Current{}, &models.ValidationError{Field: "charge_type", Message: "is required"}
	}

	h := s.CurrentHour()
	if hour != nil {
		if *hour < 0 || *hour > 23 {
			return congestion.Current{}, &models.ValidationError{
				Field:   "hour",
				Value:   fmt.Sprint(*hour),
				Message: "must be between 0 and 23",
			}
		}
		h = *hour
	}

	table, err := s.table(ctx)
	if err != nil {
		return congestion.Current{}, fmt.Errorf("failed to build congestion table: %w", err)
	}

	current, ok := congestion.CurrentCongestion(table, chargeType, h)
	if !ok {
		return congestion.Current{}, fmt.Errorf("%w for %s at %d시", ErrNoCongestionData, chargeType, h)
	}
	return current, nil
}

// Snapshot returns the congestion of every charge type at hour, or at
// the current hour when hour is nil
func (s *CongestionService) Snapshot(ctx context.Context, hour *int) ([]congestion.Current, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]congestion.Current, 0, len(categories))
	for _, category := range categories {
		current, err := s.Current(ctx, category, hour)
		if errors.Is(err, ErrNoCongestionData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, current)
	}
	return out, nil
}

// Chart renders the hourly means as PNG, optionally for one charge type
func (s *CongestionService) Chart(ctx context.Context, w io.Writer, chargeType string) error {
	table, err := s.Table(ctx, chargeType)
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return fmt.Errorf("%w for %s", ErrNoCongestionData, chargeType)
	}

	title := "Hourly charging load"
	if chargeType != "" {
		title += " (" + chargeType + ")"
	}
	return congestion.RenderChart(w, table, congestion.ChartOptions{Title: title})
}
