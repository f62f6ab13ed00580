package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-dashboard/internal/models"
	"ev-dashboard/migrations"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

type fixture struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewStructuredLogger("repo-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("repo_test", prometheus.NewRegistry())

	db, err := database.New(&database.Config{Driver: database.DriverSQLite, Database: ":memory:"}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplySchema(context.Background(), migrations.Up()))

	return &fixture{db: db, logger: logger, metrics: collector}
}

func TestSubsidyRepository_Regions(t *testing.T) {
	f := newFixture(t)
	repo := NewSubsidyRepository(f.db, f.logger, f.metrics)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRegionSubsidies(ctx, []*models.RegionSubsidy{
		{Sido: "서울", RegionName: "서울특별시", SubsidyPassenger: 170, SubsidyMicro: 100},
		{Sido: "경기", RegionName: "수원시", SubsidyPassenger: 250, SubsidyMicro: 150},
		{Sido: "경기", RegionName: "고양시", SubsidyPassenger: 230, SubsidyMicro: 140},
	}))

	// re-import updates in place
	require.NoError(t, repo.UpsertRegionSubsidies(ctx, []*models.RegionSubsidy{
		{Sido: "서울", RegionName: "서울특별시", SubsidyPassenger: 180, SubsidyMicro: 100},
	}))

	regions, err := repo.ListRegionSubsidies(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, "고양시", regions[0].RegionName)
	assert.Equal(t, "수원시", regions[1].RegionName)
	assert.Equal(t, int64(180), regions[2].SubsidyPassenger)

	assert.NoError(t, repo.UpsertRegionSubsidies(ctx, nil))
}

func TestSubsidyRepository_Models(t *testing.T) {
	f := newFixture(t)
	repo := NewSubsidyRepository(f.db, f.logger, f.metrics)
	ctx := context.Background()

	require.NoError(t, repo.UpsertModelSubsidies(ctx, []*models.ModelSubsidy{
		{RegionName: "서울특별시", VehicleType: "승용", Manufacturer: "현대", ModelName: "아이오닉5", GovSubsidy: 580, LocalSubsidy: 148, TotalSubsidy: 728},
		{RegionName: "서울특별시", VehicleType: "승용", Manufacturer: "기아", ModelName: "EV6", GovSubsidy: 580, LocalSubsidy: 148, TotalSubsidy: 728},
		{RegionName: "서울특별시", VehicleType: "화물", Manufacturer: "기아", ModelName: "봉고EV", GovSubsidy: 1050, LocalSubsidy: 300, TotalSubsidy: 1350},
		{RegionName: "수원시", VehicleType: "승용", Manufacturer: "기아", ModelName: "EV6", GovSubsidy: 580, LocalSubsidy: 300, TotalSubsidy: 880},
	}))

	items, err := repo.ListModelSubsidies(ctx, ModelFilter{RegionName: "서울특별시", VehicleType: "승용"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "기아", items[0].Manufacturer)

	all, err := repo.ListModelSubsidies(ctx, ModelFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	item, err := repo.GetModelSubsidy(ctx, ModelKey{RegionName: "수원시", VehicleType: "승용", Manufacturer: "기아", ModelName: "EV6"})
	require.NoError(t, err)
	assert.Equal(t, int64(880), item.TotalSubsidy)

	_, err = repo.GetModelSubsidy(ctx, ModelKey{RegionName: "수원시", VehicleType: "화물", Manufacturer: "기아", ModelName: "EV6"})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "model_subsidy", nf.Resource)
}

func TestSubsidyRepository_ContactsAndFAQ(t *testing.T) {
	f := newFixture(t)
	repo := NewSubsidyRepository(f.db, f.logger, f.metrics)
	ctx := context.Background()

	require.NoError(t, repo.UpsertContacts(ctx, []*models.LocalContact{
		{Sido: "서울", RegionName: "서울특별시", Department: "친환경차량팀", Phone: "02-120"},
		{Sido: "경기", RegionName: "수원시", Department: "기후대기과", Phone: "031-228-0000"},
	}))
	contacts, err := repo.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "경기", contacts[0].Sido)

	require.NoError(t, repo.UpsertSubsidyFAQ(ctx, []*models.SubsidyFAQ{
		{Page: 2, FAQOrder: 1, Tag: "지급", Question: "언제 지급되나요?", Answer: "출고 후"},
		{Page: 1, FAQOrder: 2, Tag: "신청", Question: "누가 신청하나요?", Answer: "판매사"},
		{Page: 1, FAQOrder: 1, Tag: "신청", Question: "어디서 신청하나요?", Answer: "무공해차 누리집"},
	}))
	faqs, err := repo.ListSubsidyFAQ(ctx)
	require.NoError(t, err)
	require.Len(t, faqs, 3)
	assert.Equal(t, "어디서 신청하나요?", faqs[0].Question)
	assert.Equal(t, 2, faqs[2].Page)

	require.NoError(t, repo.HealthCheck(ctx))
}

func TestFAQRepository_BrandTables(t *testing.T) {
	f := newFixture(t)
	repo := NewFAQRepository(f.db, f.logger, f.metrics)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBrandFAQ(ctx, models.BrandTesla, []*models.BrandFAQ{
		{ID: 2, Category: "충전", Question: "Supercharger 요금은?", Answer: "지역별 상이"},
		{ID: 1, Category: "차량", Question: "OTA 업데이트란?", Answer: "무선 업데이트"},
	}))

	faqs, err := repo.ListBrandFAQ(ctx, models.BrandTesla)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, int64(1), faqs[0].ID)

	others, err := repo.ListBrandFAQ(ctx, models.BrandBYD)
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = repo.ListBrandFAQ(ctx, models.Brand("kia_faq; DROP TABLE ev_faq"))
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}
