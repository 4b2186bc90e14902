package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReaderDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Lease{},
		&domain.Expense{},
		&domain.WorkOrder{},
		&domain.Incident{},
		&domain.SensorReading{},
		&domain.Equipment{},
		&domain.SupplyItem{},
		&domain.FieldLog{},
	))
	return db
}

func TestActiveLeasesEndingBetween(t *testing.T) {
	db := setupReaderDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create([]domain.Lease{
		{ID: "l-late", PropertyName: "Makai", UnitName: "2B", TenantName: "K. Akana", EndDate: now.AddDate(0, 0, 40), Status: domain.LeaseStatusActive},
		{ID: "l-soon", PropertyName: "Makai", UnitName: "1A", TenantName: "L. Kealoha", EndDate: now.AddDate(0, 0, 5), Status: domain.LeaseStatusActive},
		{ID: "l-gone", PropertyName: "Makai", UnitName: "3C", TenantName: "M. Ho", EndDate: now.AddDate(0, 0, 10), Status: domain.LeaseStatusTerminated},
		{ID: "l-far", PropertyName: "Mauka", UnitName: "7", TenantName: "N. Silva", EndDate: now.AddDate(0, 0, 120), Status: domain.LeaseStatusActive},
		{ID: "l-past", PropertyName: "Mauka", UnitName: "8", TenantName: "O. Cruz", EndDate: now.AddDate(0, 0, -1), Status: domain.LeaseStatusActive},
	}).Error)

	r := NewReader(Params{DB: db})
	leases, err := r.ActiveLeasesEndingBetween(context.Background(), now, now.AddDate(0, 0, 90))
	require.NoError(t, err)
	require.Len(t, leases, 2)
	assert.Equal(t, "l-soon", leases[0].ID)
	assert.Equal(t, "l-late", leases[1].ID)
}

func TestUnresolvedIncidentsSinceFiltersResolved(t *testing.T) {
	db := setupReaderDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create([]domain.Incident{
		{ID: "i-1", PropertyName: "Makai", Category: "trespass", Level: "high", ReportedAt: now.Add(-2 * time.Hour)},
		{ID: "i-2", PropertyName: "Makai", Category: "noise", Level: "low", Resolved: true, ReportedAt: now.Add(-time.Hour)},
		{ID: "i-3", PropertyName: "Makai", Category: "break-in", Level: "critical", ReportedAt: now.AddDate(0, 0, -30)},
	}).Error)

	r := NewReader(Params{DB: db})
	incidents, err := r.UnresolvedIncidentsSince(context.Background(), now.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "i-1", incidents[0].ID)
}

func TestSensorReadingsSinceNewestFirstWithLimit(t *testing.T) {
	db := setupReaderDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	moisture := 40.0

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&domain.SensorReading{
			ID:          fmt.Sprintf("r-%d", i),
			SensorID:    "s-1",
			MoisturePct: &moisture,
			RecordedAt:  now.Add(-time.Duration(i) * time.Hour),
		}).Error)
	}

	r := NewReader(Params{DB: db})
	readings, err := r.SensorReadingsSince(context.Background(), now.Add(-24*time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "r-0", readings[0].ID)
	assert.Equal(t, "r-2", readings[2].ID)
	require.NotNil(t, readings[0].MoisturePct)
	assert.Nil(t, readings[0].ECmScm)
}

func TestSupplyItemsOrderedByName(t *testing.T) {
	db := setupReaderDB(t)

	require.NoError(t, db.Create([]domain.SupplyItem{
		{ID: "s-2", Name: "Potting mix", QuantityOnHand: 2, MinimumQuantity: 10},
		{ID: "s-1", Name: "Drip emitters", QuantityOnHand: 50, MinimumQuantity: 20},
	}).Error)

	r := NewReader(Params{DB: db})
	items, err := r.SupplyItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Drip emitters", items[0].Name)
}

func TestEmptyStoreReturnsNoRows(t *testing.T) {
	db := setupReaderDB(t)
	r := NewReader(Params{DB: db})

	logs, err := r.FieldLogsSince(context.Background(), time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
