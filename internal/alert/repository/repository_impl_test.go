package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Alert{}))
	return db
}

func newAlert(id int64) *domain.Alert {
	return &domain.Alert{
		ID:          snowflake.ID(id),
		Deployment:  domain.DeploymentFarm,
		Kind:        domain.KindIrrigationIssue,
		Severity:    domain.SeverityHigh,
		Title:       fmt.Sprintf("sensor %d", id),
		Description: "moisture low",
		SubjectType: domain.SubjectSensor,
		SubjectID:   fmt.Sprintf("sensor-%d", id),
		Metadata:    domain.Metadata{}.JSONMap(),
		Status:      domain.StatusNew,
		PassID:      "01HPASS",
		Fingerprint: fmt.Sprintf("irrigation_issue|sensor|sensor-%d|2025-03-01", id),
		DetectedAt:  testNow,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func countAlerts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&domain.Alert{}).Count(&n).Error)
	return n
}

func TestBatchInsertDuplicateKeyWritesNothing(t *testing.T) {
	db := openDB(t)
	r := Provide()

	err := r.BatchInsert(context.Background(), db, []*domain.Alert{newAlert(1), newAlert(2), newAlert(1)})
	require.Error(t, err)
	assert.Zero(t, countAlerts(t, db))
}

func TestBatchInsertConflictKeepsExistingRowsOnly(t *testing.T) {
	db := openDB(t)
	r := Provide()
	ctx := context.Background()

	require.NoError(t, r.BatchInsert(ctx, db, []*domain.Alert{newAlert(5)}))

	err := r.BatchInsert(ctx, db, []*domain.Alert{newAlert(6), newAlert(5)})
	require.Error(t, err)
	assert.Equal(t, int64(1), countAlerts(t, db))

	missing, err := r.FindByID(ctx, db, snowflake.ID(6))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBatchInsertEmptyIsNoop(t *testing.T) {
	db := openDB(t)

	require.NoError(t, Provide().BatchInsert(context.Background(), db, nil))
	assert.Zero(t, countAlerts(t, db))
}

func TestFindByID(t *testing.T) {
	db := openDB(t)
	r := Provide()
	ctx := context.Background()
	require.NoError(t, r.BatchInsert(ctx, db, []*domain.Alert{newAlert(7)}))

	got, err := r.FindByID(ctx, db, snowflake.ID(7))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sensor-7", got.SubjectID)
	assert.Equal(t, domain.StatusNew, got.Status)

	none, err := r.FindByID(ctx, db, snowflake.ID(8))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateStatus(t *testing.T) {
	db := openDB(t)
	r := Provide()
	ctx := context.Background()
	require.NoError(t, r.BatchInsert(ctx, db, []*domain.Alert{newAlert(9)}))

	later := testNow.Add(time.Hour)
	require.NoError(t, r.UpdateStatus(ctx, db, snowflake.ID(9), domain.StatusAcknowledged, later))

	got, err := r.FindByID(ctx, db, snowflake.ID(9))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusAcknowledged, got.Status)
	assert.True(t, later.Equal(got.UpdatedAt))

	err = r.UpdateStatus(ctx, db, snowflake.ID(10), domain.StatusResolved, later)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByStatusWithoutLimitReturnsAll(t *testing.T) {
	db := openDB(t)
	r := Provide()
	ctx := context.Background()

	batch := make([]*domain.Alert, 0, 12)
	for i := int64(1); i <= 12; i++ {
		a := newAlert(i)
		if i%4 == 0 {
			a.Status = domain.StatusResolved
		}
		batch = append(batch, a)
	}
	require.NoError(t, r.BatchInsert(ctx, db, batch))

	open, err := r.ListByStatus(ctx, db, []domain.Status{domain.StatusNew}, 0)
	require.NoError(t, err)
	assert.Len(t, open, 9)

	capped, err := r.ListByStatus(ctx, db, []domain.Status{domain.StatusNew}, 5)
	require.NoError(t, err)
	assert.Len(t, capped, 5)
}
