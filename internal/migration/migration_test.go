package migration

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestRunMigrationsAlertsOnly(t *testing.T) {
	db := openDB(t)

	require.NoError(t, RunMigrations(db, false))

	assert.True(t, db.Migrator().HasTable(&alertdomain.Alert{}))
	assert.False(t, db.Migrator().HasTable(&opsdomain.Lease{}))
}

func TestRunMigrationsWithOperationalTables(t *testing.T) {
	db := openDB(t)

	require.NoError(t, RunMigrations(db, true))
	// second run is a no-op
	require.NoError(t, RunMigrations(db, true))

	for _, model := range []any{
		&alertdomain.Alert{},
		&opsdomain.Lease{},
		&opsdomain.SensorReading{},
		&opsdomain.FieldLog{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestAlertMetadataColumnUsesDialectJSONType(t *testing.T) {
	db := openDB(t)
	require.NoError(t, RunMigrations(db, false))

	columns, err := db.Migrator().ColumnTypes(&alertdomain.Alert{})
	require.NoError(t, err)

	var found bool
	for _, c := range columns {
		if c.Name() != "metadata" {
			continue
		}
		found = true
		assert.True(t, strings.EqualFold(c.DatabaseTypeName(), "json"), "got %q", c.DatabaseTypeName())
	}
	assert.True(t, found)
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil, false))
}
