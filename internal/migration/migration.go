package migration

import (
	"errors"
	"fmt"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the alerts table. The operational tables
// belong to the systems that write them and are only created when
// includeOperations is set, which local sqlite setups rely on.
func RunMigrations(db *gorm.DB, includeOperations bool) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	if err := db.AutoMigrate(&alertdomain.Alert{}); err != nil {
		return fmt.Errorf("migrate alerts: %w", err)
	}
	if !includeOperations {
		return nil
	}

	if err := db.AutoMigrate(
		&opsdomain.Lease{},
		&opsdomain.Expense{},
		&opsdomain.WorkOrder{},
		&opsdomain.Incident{},
		&opsdomain.SensorReading{},
		&opsdomain.Equipment{},
		&opsdomain.SupplyItem{},
		&opsdomain.FieldLog{},
	); err != nil {
		return fmt.Errorf("migrate operational tables: %w", err)
	}
	return nil
}
