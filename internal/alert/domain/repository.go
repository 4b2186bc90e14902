package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// BatchInsert writes all alerts in one transaction or none of them.
	BatchInsert(ctx context.Context, db *gorm.DB, alerts []*Alert) error
	// ListByStatus returns alerts in any of the given statuses, newest first.
	ListByStatus(ctx context.Context, db *gorm.DB, statuses []Status, limit int) ([]Alert, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Alert, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, updatedAt time.Time) error
}
