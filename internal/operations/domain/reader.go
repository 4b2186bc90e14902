package domain

import (
	"context"
	"time"
)

// Reader exposes the narrow, read-only slices of operational data each
// detector needs. Every method returns rows in a deterministic order.
type Reader interface {
	// ActiveLeasesEndingBetween returns active leases with end_date in
	// [from, to], ascending by end_date.
	ActiveLeasesEndingBetween(ctx context.Context, from, to time.Time) ([]Lease, error)
	ExpensesSince(ctx context.Context, since time.Time) ([]Expense, error)
	OpenWorkOrders(ctx context.Context) ([]WorkOrder, error)
	UnresolvedIncidentsSince(ctx context.Context, since time.Time) ([]Incident, error)
	// SensorReadingsSince returns readings newest first.
	SensorReadingsSince(ctx context.Context, since time.Time, limit int) ([]SensorReading, error)
	Equipment(ctx context.Context) ([]Equipment, error)
	SupplyItems(ctx context.Context) ([]SupplyItem, error)
	FieldLogsSince(ctx context.Context, since time.Time, limit int) ([]FieldLog, error)
}
