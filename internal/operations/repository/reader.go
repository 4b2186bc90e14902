package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/smallbiznis/opsalert/pkg/db/option"
	"github.com/smallbiznis/opsalert/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type reader struct {
	leases     repository.Repository[domain.Lease]
	expenses   repository.Repository[domain.Expense]
	workOrders repository.Repository[domain.WorkOrder]
	incidents  repository.Repository[domain.Incident]
	readings   repository.Repository[domain.SensorReading]
	equipment  repository.Repository[domain.Equipment]
	supplies   repository.Repository[domain.SupplyItem]
	fieldLogs  repository.Repository[domain.FieldLog]
}

func NewReader(p Params) domain.Reader {
	return &reader{
		leases:     repository.ProvideStore[domain.Lease](p.DB),
		expenses:   repository.ProvideStore[domain.Expense](p.DB),
		workOrders: repository.ProvideStore[domain.WorkOrder](p.DB),
		incidents:  repository.ProvideStore[domain.Incident](p.DB),
		readings:   repository.ProvideStore[domain.SensorReading](p.DB),
		equipment:  repository.ProvideStore[domain.Equipment](p.DB),
		supplies:   repository.ProvideStore[domain.SupplyItem](p.DB),
		fieldLogs:  repository.ProvideStore[domain.FieldLog](p.DB),
	}
}

func (r *reader) ActiveLeasesEndingBetween(ctx context.Context, from, to time.Time) ([]domain.Lease, error) {
	rows, err := r.leases.Find(ctx, nil,
		option.Equal("status", string(domain.LeaseStatusActive)),
		option.Gte("end_date", from),
		option.Lte("end_date", to),
		option.OrderBy("end_date", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) ExpensesSince(ctx context.Context, since time.Time) ([]domain.Expense, error) {
	rows, err := r.expenses.Find(ctx, nil,
		option.Gte("incurred_at", since),
		option.OrderBy("incurred_at", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) OpenWorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	rows, err := r.workOrders.Find(ctx, nil,
		option.Equal("status", string(domain.WorkOrderStatusOpen)),
		option.OrderBy("opened_at", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) UnresolvedIncidentsSince(ctx context.Context, since time.Time) ([]domain.Incident, error) {
	rows, err := r.incidents.Find(ctx, nil,
		option.Equal("resolved", false),
		option.Gte("reported_at", since),
		option.OrderBy("reported_at", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) SensorReadingsSince(ctx context.Context, since time.Time, limit int) ([]domain.SensorReading, error) {
	rows, err := r.readings.Find(ctx, nil,
		option.Gte("recorded_at", since),
		option.OrderBy("recorded_at", option.Desc),
		option.OrderBy("id", option.Asc),
		option.Limit(limit),
	)
	return deref(rows), err
}

func (r *reader) Equipment(ctx context.Context) ([]domain.Equipment, error) {
	rows, err := r.equipment.Find(ctx, nil,
		option.OrderBy("last_serviced_at", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) SupplyItems(ctx context.Context) ([]domain.SupplyItem, error) {
	rows, err := r.supplies.Find(ctx, nil,
		option.OrderBy("name", option.Asc),
		option.OrderBy("id", option.Asc),
	)
	return deref(rows), err
}

func (r *reader) FieldLogsSince(ctx context.Context, since time.Time, limit int) ([]domain.FieldLog, error) {
	rows, err := r.fieldLogs.Find(ctx, nil,
		option.Gte("logged_at", since),
		option.OrderBy("logged_at", option.Asc),
		option.OrderBy("id", option.Asc),
		option.Limit(limit),
	)
	return deref(rows), err
}

func deref[T any](rows []*T) []T {
	if len(rows) == 0 {
		return nil
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out
}
