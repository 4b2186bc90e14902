package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/pkg/db/option"
	"github.com/smallbiznis/opsalert/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) BatchInsert(ctx context.Context, db *gorm.DB, alerts []*domain.Alert) error {
	return repository.ProvideStore[domain.Alert](db).BatchCreate(ctx, alerts)
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, statuses []domain.Status, limit int) ([]domain.Alert, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	var alerts []domain.Alert
	stmt := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("status IN ?", values).
		Order("created_at desc, id desc")
	stmt = option.Limit(limit).Apply(stmt)
	if err := stmt.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Alert, error) {
	return repository.ProvideStore[domain.Alert](db).FindOne(ctx, &domain.Alert{ID: id})
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, updatedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", int64(id)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
