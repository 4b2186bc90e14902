package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/clock"
	"github.com/smallbiznis/opsalert/internal/planner"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alert.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) ListOpen(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	items, err := s.repo.ListByStatus(ctx, s.db, []domain.Status{domain.StatusNew}, clampLimit(req.Limit, defaultListLimit))
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

// Plan buckets every new alert. The read is not capped: a truncated input
// would silently drop alerts from the plan.
func (s *Service) Plan(ctx context.Context, req domain.PlanRequest) (*domain.PlanResponse, error) {
	items, err := s.repo.ListByStatus(ctx, s.db, []domain.Status{domain.StatusNew}, 0)
	if err != nil {
		return nil, err
	}

	buckets := planner.Classify(items, s.clock.Now())
	return &domain.PlanResponse{
		Urgent:          toResponses(buckets.Urgent),
		ThisWeek:        toResponses(buckets.ThisWeek),
		ThisMonth:       toResponses(buckets.ThisMonth),
		NextThreeMonths: toResponses(buckets.NextThreeMonths),
	}, nil
}

// UpdateStatus applies a transition requested by an operator. Alerts are
// created as new and never move back to it.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	id, err := domain.ParseID(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() || status == domain.StatusNew {
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Alert
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, id, status, now); err != nil {
			return err
		}
		item.Status = status
		item.UpdatedAt = now
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("alert status updated",
		zap.String("alert_id", id.String()),
		zap.String("status", string(status)),
	)
	resp := toResponse(*updated)
	return &resp, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func toResponses(items []domain.Alert) []domain.Response {
	out := make([]domain.Response, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	return out
}

func toResponse(a domain.Alert) domain.Response {
	metadata := map[string]any{}
	for k, v := range a.Metadata {
		metadata[k] = v
	}
	return domain.Response{
		ID:          a.ID.String(),
		Deployment:  string(a.Deployment),
		Kind:        string(a.Kind),
		Severity:    string(a.Severity),
		Title:       a.Title,
		Description: a.Description,
		SubjectType: string(a.SubjectType),
		SubjectID:   a.SubjectID,
		Metadata:    metadata,
		Status:      string(a.Status),
		PassID:      a.PassID,
		DetectedAt:  a.DetectedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
