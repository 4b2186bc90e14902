package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	ListOpen(ctx context.Context, req ListRequest) ([]Response, error)
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
}

type ListRequest struct {
	Limit int `json:"limit"`
}

type PlanRequest struct{}

type UpdateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Response struct {
	ID          string         `json:"id"`
	Deployment  string         `json:"deployment"`
	Kind        string         `json:"kind"`
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Metadata    map[string]any `json:"metadata"`
	Status      string         `json:"status"`
	PassID      string         `json:"pass_id"`
	DetectedAt  time.Time      `json:"detected_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type PlanResponse struct {
	Urgent          []Response `json:"urgent"`
	ThisWeek        []Response `json:"this_week"`
	ThisMonth       []Response `json:"this_month"`
	NextThreeMonths []Response `json:"next_three_months"`
}

var (
	ErrInvalidDeployment = errors.New("invalid_deployment")
	ErrInvalidKind       = errors.New("invalid_kind")
	ErrInvalidSeverity   = errors.New("invalid_severity")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidSubject    = errors.New("invalid_subject")
	ErrInvalidMetadata   = errors.New("invalid_metadata")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
