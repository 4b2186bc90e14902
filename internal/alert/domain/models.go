package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Deployment string

const (
	DeploymentProperty Deployment = "property"
	DeploymentFarm     Deployment = "farm"
)

type Kind string

const (
	KindLeaseExpiration      Kind = "lease_expiration"
	KindFinancialAnomaly     Kind = "financial_anomaly"
	KindMaintenanceOverdue   Kind = "maintenance_overdue"
	KindSecurityIncident     Kind = "security_incident"
	KindCropHealth           Kind = "crop_health"
	KindPestPressure         Kind = "pest_pressure"
	KindIrrigationIssue      Kind = "irrigation_issue"
	KindEquipmentMaintenance Kind = "equipment_maintenance"
	KindSupplyShortage       Kind = "supply_shortage"
	KindLunarNote            Kind = "lunar_note"
)

var knownKinds = map[Kind]struct{}{
	KindLeaseExpiration:      {},
	KindFinancialAnomaly:     {},
	KindMaintenanceOverdue:   {},
	KindSecurityIncident:     {},
	KindCropHealth:           {},
	KindPestPressure:         {},
	KindIrrigationIssue:      {},
	KindEquipmentMaintenance: {},
	KindSupplyShortage:       {},
	KindLunarNote:            {},
}

func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

type SubjectType string

const (
	SubjectLease      SubjectType = "lease"
	SubjectExpense    SubjectType = "expense"
	SubjectWorkOrder  SubjectType = "work_order"
	SubjectIncident   SubjectType = "incident"
	SubjectSensor     SubjectType = "sensor"
	SubjectEquipment  SubjectType = "equipment"
	SubjectSupplyItem SubjectType = "supply_item"
	SubjectFieldLog   SubjectType = "field_log"
	SubjectCalendar   SubjectType = "calendar"
)

type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusDismissed    Status = "dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusResolved, StatusDismissed:
		return true
	default:
		return false
	}
}

// Alert is a persisted detection result. Only Status and UpdatedAt change
// after insert.
type Alert struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	Deployment  Deployment        `json:"deployment" gorm:"size:32;not null;index"`
	Kind        Kind              `json:"kind" gorm:"size:64;not null;index"`
	Severity    Severity          `json:"severity" gorm:"type:text;not null"`
	Title       string            `json:"title" gorm:"type:text;not null"`
	Description string            `json:"description" gorm:"type:text;not null"`
	SubjectType SubjectType       `json:"subject_type" gorm:"type:text;not null"`
	SubjectID   string            `json:"subject_id" gorm:"type:text;not null"`
	Metadata    datatypes.JSONMap `json:"metadata" gorm:"not null"`
	Status      Status            `json:"status" gorm:"size:32;not null;index"`
	PassID      string            `json:"pass_id" gorm:"type:text;not null"`
	Fingerprint string            `json:"fingerprint" gorm:"size:512;not null;index"`
	DetectedAt  time.Time         `json:"detected_at" gorm:"not null"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;index"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Alert) TableName() string { return "alerts" }
