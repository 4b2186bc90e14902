package domain

import "time"

// Operational records are owned by the dashboards. The alert engine only
// reads them.

type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

type Lease struct {
	ID           string      `gorm:"primaryKey"`
	PropertyName string      `gorm:"not null"`
	UnitName     string      `gorm:"not null"`
	TenantName   string      `gorm:"not null"`
	EndDate      time.Time   `gorm:"not null;index"`
	Status       LeaseStatus `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Lease) TableName() string { return "leases" }

type Expense struct {
	ID         string    `gorm:"primaryKey"`
	Category   string    `gorm:"not null"`
	Vendor     string
	Amount     float64   `gorm:"not null"`
	IncurredAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
}

func (Expense) TableName() string { return "expenses" }

type WorkOrderStatus string

const (
	WorkOrderStatusOpen   WorkOrderStatus = "open"
	WorkOrderStatusClosed WorkOrderStatus = "closed"
)

type WorkOrder struct {
	ID           string          `gorm:"primaryKey"`
	PropertyName string          `gorm:"not null"`
	Title        string          `gorm:"not null"`
	Priority     string
	Status       WorkOrderStatus `gorm:"size:32;not null;index"`
	OpenedAt     time.Time       `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (WorkOrder) TableName() string { return "work_orders" }

type Incident struct {
	ID           string    `gorm:"primaryKey"`
	PropertyName string    `gorm:"not null"`
	Category     string    `gorm:"not null"`
	Level        string
	Location     string
	Resolved     bool      `gorm:"not null;default:false"`
	ReportedAt   time.Time `gorm:"not null;index"`
	CreatedAt    time.Time
}

func (Incident) TableName() string { return "security_incidents" }

// SensorReading is one sample from a field sensor. Metrics a sensor does not
// report are nil.
type SensorReading struct {
	ID           string `gorm:"primaryKey"`
	SensorID     string `gorm:"size:128;not null;index"`
	Zone         string
	MoisturePct  *float64
	ECmScm       *float64 `gorm:"column:ec_ms_cm"`
	TemperatureC *float64
	RecordedAt   time.Time `gorm:"not null;index"`
}

func (SensorReading) TableName() string { return "sensor_readings" }

type Equipment struct {
	ID             string    `gorm:"primaryKey"`
	Name           string    `gorm:"not null"`
	Category       string
	LastServicedAt time.Time `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Equipment) TableName() string { return "equipment" }

type SupplyItem struct {
	ID              string  `gorm:"primaryKey"`
	Name            string  `gorm:"not null"`
	Unit            string
	QuantityOnHand  float64 `gorm:"not null"`
	MinimumQuantity float64 `gorm:"not null"`
	UpdatedAt       time.Time
}

func (SupplyItem) TableName() string { return "supply_items" }

type FieldLog struct {
	ID       string    `gorm:"primaryKey"`
	Zone     string
	Author   string
	Body     string    `gorm:"type:text;not null"`
	LoggedAt time.Time `gorm:"not null;index"`
}

func (FieldLog) TableName() string { return "field_logs" }
