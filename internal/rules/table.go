package rules

import (
	"errors"
	"fmt"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
)

var ErrInvalidRules = errors.New("invalid_rules")

// Table holds every threshold the detectors apply. Property and farm
// deployments are configured independently even where the concepts overlap.
type Table struct {
	Property PropertyRules `mapstructure:"property"`
	Farm     FarmRules     `mapstructure:"farm"`
}

type PropertyRules struct {
	Lease     LeaseRules     `mapstructure:"lease"`
	Expense   ExpenseRules   `mapstructure:"expense"`
	WorkOrder StalenessRules `mapstructure:"work_order"`
	Incident  IncidentRules  `mapstructure:"incident"`
}

type FarmRules struct {
	Sensor    SensorRules    `mapstructure:"sensor"`
	Equipment StalenessRules `mapstructure:"equipment"`
	Supply    SupplyRules    `mapstructure:"supply"`
	FieldLog  FieldLogRules  `mapstructure:"field_log"`
	Lunar     LunarRules     `mapstructure:"lunar"`
}

type LeaseRules struct {
	WindowDays      int            `mapstructure:"window_days"`
	BriefWindowDays int            `mapstructure:"brief_window_days"`
	Breakpoints     DayBreakpoints `mapstructure:"breakpoints"`
	Recommendation  string         `mapstructure:"recommendation"`
}

type ExpenseRules struct {
	LookbackDays int    `mapstructure:"lookback_days"`
	Amount       Metric `mapstructure:"amount"`
}

type StalenessRules struct {
	Breakpoints    StalenessBreakpoints `mapstructure:"breakpoints"`
	Recommendation string               `mapstructure:"recommendation"`
}

type IncidentRules struct {
	LookbackDays    int                             `mapstructure:"lookback_days"`
	DefaultSeverity alertdomain.Severity            `mapstructure:"default_severity"`
	Levels          map[string]alertdomain.Severity `mapstructure:"levels"`
	Recommendation  string                          `mapstructure:"recommendation"`
}

type SensorRules struct {
	LookbackDays int      `mapstructure:"lookback_days"`
	RowLimit     int      `mapstructure:"row_limit"`
	Metrics      []Metric `mapstructure:"metrics"`
}

type SupplyRules struct {
	Ratio Metric `mapstructure:"ratio"`
}

type FieldLogRules struct {
	LookbackDays int          `mapstructure:"lookback_days"`
	RowLimit     int          `mapstructure:"row_limit"`
	Vocabularies []Vocabulary `mapstructure:"vocabularies"`
}

type LunarRules struct {
	Enabled bool `mapstructure:"enabled"`
}

// Metric looks up a sensor metric by name.
func (r SensorRules) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

func DefaultTable() Table {
	return Table{
		Property: PropertyRules{
			Lease: LeaseRules{
				WindowDays:      90,
				BriefWindowDays: 30,
				Breakpoints:     DayBreakpoints{Critical: 7, High: 14, Medium: 21},
				Recommendation:  "Contact the tenant about renewal terms",
			},
			Expense: ExpenseRules{
				LookbackDays: 30,
				Amount: Metric{
					Name:           "amount",
					Unit:           "USD",
					Recommendation: "Review the expense against the approved budget",
					Bounds: []Bound{
						{Severity: alertdomain.SeverityCritical, Op: OpGte, Value: 25000},
						{Severity: alertdomain.SeverityHigh, Op: OpGte, Value: 10000},
						{Severity: alertdomain.SeverityMedium, Op: OpGte, Value: 5000},
					},
				},
			},
			WorkOrder: StalenessRules{
				Breakpoints:    StalenessBreakpoints{Low: 7, Medium: 14, High: 30, Critical: 60},
				Recommendation: "Assign a vendor or escalate the work order",
			},
			Incident: IncidentRules{
				LookbackDays:    7,
				DefaultSeverity: alertdomain.SeverityMedium,
				Levels: map[string]alertdomain.Severity{
					"critical":  alertdomain.SeverityCritical,
					"emergency": alertdomain.SeverityCritical,
					"high":      alertdomain.SeverityHigh,
					"medium":    alertdomain.SeverityMedium,
					"low":       alertdomain.SeverityLow,
					"minor":     alertdomain.SeverityLow,
				},
				Recommendation: "Follow up with security staff and document the resolution",
			},
		},
		Farm: FarmRules{
			Sensor: SensorRules{
				LookbackDays: 1,
				RowLimit:     500,
				Metrics: []Metric{
					{
						Name:           "moisture_pct",
						Unit:           "%",
						Recommendation: "Check irrigation for this zone",
						Bounds: []Bound{
							{Severity: alertdomain.SeverityCritical, Op: OpLt, Value: 10},
							{Severity: alertdomain.SeverityHigh, Op: OpLt, Value: 20},
							{Severity: alertdomain.SeverityMedium, Op: OpLt, Value: 30},
							{Severity: alertdomain.SeverityMedium, Op: OpGt, Value: 85},
						},
					},
					{
						Name:           "ec_ms_cm",
						Unit:           "mS/cm",
						Recommendation: "Flush the root zone and review the nutrient mix",
						Bounds: []Bound{
							{Severity: alertdomain.SeverityHigh, Op: OpGt, Value: 3.5},
							{Severity: alertdomain.SeverityMedium, Op: OpGt, Value: 2.5},
							{Severity: alertdomain.SeverityMedium, Op: OpLt, Value: 0.5},
						},
					},
					{
						Name:           "temperature_c",
						Unit:           "°C",
						Recommendation: "Provide shade or frost cover as needed",
						Bounds: []Bound{
							{Severity: alertdomain.SeverityCritical, Op: OpGt, Value: 38},
							{Severity: alertdomain.SeverityHigh, Op: OpGt, Value: 32},
							{Severity: alertdomain.SeverityHigh, Op: OpLt, Value: 5},
							{Severity: alertdomain.SeverityMedium, Op: OpLt, Value: 10},
						},
					},
				},
			},
			Equipment: StalenessRules{
				Breakpoints:    StalenessBreakpoints{Low: 90, Medium: 180, High: 270, Critical: 365},
				Recommendation: "Schedule preventive maintenance",
			},
			Supply: SupplyRules{
				Ratio: Metric{
					Name:           "stock_ratio",
					Unit:           "ratio",
					Recommendation: "Reorder before the next work cycle",
					Bounds: []Bound{
						{Severity: alertdomain.SeverityCritical, Op: OpLte, Value: 0},
						{Severity: alertdomain.SeverityHigh, Op: OpLt, Value: 0.5},
						{Severity: alertdomain.SeverityMedium, Op: OpLt, Value: 1},
					},
				},
			},
			FieldLog: FieldLogRules{
				LookbackDays: 3,
				RowLimit:     200,
				Vocabularies: []Vocabulary{
					{
						Kind:     alertdomain.KindCropHealth,
						Severity: alertdomain.SeverityMedium,
						Phrases:  []string{"yellowing", "wilting", "leaf spot", "blight", "root rot", "stunted"},
					},
					{
						Kind:     alertdomain.KindPestPressure,
						Severity: alertdomain.SeverityHigh,
						Phrases:  []string{"aphid", "mite", "beetle", "caterpillar", "slug", "fruit fly", "infestation"},
					},
					{
						Kind:     alertdomain.KindIrrigationIssue,
						Severity: alertdomain.SeverityMedium,
						Phrases:  []string{"leak", "clogged", "flooding", "drip line", "low pressure", "dry emitter"},
					},
				},
			},
			Lunar: LunarRules{Enabled: true},
		},
	}
}

// Validate rejects tables that would break severity monotonicity or leave a
// detector without usable bounds.
func (t Table) Validate() error {
	p, f := t.Property, t.Farm

	if p.Lease.WindowDays <= 0 || p.Lease.BriefWindowDays <= 0 {
		return fmt.Errorf("%w: property.lease windows must be positive", ErrInvalidRules)
	}
	if err := p.Lease.Breakpoints.validate(); err != nil {
		return fmt.Errorf("%w: property.lease.breakpoints: %v", ErrInvalidRules, err)
	}
	if p.Expense.LookbackDays <= 0 {
		return fmt.Errorf("%w: property.expense.lookback_days must be positive", ErrInvalidRules)
	}
	if err := p.Expense.Amount.validate(); err != nil {
		return fmt.Errorf("%w: property.expense.amount: %v", ErrInvalidRules, err)
	}
	if err := p.WorkOrder.Breakpoints.validate(); err != nil {
		return fmt.Errorf("%w: property.work_order.breakpoints: %v", ErrInvalidRules, err)
	}
	if p.Incident.LookbackDays <= 0 {
		return fmt.Errorf("%w: property.incident.lookback_days must be positive", ErrInvalidRules)
	}
	if !p.Incident.DefaultSeverity.Valid() {
		return fmt.Errorf("%w: property.incident.default_severity %q", ErrInvalidRules, p.Incident.DefaultSeverity)
	}
	for level, sev := range p.Incident.Levels {
		if !sev.Valid() {
			return fmt.Errorf("%w: property.incident.levels.%s %q", ErrInvalidRules, level, sev)
		}
	}

	if f.Sensor.LookbackDays <= 0 {
		return fmt.Errorf("%w: farm.sensor.lookback_days must be positive", ErrInvalidRules)
	}
	if len(f.Sensor.Metrics) == 0 {
		return fmt.Errorf("%w: farm.sensor.metrics cannot be empty", ErrInvalidRules)
	}
	for _, m := range f.Sensor.Metrics {
		if err := m.validate(); err != nil {
			return fmt.Errorf("%w: farm.sensor.metrics.%s: %v", ErrInvalidRules, m.Name, err)
		}
	}
	if err := f.Equipment.Breakpoints.validate(); err != nil {
		return fmt.Errorf("%w: farm.equipment.breakpoints: %v", ErrInvalidRules, err)
	}
	if err := f.Supply.Ratio.validate(); err != nil {
		return fmt.Errorf("%w: farm.supply.ratio: %v", ErrInvalidRules, err)
	}
	if f.FieldLog.LookbackDays <= 0 {
		return fmt.Errorf("%w: farm.field_log.lookback_days must be positive", ErrInvalidRules)
	}
	for _, v := range f.FieldLog.Vocabularies {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: farm.field_log.vocabularies.%s: %v", ErrInvalidRules, v.Kind, err)
		}
	}
	return nil
}
