package detection

import (
	"context"
	"fmt"
	"strings"
	"time"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
)

const day = 24 * time.Hour

// LeaseExpiration flags active leases ending inside the forward window.
type LeaseExpiration struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewLeaseExpiration(reader opsdomain.Reader, src rules.Source) *LeaseExpiration {
	return &LeaseExpiration{reader: reader, rules: src}
}

func (d *LeaseExpiration) Name() string { return NameLeaseExpiration }

func (d *LeaseExpiration) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentProperty
}

func (d *LeaseExpiration) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Property.Lease
	return d.detectWithin(ctx, now, cfg, cfg.WindowDays)
}

// DetectBrief uses the shorter dashboard window.
func (d *LeaseExpiration) DetectBrief(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Property.Lease
	return d.detectWithin(ctx, now, cfg, cfg.BriefWindowDays)
}

// detectWithin takes the window and the breakpoints from the same snapshot.
func (d *LeaseExpiration) detectWithin(ctx context.Context, now time.Time, cfg rules.LeaseRules, windowDays int) ([]alertdomain.Draft, error) {
	leases, err := d.reader.ActiveLeasesEndingBetween(ctx, now, now.Add(time.Duration(windowDays)*day))
	if err != nil {
		return nil, err
	}

	drafts := make([]alertdomain.Draft, 0, len(leases))
	for _, lease := range leases {
		days := rules.DaysUntil(lease.EndDate, now)
		sev := cfg.Breakpoints.Expiry(days)

		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentProperty,
			Kind:        alertdomain.KindLeaseExpiration,
			Severity:    sev,
			Title:       fmt.Sprintf("Lease expiring in %d days: %s unit %s", days, lease.PropertyName, lease.UnitName),
			Description: fmt.Sprintf("Lease for %s at %s unit %s ends on %s.", lease.TenantName, lease.PropertyName, lease.UnitName, lease.EndDate.UTC().Format("2006-01-02")),
			SubjectType: alertdomain.SubjectLease,
			SubjectID:   lease.ID,
			Metadata: alertdomain.Metadata{
				Metric:         "days_until",
				Unit:           "days",
				EndDate:        alertdomain.Time(lease.EndDate),
				DaysUntil:      alertdomain.Int(days),
				Recommendation: cfg.Recommendation,
				Extras: map[string]any{
					"property_name": lease.PropertyName,
					"unit_name":     lease.UnitName,
					"tenant_name":   lease.TenantName,
				},
			},
		})
	}
	return drafts, nil
}

// FinancialAnomaly flags recent expenses above the configured amount bounds.
type FinancialAnomaly struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewFinancialAnomaly(reader opsdomain.Reader, src rules.Source) *FinancialAnomaly {
	return &FinancialAnomaly{reader: reader, rules: src}
}

func (d *FinancialAnomaly) Name() string { return NameFinancialAnomaly }

func (d *FinancialAnomaly) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentProperty
}

func (d *FinancialAnomaly) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Property.Expense
	expenses, err := d.reader.ExpensesSince(ctx, now.Add(-time.Duration(cfg.LookbackDays)*day))
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, e := range expenses {
		bound, ok := cfg.Amount.Evaluate(e.Amount)
		if !ok {
			continue
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentProperty,
			Kind:        alertdomain.KindFinancialAnomaly,
			Severity:    bound.Severity,
			Title:       fmt.Sprintf("Unusual %s expense: %.2f %s", e.Category, e.Amount, cfg.Amount.Unit),
			Description: fmt.Sprintf("Expense of %.2f %s to %s on %s is %s %.2f.", e.Amount, cfg.Amount.Unit, vendorOrUnknown(e.Vendor), e.IncurredAt.UTC().Format("2006-01-02"), bound.Op.Symbol(), bound.Value),
			SubjectType: alertdomain.SubjectExpense,
			SubjectID:   e.ID,
			Metadata: alertdomain.Metadata{
				Metric:         cfg.Amount.Name,
				Threshold:      alertdomain.Float(bound.Value),
				ObservedValue:  alertdomain.Float(e.Amount),
				Unit:           cfg.Amount.Unit,
				Recommendation: cfg.Amount.Recommendation,
				Extras: map[string]any{
					"comparator": string(bound.Op),
					"category":   e.Category,
					"vendor":     e.Vendor,
				},
			},
		})
	}
	return drafts, nil
}

func vendorOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "an unknown vendor"
	}
	return v
}

// MaintenanceOverdue flags work orders left open past the staleness
// breakpoints.
type MaintenanceOverdue struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewMaintenanceOverdue(reader opsdomain.Reader, src rules.Source) *MaintenanceOverdue {
	return &MaintenanceOverdue{reader: reader, rules: src}
}

func (d *MaintenanceOverdue) Name() string { return NameMaintenanceOverdue }

func (d *MaintenanceOverdue) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentProperty
}

func (d *MaintenanceOverdue) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Property.WorkOrder
	orders, err := d.reader.OpenWorkOrders(ctx)
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, wo := range orders {
		elapsed := rules.ElapsedDays(wo.OpenedAt, now)
		sev, ok := cfg.Breakpoints.Severity(elapsed)
		if !ok {
			continue
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentProperty,
			Kind:        alertdomain.KindMaintenanceOverdue,
			Severity:    sev,
			Title:       fmt.Sprintf("Work order open %d days: %s", elapsed, wo.Title),
			Description: fmt.Sprintf("Work order %q at %s has been open since %s.", wo.Title, wo.PropertyName, wo.OpenedAt.UTC().Format("2006-01-02")),
			SubjectType: alertdomain.SubjectWorkOrder,
			SubjectID:   wo.ID,
			Metadata: alertdomain.Metadata{
				Metric:         "elapsed_days",
				Unit:           "days",
				ElapsedDays:    alertdomain.Int(elapsed),
				Threshold:      alertdomain.Float(float64(cfg.Breakpoints.Threshold(sev))),
				Recommendation: cfg.Recommendation,
				Extras: map[string]any{
					"property_name": wo.PropertyName,
					"priority":      wo.Priority,
				},
			},
		})
	}
	return drafts, nil
}

// SecurityIncident surfaces unresolved incidents, mapping the reported level
// straight to a severity.
type SecurityIncident struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewSecurityIncident(reader opsdomain.Reader, src rules.Source) *SecurityIncident {
	return &SecurityIncident{reader: reader, rules: src}
}

func (d *SecurityIncident) Name() string { return NameSecurityIncident }

func (d *SecurityIncident) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentProperty
}

func (d *SecurityIncident) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Property.Incident
	incidents, err := d.reader.UnresolvedIncidentsSince(ctx, now.Add(-time.Duration(cfg.LookbackDays)*day))
	if err != nil {
		return nil, err
	}

	drafts := make([]alertdomain.Draft, 0, len(incidents))
	for _, in := range incidents {
		level := strings.ToLower(strings.TrimSpace(in.Level))
		sev, ok := cfg.Levels[level]
		if !ok {
			sev = cfg.DefaultSeverity
		}
		location := in.Location
		if location == "" {
			location = in.PropertyName
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentProperty,
			Kind:        alertdomain.KindSecurityIncident,
			Severity:    sev,
			Title:       fmt.Sprintf("Unresolved %s incident at %s", in.Category, location),
			Description: fmt.Sprintf("%s incident reported at %s on %s is still open.", in.Category, in.PropertyName, in.ReportedAt.UTC().Format(time.RFC3339)),
			SubjectType: alertdomain.SubjectIncident,
			SubjectID:   in.ID,
			Metadata: alertdomain.Metadata{
				Recommendation: cfg.Recommendation,
				Extras: map[string]any{
					"level":         level,
					"level_mapped":  ok,
					"category":      in.Category,
					"property_name": in.PropertyName,
				},
			},
		})
	}
	return drafts, nil
}
