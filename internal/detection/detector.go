package detection

import (
	"context"
	"time"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/config"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
	"go.uber.org/fx"
)

// Detector reads one slice of operational data and turns threshold
// crossings into drafts. Implementations never write.
type Detector interface {
	Name() string
	Deployment() alertdomain.Deployment
	Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error)
}

const (
	NameLeaseExpiration      = "lease_expiration"
	NameFinancialAnomaly     = "financial_anomaly"
	NameMaintenanceOverdue   = "maintenance_overdue"
	NameSecurityIncident     = "security_incident"
	NameCropHealth           = "crop_health"
	NameEquipmentMaintenance = "equipment_maintenance"
	NameSupplyShortage       = "supply_shortage"
	NameFieldLogKeywords     = "field_log_keywords"
	NameLunarNote            = "lunar_note"
)

type RegistryParams struct {
	fx.In

	Config config.Config
	Reader opsdomain.Reader
	Rules  rules.Source
}

// Registry holds the enabled detectors in a fixed order: property first,
// then farm. Aggregated output follows this order.
type Registry struct {
	detectors []Detector
	lease     *LeaseExpiration
}

func NewRegistry(p RegistryParams) *Registry {
	lease := NewLeaseExpiration(p.Reader, p.Rules)
	all := []Detector{
		lease,
		NewFinancialAnomaly(p.Reader, p.Rules),
		NewMaintenanceOverdue(p.Reader, p.Rules),
		NewSecurityIncident(p.Reader, p.Rules),
		NewCropHealth(p.Reader, p.Rules),
		NewEquipmentMaintenance(p.Reader, p.Rules),
		NewSupplyShortage(p.Reader, p.Rules),
		NewFieldLogKeywords(p.Reader, p.Rules),
		NewLunarNote(p.Rules),
	}

	enabled := make([]Detector, 0, len(all))
	for _, d := range all {
		if !p.Config.HasDeployment(string(d.Deployment())) {
			continue
		}
		if p.Config.IsDetectorDisabled(d.Name()) {
			continue
		}
		enabled = append(enabled, d)
	}
	return &Registry{detectors: enabled, lease: lease}
}

// NewRegistryOf wraps an explicit detector list.
func NewRegistryOf(detectors ...Detector) *Registry {
	r := &Registry{detectors: detectors}
	for _, d := range detectors {
		if l, ok := d.(*LeaseExpiration); ok {
			r.lease = l
		}
	}
	return r
}

func (r *Registry) Detectors() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Lease returns the lease detector even when it is not enabled for passes,
// so the dashboard brief keeps working.
func (r *Registry) Lease() *LeaseExpiration {
	return r.lease
}
