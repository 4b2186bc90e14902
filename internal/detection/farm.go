package detection

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
)

const (
	MetricMoisture    = "moisture_pct"
	MetricEC          = "ec_ms_cm"
	MetricTemperature = "temperature_c"
)

var metricLabels = map[string]string{
	MetricMoisture:    "Soil moisture",
	MetricEC:          "Soil EC",
	MetricTemperature: "Temperature",
}

// CropHealth checks the latest reading of each sensor against the metric
// bounds and reports at most one alert per sensor.
type CropHealth struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewCropHealth(reader opsdomain.Reader, src rules.Source) *CropHealth {
	return &CropHealth{reader: reader, rules: src}
}

func (d *CropHealth) Name() string { return NameCropHealth }

func (d *CropHealth) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentFarm
}

func (d *CropHealth) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Farm.Sensor
	readings, err := d.reader.SensorReadingsSince(ctx, now.Add(-time.Duration(cfg.LookbackDays)*day), cfg.RowLimit)
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, r := range latestPerSensor(readings) {
		metric, bound, value, ok := worstMetric(cfg.Metrics, r)
		if !ok {
			continue
		}
		label := metricLabels[metric.Name]
		if label == "" {
			label = metric.Name
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentFarm,
			Kind:        alertdomain.KindCropHealth,
			Severity:    bound.Severity,
			Title:       fmt.Sprintf("%s %s%s on sensor %s", label, formatNumber(value), metric.Unit, r.SensorID),
			Description: fmt.Sprintf("%s reading of %s%s in zone %s is %s %s%s (recorded %s).", label, formatNumber(value), metric.Unit, zoneOrUnknown(r.Zone), bound.Op.Symbol(), formatNumber(bound.Value), metric.Unit, r.RecordedAt.UTC().Format(time.RFC3339)),
			SubjectType: alertdomain.SubjectSensor,
			SubjectID:   r.SensorID,
			Metadata: alertdomain.Metadata{
				Metric:         metric.Name,
				Threshold:      alertdomain.Float(bound.Value),
				ObservedValue:  alertdomain.Float(value),
				Unit:           metric.Unit,
				Recommendation: metric.Recommendation,
				Extras: map[string]any{
					"comparator": string(bound.Op),
					"zone":       r.Zone,
					"reading_id": r.ID,
				},
			},
		})
	}
	return drafts, nil
}

// latestPerSensor keeps the first reading seen per sensor. Readings arrive
// newest first, so that is the latest one.
func latestPerSensor(readings []opsdomain.SensorReading) []opsdomain.SensorReading {
	seen := make(map[string]struct{}, len(readings))
	out := make([]opsdomain.SensorReading, 0, len(readings))
	for _, r := range readings {
		if _, ok := seen[r.SensorID]; ok {
			continue
		}
		seen[r.SensorID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// worstMetric evaluates every configured metric the reading reports and
// returns the single most severe crossing. Earlier metrics win ties.
func worstMetric(metrics []rules.Metric, r opsdomain.SensorReading) (rules.Metric, rules.Bound, float64, bool) {
	var (
		bestMetric rules.Metric
		bestBound  rules.Bound
		bestValue  float64
		found      bool
	)
	for _, m := range metrics {
		v := readingValue(r, m.Name)
		if v == nil {
			continue
		}
		b, ok := m.Evaluate(*v)
		if !ok {
			continue
		}
		if !found || b.Severity.Rank() > bestBound.Severity.Rank() {
			bestMetric, bestBound, bestValue, found = m, b, *v, true
		}
	}
	return bestMetric, bestBound, bestValue, found
}

func readingValue(r opsdomain.SensorReading, metric string) *float64 {
	switch metric {
	case MetricMoisture:
		return r.MoisturePct
	case MetricEC:
		return r.ECmScm
	case MetricTemperature:
		return r.TemperatureC
	default:
		return nil
	}
}

// EquipmentMaintenance flags equipment that has gone too long without
// service.
type EquipmentMaintenance struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewEquipmentMaintenance(reader opsdomain.Reader, src rules.Source) *EquipmentMaintenance {
	return &EquipmentMaintenance{reader: reader, rules: src}
}

func (d *EquipmentMaintenance) Name() string { return NameEquipmentMaintenance }

func (d *EquipmentMaintenance) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentFarm
}

func (d *EquipmentMaintenance) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Farm.Equipment
	items, err := d.reader.Equipment(ctx)
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, eq := range items {
		elapsed := rules.ElapsedDays(eq.LastServicedAt, now)
		sev, ok := cfg.Breakpoints.Severity(elapsed)
		if !ok {
			continue
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentFarm,
			Kind:        alertdomain.KindEquipmentMaintenance,
			Severity:    sev,
			Title:       fmt.Sprintf("%s unserviced for %d days", eq.Name, elapsed),
			Description: fmt.Sprintf("%s was last serviced on %s.", eq.Name, eq.LastServicedAt.UTC().Format("2006-01-02")),
			SubjectType: alertdomain.SubjectEquipment,
			SubjectID:   eq.ID,
			Metadata: alertdomain.Metadata{
				Metric:         "elapsed_days",
				Unit:           "days",
				ElapsedDays:    alertdomain.Int(elapsed),
				Threshold:      alertdomain.Float(float64(cfg.Breakpoints.Threshold(sev))),
				Recommendation: cfg.Recommendation,
				Extras: map[string]any{
					"category": eq.Category,
				},
			},
		})
	}
	return drafts, nil
}

// SupplyShortage compares stock on hand with the minimum as a ratio.
type SupplyShortage struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewSupplyShortage(reader opsdomain.Reader, src rules.Source) *SupplyShortage {
	return &SupplyShortage{reader: reader, rules: src}
}

func (d *SupplyShortage) Name() string { return NameSupplyShortage }

func (d *SupplyShortage) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentFarm
}

func (d *SupplyShortage) Detect(ctx context.Context, _ time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Farm.Supply.Ratio
	items, err := d.reader.SupplyItems(ctx)
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, item := range items {
		// Without a minimum there is nothing to fall short of.
		if item.MinimumQuantity <= 0 {
			continue
		}
		ratio := item.QuantityOnHand / item.MinimumQuantity
		bound, ok := cfg.Evaluate(ratio)
		if !ok {
			continue
		}
		drafts = append(drafts, alertdomain.Draft{
			Deployment:  alertdomain.DeploymentFarm,
			Kind:        alertdomain.KindSupplyShortage,
			Severity:    bound.Severity,
			Title:       fmt.Sprintf("Low stock: %s (%s of %s %s)", item.Name, formatNumber(item.QuantityOnHand), formatNumber(item.MinimumQuantity), item.Unit),
			Description: fmt.Sprintf("%s is at %s%% of its minimum quantity.", item.Name, strconv.FormatFloat(ratio*100, 'f', 0, 64)),
			SubjectType: alertdomain.SubjectSupplyItem,
			SubjectID:   item.ID,
			Metadata: alertdomain.Metadata{
				Metric:         cfg.Name,
				Threshold:      alertdomain.Float(bound.Value),
				ObservedValue:  alertdomain.Float(ratio),
				Unit:           cfg.Unit,
				Recommendation: cfg.Recommendation,
				Extras: map[string]any{
					"comparator":       string(bound.Op),
					"quantity_on_hand": item.QuantityOnHand,
					"minimum_quantity": item.MinimumQuantity,
					"item_unit":        item.Unit,
				},
			},
		})
	}
	return drafts, nil
}

const excerptRunes = 160

// FieldLogKeywords scans recent field logs for condition phrases. Each entry
// yields one alert per matching vocabulary; duplicates are not merged.
type FieldLogKeywords struct {
	reader opsdomain.Reader
	rules  rules.Source
}

func NewFieldLogKeywords(reader opsdomain.Reader, src rules.Source) *FieldLogKeywords {
	return &FieldLogKeywords{reader: reader, rules: src}
}

func (d *FieldLogKeywords) Name() string { return NameFieldLogKeywords }

func (d *FieldLogKeywords) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentFarm
}

func (d *FieldLogKeywords) Detect(ctx context.Context, now time.Time) ([]alertdomain.Draft, error) {
	cfg := d.rules.Get().Farm.FieldLog
	logs, err := d.reader.FieldLogsSince(ctx, now.Add(-time.Duration(cfg.LookbackDays)*day), cfg.RowLimit)
	if err != nil {
		return nil, err
	}

	var drafts []alertdomain.Draft
	for _, entry := range logs {
		for _, vocab := range cfg.Vocabularies {
			phrase, ok := vocab.Match(entry.Body)
			if !ok {
				continue
			}
			drafts = append(drafts, alertdomain.Draft{
				Deployment:  alertdomain.DeploymentFarm,
				Kind:        vocab.Kind,
				Severity:    vocab.Severity,
				Title:       fmt.Sprintf("Field log mentions %q in zone %s", phrase, zoneOrUnknown(entry.Zone)),
				Description: excerpt(entry.Body),
				SubjectType: alertdomain.SubjectFieldLog,
				SubjectID:   entry.ID,
				Metadata: alertdomain.Metadata{
					Phrase: phrase,
					Extras: map[string]any{
						"zone":      entry.Zone,
						"author":    entry.Author,
						"logged_at": entry.LoggedAt.UTC().Format(time.RFC3339),
					},
				},
			})
		}
	}
	return drafts, nil
}

func excerpt(body string) string {
	if utf8.RuneCountInString(body) <= excerptRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:excerptRunes]) + "..."
}

func zoneOrUnknown(zone string) string {
	if zone == "" {
		return "unassigned"
	}
	return zone
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
