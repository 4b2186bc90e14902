package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

const (
	MetaMetric         = "metric"
	MetaThreshold      = "threshold"
	MetaObservedValue  = "observed_value"
	MetaUnit           = "unit"
	MetaRecommendation = "recommendation"
	MetaEndDate        = "end_date"
	MetaDaysUntil      = "days_until"
	MetaElapsedDays    = "elapsed_days"
	MetaPhrase         = "phrase"
)

var reservedMetaKeys = map[string]struct{}{
	MetaMetric:         {},
	MetaThreshold:      {},
	MetaObservedValue:  {},
	MetaUnit:           {},
	MetaRecommendation: {},
	MetaEndDate:        {},
	MetaDaysUntil:      {},
	MetaElapsedDays:    {},
	MetaPhrase:         {},
}

// Metadata records the exact inputs that produced an alert. Reserved fields
// are typed; anything kind-specific goes into Extras as a primitive value.
type Metadata struct {
	Metric         string
	Threshold      *float64
	ObservedValue  *float64
	Unit           string
	Recommendation string
	EndDate        *time.Time
	DaysUntil      *int
	ElapsedDays    *int
	Phrase         string
	Extras         map[string]any
}

func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

// Time keeps the full instant so readers recompute the same day count the
// detector saw.
func Time(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func (m Metadata) Validate() error {
	for _, v := range []*float64{m.Threshold, m.ObservedValue} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: non-finite number", ErrInvalidMetadata)
		}
	}
	for key, value := range m.Extras {
		if _, reserved := reservedMetaKeys[key]; reserved {
			return fmt.Errorf("%w: extra %q shadows a reserved key", ErrInvalidMetadata, key)
		}
		switch v := value.(type) {
		case string, bool, int, int32, int64:
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: extra %q is not finite", ErrInvalidMetadata, key)
			}
		default:
			return fmt.Errorf("%w: extra %q has unsupported type %T", ErrInvalidMetadata, key, value)
		}
	}
	return nil
}

// JSONMap flattens the record for storage. Unset optional fields are omitted.
func (m Metadata) JSONMap() datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range m.Extras {
		out[k] = v
	}
	if m.Metric != "" {
		out[MetaMetric] = m.Metric
	}
	if m.Threshold != nil {
		out[MetaThreshold] = *m.Threshold
	}
	if m.ObservedValue != nil {
		out[MetaObservedValue] = *m.ObservedValue
	}
	if m.Unit != "" {
		out[MetaUnit] = m.Unit
	}
	if m.Recommendation != "" {
		out[MetaRecommendation] = m.Recommendation
	}
	if m.EndDate != nil {
		out[MetaEndDate] = m.EndDate.UTC().Format(time.RFC3339)
	}
	if m.DaysUntil != nil {
		out[MetaDaysUntil] = *m.DaysUntil
	}
	if m.ElapsedDays != nil {
		out[MetaElapsedDays] = *m.ElapsedDays
	}
	if m.Phrase != "" {
		out[MetaPhrase] = m.Phrase
	}
	return out
}

// MetadataFromJSONMap reverses JSONMap. Numbers decoded from JSON arrive as
// float64 or json.Number and are accepted either way.
func MetadataFromJSONMap(raw datatypes.JSONMap) Metadata {
	m := Metadata{}
	for key, value := range raw {
		switch key {
		case MetaMetric:
			m.Metric, _ = value.(string)
		case MetaThreshold:
			if f, ok := toFloat(value); ok {
				m.Threshold = &f
			}
		case MetaObservedValue:
			if f, ok := toFloat(value); ok {
				m.ObservedValue = &f
			}
		case MetaUnit:
			m.Unit, _ = value.(string)
		case MetaRecommendation:
			m.Recommendation, _ = value.(string)
		case MetaEndDate:
			if s, ok := value.(string); ok {
				m.EndDate = parseEndDate(s)
			}
		case MetaDaysUntil:
			if f, ok := toFloat(value); ok {
				m.DaysUntil = Int(int(f))
			}
		case MetaElapsedDays:
			if f, ok := toFloat(value); ok {
				m.ElapsedDays = Int(int(f))
			}
		case MetaPhrase:
			m.Phrase, _ = value.(string)
		default:
			if m.Extras == nil {
				m.Extras = map[string]any{}
			}
			m.Extras[key] = value
		}
	}
	return m
}

// parseEndDate also accepts bare dates written before end_date carried a time.
func parseEndDate(s string) *time.Time {
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return Time(t)
		}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
