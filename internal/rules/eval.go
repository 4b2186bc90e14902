package rules

import (
	"errors"
	"math"
	"strings"
	"time"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
)

const day = 24 * time.Hour

// DaysUntil returns ceil((event - now) / 1 day). Events already past yield
// zero or a negative count.
func DaysUntil(event, now time.Time) int {
	return int(math.Ceil(float64(event.Sub(now)) / float64(day)))
}

// ElapsedDays returns whole days since ref, never negative.
func ElapsedDays(ref, now time.Time) int {
	if now.Before(ref) {
		return 0
	}
	return int(now.Sub(ref) / day)
}

// DayBreakpoints maps a forward-looking day count to severity.
type DayBreakpoints struct {
	Critical int `mapstructure:"critical"`
	High     int `mapstructure:"high"`
	Medium   int `mapstructure:"medium"`
}

func (b DayBreakpoints) Expiry(daysUntil int) alertdomain.Severity {
	switch {
	case daysUntil <= b.Critical:
		return alertdomain.SeverityCritical
	case daysUntil <= b.High:
		return alertdomain.SeverityHigh
	case daysUntil <= b.Medium:
		return alertdomain.SeverityMedium
	default:
		return alertdomain.SeverityLow
	}
}

func (b DayBreakpoints) validate() error {
	if b.Critical < 0 || b.Critical > b.High || b.High > b.Medium {
		return errors.New("expected 0 <= critical <= high <= medium")
	}
	return nil
}

// StalenessBreakpoints are minimum elapsed days for each severity.
type StalenessBreakpoints struct {
	Low      int `mapstructure:"low"`
	Medium   int `mapstructure:"medium"`
	High     int `mapstructure:"high"`
	Critical int `mapstructure:"critical"`
}

// Severity reports false when elapsed is below the low breakpoint.
func (b StalenessBreakpoints) Severity(elapsedDays int) (alertdomain.Severity, bool) {
	switch {
	case elapsedDays >= b.Critical:
		return alertdomain.SeverityCritical, true
	case elapsedDays >= b.High:
		return alertdomain.SeverityHigh, true
	case elapsedDays >= b.Medium:
		return alertdomain.SeverityMedium, true
	case elapsedDays >= b.Low:
		return alertdomain.SeverityLow, true
	default:
		return "", false
	}
}

func (b StalenessBreakpoints) validate() error {
	if b.Low < 0 || b.Low > b.Medium || b.Medium > b.High || b.High > b.Critical {
		return errors.New("expected 0 <= low <= medium <= high <= critical")
	}
	return nil
}

type Op string

const (
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpGt  Op = "gt"
	OpGte Op = "gte"
)

func (o Op) Symbol() string {
	switch o {
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return string(o)
	}
}

type Bound struct {
	Severity alertdomain.Severity `mapstructure:"severity"`
	Op       Op                   `mapstructure:"op"`
	Value    float64              `mapstructure:"value"`
}

func (b Bound) Crossed(v float64) bool {
	switch b.Op {
	case OpLt:
		return v < b.Value
	case OpLte:
		return v <= b.Value
	case OpGt:
		return v > b.Value
	case OpGte:
		return v >= b.Value
	default:
		return false
	}
}

type Metric struct {
	Name           string  `mapstructure:"name"`
	Unit           string  `mapstructure:"unit"`
	Recommendation string  `mapstructure:"recommendation"`
	Bounds         []Bound `mapstructure:"bounds"`
}

// Evaluate returns the single most severe bound v crosses. Among bounds of
// equal severity the first listed wins.
func (m Metric) Evaluate(v float64) (Bound, bool) {
	var (
		best  Bound
		found bool
	)
	for _, b := range m.Bounds {
		if !b.Crossed(v) {
			continue
		}
		if !found || b.Severity.Rank() > best.Severity.Rank() {
			best, found = b, true
		}
	}
	return best, found
}

func (m Metric) validate() error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	if len(m.Bounds) == 0 {
		return errors.New("bounds cannot be empty")
	}
	for _, b := range m.Bounds {
		if !b.Severity.Valid() {
			return errors.New("bound severity " + string(b.Severity) + " is not valid")
		}
		switch b.Op {
		case OpLt, OpLte, OpGt, OpGte:
		default:
			return errors.New("bound op " + string(b.Op) + " is not valid")
		}
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return errors.New("bound value must be finite")
		}
	}
	return nil
}

// Vocabulary is the phrase list that triggers one alert kind.
type Vocabulary struct {
	Kind     alertdomain.Kind     `mapstructure:"kind"`
	Severity alertdomain.Severity `mapstructure:"severity"`
	Phrases  []string             `mapstructure:"phrases"`
}

// Match returns the first phrase found in text, compared case-insensitively.
func (v Vocabulary) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range v.Phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

func (v Vocabulary) validate() error {
	if !v.Kind.Valid() {
		return errors.New("kind is not valid")
	}
	if !v.Severity.Valid() {
		return errors.New("severity is not valid")
	}
	if len(v.Phrases) == 0 {
		return errors.New("phrases cannot be empty")
	}
	return nil
}

// Threshold returns the breakpoint that yields sev.
func (b StalenessBreakpoints) Threshold(sev alertdomain.Severity) int {
	switch sev {
	case alertdomain.SeverityCritical:
		return b.Critical
	case alertdomain.SeverityHigh:
		return b.High
	case alertdomain.SeverityMedium:
		return b.Medium
	default:
		return b.Low
	}
}
