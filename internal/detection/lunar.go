package detection

import (
	"context"
	"fmt"
	"math"
	"time"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
)

const synodicMonth = 29.530588853 * float64(24*time.Hour)

// referenceNewMoon is the new moon of 2000-01-06 18:14 UTC.
var referenceNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// moonNights is the 30-night Hawaiian lunar month, starting at the new moon.
var moonNights = [30]string{
	"Hilo", "Hoaka", "Kū Kahi", "Kū Lua", "Kū Kolu", "Kū Pau",
	"ʻOle Kū Kahi", "ʻOle Kū Lua", "ʻOle Kū Kolu", "ʻOle Pau",
	"Huna", "Mohalu", "Hua", "Akua", "Hoku", "Māhealani", "Kulu",
	"Lāʻau Kū Kahi", "Lāʻau Kū Lua", "Lāʻau Pau",
	"ʻOle Kū Kahi", "ʻOle Kū Lua", "ʻOle Pau",
	"Kāloa Kū Kahi", "Kāloa Kū Lua", "Kāloa Pau",
	"Kāne", "Lono", "Mauli", "Muku",
}

type MoonNight struct {
	Index int
	Name  string
	// Age is the fraction of the synodic month elapsed, in [0, 1).
	Age float64
}

// MoonNightAt places t within the Hawaiian lunar month.
func MoonNightAt(t time.Time) MoonNight {
	elapsed := float64(t.Sub(referenceNewMoon))
	age := math.Mod(elapsed, synodicMonth) / synodicMonth
	if age < 0 {
		age++
	}
	idx := int(age * float64(len(moonNights)))
	if idx >= len(moonNights) {
		idx = len(moonNights) - 1
	}
	return MoonNight{Index: idx, Name: moonNights[idx], Age: age}
}

// Advisory is the planting guidance traditionally tied to the night.
func (n MoonNight) Advisory() string {
	switch {
	case n.Index <= 1:
		return "New moon nights. Plant sparingly and let beds rest."
	case n.Index <= 5:
		return "Kū nights favor crops that grow upright such as kalo, kō and maiʻa."
	case n.Index <= 9, n.Index >= 20 && n.Index <= 22:
		return "ʻOle nights are unproductive for planting. Weed, repair and prepare soil."
	case n.Index == 10:
		return "Huna favors root crops. Plant ʻuala and other tubers."
	case n.Index <= 15:
		return "Full moon nights favor flowering and fruiting crops."
	case n.Index == 16:
		return "Kulu favors fruiting crops and harvest."
	case n.Index <= 19:
		return "Lāʻau nights favor trees and medicinal plants."
	case n.Index <= 25:
		return "Kāloa nights favor long-stemmed plants such as bamboo, kō and vines."
	case n.Index <= 27:
		return "Kāne and Lono are sacred nights. Observe them, then plant gourds and ʻuala."
	default:
		return "The moon is waning to dark. Harvest and prepare beds for the next month."
	}
}

// LunarNote emits one informational advisory per invocation while enabled.
type LunarNote struct {
	rules rules.Source
}

func NewLunarNote(src rules.Source) *LunarNote {
	return &LunarNote{rules: src}
}

func (d *LunarNote) Name() string { return NameLunarNote }

func (d *LunarNote) Deployment() alertdomain.Deployment {
	return alertdomain.DeploymentFarm
}

func (d *LunarNote) Detect(_ context.Context, now time.Time) ([]alertdomain.Draft, error) {
	if !d.rules.Get().Farm.Lunar.Enabled {
		return nil, nil
	}

	night := MoonNightAt(now)
	advisory := night.Advisory()
	return []alertdomain.Draft{{
		Deployment:  alertdomain.DeploymentFarm,
		Kind:        alertdomain.KindLunarNote,
		Severity:    alertdomain.SeverityLow,
		Title:       fmt.Sprintf("Moon night: %s", night.Name),
		Description: advisory,
		SubjectType: alertdomain.SubjectCalendar,
		SubjectID:   now.UTC().Format("2006-01-02"),
		Metadata: alertdomain.Metadata{
			Recommendation: advisory,
			Extras: map[string]any{
				"night_index": night.Index + 1,
				"night_name":  night.Name,
				"moon_age":    math.Round(night.Age*1000) / 1000,
			},
		},
	}}, nil
}
