package planner

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func alertWith(id int64, sev alertdomain.Severity, endDate *time.Time) alertdomain.Alert {
	meta := alertdomain.Metadata{}
	if endDate != nil {
		meta.EndDate = alertdomain.Time(*endDate)
	}
	return alertdomain.Alert{
		ID:       snowflake.ID(id),
		Kind:     alertdomain.KindLeaseExpiration,
		Severity: sev,
		Metadata: meta.JSONMap(),
	}
}

func TestEventSevenDaysOutIsUrgent(t *testing.T) {
	end := now.AddDate(0, 0, 7)
	a := alertWith(1, alertdomain.SeverityCritical, &end)

	buckets := Classify([]alertdomain.Alert{a}, now)
	require.Len(t, buckets.Urgent, 1)
	assert.Equal(t, alertdomain.SeverityCritical, buckets.Urgent[0].Severity)
}

func TestEventFifteenDaysOutIsThisWeekRegardlessOfSeverity(t *testing.T) {
	end := now.AddDate(0, 0, 15)

	assert.Equal(t, BucketThisWeek, BucketOf(alertWith(1, alertdomain.SeverityLow, &end), now))
	assert.Equal(t, BucketThisWeek, BucketOf(alertWith(2, alertdomain.SeverityMedium, &end), now))
}

func TestLateEndTimeAgreesWithDetectorDayCount(t *testing.T) {
	at := time.Date(2026, 10, 16, 1, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 15, 23, 0, 0, 0, time.UTC)
	days := rules.DaysUntil(end, at)
	require.Equal(t, 31, days)

	meta := alertdomain.Metadata{EndDate: alertdomain.Time(end), DaysUntil: alertdomain.Int(days)}

	// stored and read back the way the alerts table does
	raw, err := json.Marshal(meta.JSONMap())
	require.NoError(t, err)
	var stored datatypes.JSONMap
	require.NoError(t, json.Unmarshal(raw, &stored))

	a := alertdomain.Alert{ID: 1, Severity: alertdomain.SeverityLow, Metadata: stored}
	assert.Equal(t, BucketThisMonth, BucketOf(a, at))
}

func TestBucketOfRules(t *testing.T) {
	d := func(days int) *time.Time {
		v := now.AddDate(0, 0, days)
		return &v
	}

	cases := []struct {
		name string
		sev  alertdomain.Severity
		end  *time.Time
		want Bucket
	}{
		{"high without date", alertdomain.SeverityHigh, nil, BucketUrgent},
		{"low due in three days", alertdomain.SeverityLow, d(3), BucketUrgent},
		{"overdue low", alertdomain.SeverityLow, d(-2), BucketUrgent},
		{"low due in eight days", alertdomain.SeverityLow, d(8), BucketThisWeek},
		{"low due in thirty days", alertdomain.SeverityLow, d(30), BucketThisWeek},
		{"medium without date", alertdomain.SeverityMedium, nil, BucketThisWeek},
		{"medium due in sixty days", alertdomain.SeverityMedium, d(60), BucketThisWeek},
		{"low due in thirty one days", alertdomain.SeverityLow, d(31), BucketThisMonth},
		{"low due in ninety days", alertdomain.SeverityLow, d(90), BucketThisMonth},
		{"low due in ninety one days", alertdomain.SeverityLow, d(91), BucketNextThreeMonths},
		{"low without date", alertdomain.SeverityLow, nil, BucketNextThreeMonths},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BucketOf(alertWith(1, tc.sev, tc.end), now))
		})
	}
}

func TestClassifyIsADisjointPartitionPreservingOrder(t *testing.T) {
	sevs := []alertdomain.Severity{
		alertdomain.SeverityLow,
		alertdomain.SeverityMedium,
		alertdomain.SeverityHigh,
		alertdomain.SeverityCritical,
	}

	var input []alertdomain.Alert
	var id int64
	for _, sev := range sevs {
		input = append(input, alertWith(id, sev, nil))
		id++
		for days := -3; days <= 120; days += 9 {
			end := now.AddDate(0, 0, days)
			input = append(input, alertWith(id, sev, &end))
			id++
		}
	}

	buckets := Classify(input, now)
	require.Equal(t, len(input), buckets.Len())

	seen := map[snowflake.ID]int{}
	for _, group := range [][]alertdomain.Alert{buckets.Urgent, buckets.ThisWeek, buckets.ThisMonth, buckets.NextThreeMonths} {
		for i, a := range group {
			seen[a.ID]++
			if i > 0 {
				assert.Less(t, group[i-1].ID, a.ID)
			}
		}
	}
	assert.Len(t, seen, len(input))
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}
