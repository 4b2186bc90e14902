package planner

import (
	"time"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/rules"
)

type Bucket string

const (
	BucketUrgent          Bucket = "urgent"
	BucketThisWeek        Bucket = "this_week"
	BucketThisMonth       Bucket = "this_month"
	BucketNextThreeMonths Bucket = "next_three_months"
)

type Buckets struct {
	Urgent          []alertdomain.Alert
	ThisWeek        []alertdomain.Alert
	ThisMonth       []alertdomain.Alert
	NextThreeMonths []alertdomain.Alert
}

// BucketOf places one alert. Rules are checked in order and the first match
// wins.
func BucketOf(alert alertdomain.Alert, now time.Time) Bucket {
	meta := alertdomain.MetadataFromJSONMap(alert.Metadata)

	days, hasDate := 0, meta.EndDate != nil
	if hasDate {
		days = rules.DaysUntil(*meta.EndDate, now)
	}

	switch {
	case alert.Severity == alertdomain.SeverityCritical || alert.Severity == alertdomain.SeverityHigh:
		return BucketUrgent
	case hasDate && days <= 7:
		return BucketUrgent
	case hasDate && days >= 8 && days <= 30:
		return BucketThisWeek
	case alert.Severity == alertdomain.SeverityMedium:
		return BucketThisWeek
	case hasDate && days >= 31 && days <= 90:
		return BucketThisMonth
	default:
		return BucketNextThreeMonths
	}
}

// Classify partitions alerts into four disjoint buckets, keeping input order
// within each.
func Classify(alerts []alertdomain.Alert, now time.Time) Buckets {
	var out Buckets
	for _, a := range alerts {
		switch BucketOf(a, now) {
		case BucketUrgent:
			out.Urgent = append(out.Urgent, a)
		case BucketThisWeek:
			out.ThisWeek = append(out.ThisWeek, a)
		case BucketThisMonth:
			out.ThisMonth = append(out.ThisMonth, a)
		default:
			out.NextThreeMonths = append(out.NextThreeMonths, a)
		}
	}
	return out
}

func (b Buckets) Len() int {
	return len(b.Urgent) + len(b.ThisWeek) + len(b.ThisMonth) + len(b.NextThreeMonths)
}
