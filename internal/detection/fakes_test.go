package detection

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	opsdomain "github.com/smallbiznis/opsalert/internal/operations/domain"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

var (
	testNow     = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	errReadDown = errors.New("connection refused")
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// fakeReader serves canned rows. A non-nil entry in errs fails that read.
type fakeReader struct {
	leases     []opsdomain.Lease
	expenses   []opsdomain.Expense
	workOrders []opsdomain.WorkOrder
	incidents  []opsdomain.Incident
	readings   []opsdomain.SensorReading
	equipment  []opsdomain.Equipment
	supplies   []opsdomain.SupplyItem
	fieldLogs  []opsdomain.FieldLog
	errs       map[string]error
}

func (f *fakeReader) fail(method string) error {
	if f.errs == nil {
		return nil
	}
	return f.errs[method]
}

func (f *fakeReader) ActiveLeasesEndingBetween(_ context.Context, from, to time.Time) ([]opsdomain.Lease, error) {
	if err := f.fail("leases"); err != nil {
		return nil, err
	}
	var out []opsdomain.Lease
	for _, l := range f.leases {
		if l.Status == opsdomain.LeaseStatusActive && !l.EndDate.Before(from) && !l.EndDate.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeReader) ExpensesSince(context.Context, time.Time) ([]opsdomain.Expense, error) {
	return f.expenses, f.fail("expenses")
}

func (f *fakeReader) OpenWorkOrders(context.Context) ([]opsdomain.WorkOrder, error) {
	return f.workOrders, f.fail("work_orders")
}

func (f *fakeReader) UnresolvedIncidentsSince(context.Context, time.Time) ([]opsdomain.Incident, error) {
	return f.incidents, f.fail("incidents")
}

func (f *fakeReader) SensorReadingsSince(context.Context, time.Time, int) ([]opsdomain.SensorReading, error) {
	return f.readings, f.fail("readings")
}

func (f *fakeReader) Equipment(context.Context) ([]opsdomain.Equipment, error) {
	return f.equipment, f.fail("equipment")
}

func (f *fakeReader) SupplyItems(context.Context) ([]opsdomain.SupplyItem, error) {
	return f.supplies, f.fail("supplies")
}

func (f *fakeReader) FieldLogsSince(context.Context, time.Time, int) ([]opsdomain.FieldLog, error) {
	return f.fieldLogs, f.fail("field_logs")
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) BatchInsert(ctx context.Context, db *gorm.DB, alerts []*alertdomain.Alert) error {
	args := m.Called(alerts)
	return args.Error(0)
}

func (m *mockRepo) ListByStatus(ctx context.Context, db *gorm.DB, statuses []alertdomain.Status, limit int) ([]alertdomain.Alert, error) {
	args := m.Called(statuses, limit)
	items, _ := args.Get(0).([]alertdomain.Alert)
	return items, args.Error(1)
}

func (m *mockRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*alertdomain.Alert, error) {
	args := m.Called(id)
	item, _ := args.Get(0).(*alertdomain.Alert)
	return item, args.Error(1)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status alertdomain.Status, updatedAt time.Time) error {
	args := m.Called(id, status, updatedAt)
	return args.Error(0)
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) PostMessage(_ context.Context, _ string, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

type panickingDetector struct{}

func (panickingDetector) Name() string { return "broken" }

func (panickingDetector) Deployment() alertdomain.Deployment { return alertdomain.DeploymentFarm }

func (panickingDetector) Detect(context.Context, time.Time) ([]alertdomain.Draft, error) {
	panic("nil map")
}

type staticDetector struct {
	name   string
	drafts []alertdomain.Draft
}

func (d staticDetector) Name() string { return d.name }

func (d staticDetector) Deployment() alertdomain.Deployment { return alertdomain.DeploymentProperty }

func (d staticDetector) Detect(context.Context, time.Time) ([]alertdomain.Draft, error) {
	return d.drafts, nil
}
