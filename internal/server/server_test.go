package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/smallbiznis/opsalert/internal/detection"
	"github.com/smallbiznis/opsalert/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAlertService struct {
	listReq   alertdomain.ListRequest
	list      []alertdomain.Response
	plan      *alertdomain.PlanResponse
	updateReq alertdomain.UpdateStatusRequest
	updateErr error
}

func (f *fakeAlertService) ListOpen(_ context.Context, req alertdomain.ListRequest) ([]alertdomain.Response, error) {
	f.listReq = req
	return f.list, nil
}

func (f *fakeAlertService) Plan(context.Context, alertdomain.PlanRequest) (*alertdomain.PlanResponse, error) {
	return f.plan, nil
}

func (f *fakeAlertService) UpdateStatus(_ context.Context, req alertdomain.UpdateStatusRequest) (*alertdomain.Response, error) {
	f.updateReq = req
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &alertdomain.Response{ID: req.ID, Status: req.Status}, nil
}

type fakeDetection struct {
	result   detection.Result
	runErr   error
	runs     int
	brief    []alertdomain.Draft
	briefErr error
}

func (f *fakeDetection) Run(context.Context) (detection.Result, error) {
	f.runs++
	return f.result, f.runErr
}

func (f *fakeDetection) Preview(context.Context) (detection.Result, error) {
	return f.result, nil
}

func (f *fakeDetection) LeaseBrief(context.Context) ([]alertdomain.Draft, error) {
	return f.brief, f.briefErr
}

func newTestServer(t *testing.T, svc *fakeAlertService, det *fakeDetection) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(ServerParams{
		Gin:       NewEngine(observability.Config{}, nil),
		Cfg:       config.Config{Environment: "test"},
		Log:       zap.NewNop(),
		AlertSvc:  svc,
		Detection: det,
	})
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestGenerateAlertsReturnsPersistedCount(t *testing.T) {
	det := &fakeDetection{result: detection.Result{PassID: "p-1", Detected: 3, Persisted: 2}}
	s := newTestServer(t, &fakeAlertService{}, det)

	rec := doRequest(s, http.MethodPost, "/api/alerts/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"generated":2}`, rec.Body.String())
	assert.Equal(t, 1, det.runs)
}

func TestGenerateAlertsFailure(t *testing.T) {
	det := &fakeDetection{runErr: fmt.Errorf("%w: %w", detection.ErrPersistFailed, errors.New("disk full"))}
	s := newTestServer(t, &fakeAlertService{}, det)

	rec := doRequest(s, http.MethodPost, "/api/alerts/generate", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate alerts","details":"persist_failed: disk full"}`, rec.Body.String())
}

func TestGenerateAlertsRejectsOtherMethods(t *testing.T) {
	det := &fakeDetection{}
	s := newTestServer(t, &fakeAlertService{}, det)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := doRequest(s, method, "/api/alerts/generate", nil)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String(), method)
	}
	assert.Zero(t, det.runs)
}

func TestListAlertsPassesLimit(t *testing.T) {
	svc := &fakeAlertService{list: []alertdomain.Response{{ID: "1", Status: "new"}}}
	s := newTestServer(t, svc, &fakeDetection{})

	rec := doRequest(s, http.MethodGet, "/api/alerts?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.listReq.Limit)

	var body struct {
		Data []alertdomain.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "1", body.Data[0].ID)
}

func TestListAlertsRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, &fakeAlertService{}, &fakeDetection{})

	for _, q := range []string{"abc", "0", "-3"} {
		rec := doRequest(s, http.MethodGet, "/api/alerts?limit="+q, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), "invalid_limit")
	}
}

func TestPlannerReturnsBuckets(t *testing.T) {
	svc := &fakeAlertService{plan: &alertdomain.PlanResponse{
		Urgent:          []alertdomain.Response{{ID: "1"}},
		ThisWeek:        []alertdomain.Response{},
		ThisMonth:       []alertdomain.Response{},
		NextThreeMonths: []alertdomain.Response{},
	}}
	s := newTestServer(t, svc, &fakeDetection{})

	rec := doRequest(s, http.MethodGet, "/api/alerts/planner", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data alertdomain.PlanResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Urgent, 1)
}

func TestUpdateAlertStatus(t *testing.T) {
	svc := &fakeAlertService{}
	s := newTestServer(t, svc, &fakeDetection{})

	rec := doRequest(s, http.MethodPatch, "/api/alerts/123/status", []byte(`{"status":"acknowledged"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123", svc.updateReq.ID)
	assert.Equal(t, "acknowledged", svc.updateReq.Status)
}

func TestUpdateAlertStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", alertdomain.ErrNotFound, http.StatusNotFound},
		{"invalid status", fmt.Errorf("%w: %q", alertdomain.ErrInvalidStatus, "new"), http.StatusBadRequest},
		{"invalid id", alertdomain.ErrInvalidID, http.StatusBadRequest},
		{"store down", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeAlertService{updateErr: tc.err}, &fakeDetection{})
			rec := doRequest(s, http.MethodPatch, "/api/alerts/123/status", []byte(`{"status":"resolved"}`))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestUpdateAlertStatusRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, &fakeAlertService{}, &fakeDetection{})
	rec := doRequest(s, http.MethodPatch, "/api/alerts/123/status", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaseBrief(t *testing.T) {
	end := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	det := &fakeDetection{brief: []alertdomain.Draft{{
		Deployment:  alertdomain.DeploymentProperty,
		Kind:        alertdomain.KindLeaseExpiration,
		Severity:    alertdomain.SeverityHigh,
		Title:       "Lease expiring in 12 days",
		SubjectType: alertdomain.SubjectLease,
		SubjectID:   "l-1",
		Metadata: alertdomain.Metadata{
			EndDate:   alertdomain.Time(end),
			DaysUntil: alertdomain.Int(12),
		},
	}}}
	s := newTestServer(t, &fakeAlertService{}, det)

	rec := doRequest(s, http.MethodGet, "/api/brief/leases", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []draftResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "l-1", body.Data[0].SubjectID)
	assert.Equal(t, "2025-03-13T00:00:00Z", body.Data[0].Metadata["end_date"])
	assert.EqualValues(t, 12, body.Data[0].Metadata["days_until"])
}

func TestLeaseBriefUnavailable(t *testing.T) {
	s := newTestServer(t, &fakeAlertService{}, &fakeDetection{briefErr: detection.ErrLeaseUnavailable})
	rec := doRequest(s, http.MethodGet, "/api/brief/leases", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBriefPreviewsWithoutFailures(t *testing.T) {
	s := newTestServer(t, &fakeAlertService{}, &fakeDetection{})
	rec := doRequest(s, http.MethodGet, "/api/brief", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"failed":0,"failures":[]}`, rec.Body.String())
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, &fakeAlertService{}, &fakeDetection{})

	rec := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(s, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(alertdomain.ErrInvalidStatus)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_status", code)

	typ, _ = classifyErrorForLog(detection.ErrPersistFailed)
	assert.Equal(t, "persistence_error", typ)

	typ, _ = classifyErrorForLog(alertdomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)
}
