package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	"github.com/smallbiznis/rentflow/internal/lock"
	"github.com/smallbiznis/rentflow/internal/observability"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"github.com/smallbiznis/rentflow/internal/scheduler"
	subscriptiondomain "github.com/smallbiznis/rentflow/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLeaseService struct {
	result leasedomain.MarkSignedResult
	err    error
	got    leasedomain.MarkSignedRequest
}

func (f *fakeLeaseService) MarkSigned(_ context.Context, req leasedomain.MarkSignedRequest) (leasedomain.MarkSignedResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeBilling struct{ generated int }

func (f *fakeBilling) GenerateMonthly(context.Context) (billingdomain.GenerateResult, error) {
	f.generated++
	return billingdomain.GenerateResult{Created: 1}, nil
}

func (f *fakeBilling) ApplyLateFees(context.Context) (billingdomain.LateFeeResult, error) {
	return billingdomain.LateFeeResult{}, nil
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) DowngradeExpired(context.Context) (subscriptiondomain.DowngradeResult, error) {
	return subscriptiondomain.DowngradeResult{}, nil
}

type testServer struct {
	srv     *Server
	lease   *fakeLeaseService
	billing *fakeBilling
	locker  *lock.MemoryLocker
}

func newTestServer(t *testing.T, cronSecret string) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ts := testServer{
		lease:   &fakeLeaseService{},
		billing: &fakeBilling{},
		locker:  lock.NewMemoryLocker(),
	}
	sched, err := scheduler.New(scheduler.Params{
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clock.NewFakeClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
		Locker:          ts.locker,
		BillingSvc:      ts.billing,
		SubscriptionSvc: fakeSubscriptions{},
	})
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, obsmetrics.NewHTTPMetrics(obsmetrics.Config{}))
	ts.srv = NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{CronSecret: cronSecret},
		Log:       zap.NewNop(),
		LeaseSvc:  ts.lease,
		Scheduler: sched,
	})
	return ts
}

func (ts testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestMarkLeaseSignedReturnsSignatures(t *testing.T) {
	ts := newTestServer(t, "")
	signedAt := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	ts.lease.result = leasedomain.MarkSignedResult{
		Status:  leasedomain.LeaseStatusActive,
		Message: "Lease is now active. All parties have signed.",
		Signatures: []leasedomain.Signature{
			{Role: leasedomain.SignerRoleLandlord, Status: leasedomain.SignatureStatusSigned, SignedAt: &signedAt},
			{Role: leasedomain.SignerRoleTenant, Status: leasedomain.SignatureStatusSigned, SignedAt: &signedAt},
		},
	}

	rec := ts.do(t, http.MethodPost, "/api/leases/mark-signed",
		map[string]string{"envelopeId": "env-1", "userType": "tenant"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "Lease is now active. All parties have signed.", body["message"])
	signatures, ok := body["signatures"].([]any)
	require.True(t, ok)
	require.Len(t, signatures, 2)
	first := signatures[0].(map[string]any)
	assert.Equal(t, "landlord", first["role"])
	assert.Equal(t, "signed", first["status"])
	assert.Equal(t, "2024-03-01T10:00:00Z", first["signed_at"])

	assert.Equal(t, leasedomain.MarkSignedRequest{EnvelopeID: "env-1", UserType: "tenant"}, ts.lease.got)
}

func TestMarkLeaseSignedErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		error  string
	}{
		{"missing fields", leasedomain.ErrMissingFields, http.StatusBadRequest, "Missing required fields"},
		{"invalid role", leasedomain.ErrInvalidRole, http.StatusBadRequest, "Invalid userType"},
		{"unknown envelope", leasedomain.ErrLeaseNotFound, http.StatusNotFound, "Lease not found"},
		{"missing signature row", leasedomain.ErrSignatureNotFound, http.StatusNotFound, "Signature not found"},
		{"cancelled lease", leasedomain.ErrInvalidTransition, http.StatusConflict, "Lease cannot be signed in its current status"},
		{"database failure", assert.AnError, http.StatusInternalServerError, "Failed to mark lease as signed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, "")
			ts.lease.err = tc.err

			rec := ts.do(t, http.MethodPost, "/api/leases/mark-signed",
				map[string]string{"envelopeId": "env-1", "userType": "tenant"}, nil)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.error, decode(t, rec)["error"])
		})
	}
}

func TestMarkLeaseSignedFailureIncludesDetails(t *testing.T) {
	ts := newTestServer(t, "")
	ts.lease.err = assert.AnError

	rec := ts.do(t, http.MethodPost, "/api/leases/mark-signed",
		map[string]string{"envelopeId": "env-1", "userType": "landlord"}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, assert.AnError.Error(), decode(t, rec)["details"])
}

func TestMarkLeaseSignedMalformedBody(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(t, http.MethodPost, "/api/leases/mark-signed", "{not json", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode(t, rec)["error"])
}

func TestRunJobRequiresCronSecret(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	rec := ts.do(t, http.MethodPost, "/internal/jobs/generate_billing/run", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/internal/jobs/generate_billing/run", nil,
		map[string]string{HeaderCronSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ts.billing.generated)
}

func TestRunJobRunsNamedJob(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	rec := ts.do(t, http.MethodPost, "/internal/jobs/generate_billing/run", nil,
		map[string]string{HeaderCronSecret: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.billing.generated)

	body := decode(t, rec)
	assert.Equal(t, scheduler.JobGenerateBilling, body["job"])
	assert.Equal(t, float64(1), body["processed"])
	assert.NotEmpty(t, body["run_id"])
}

func TestRunJobUnknownAndLocked(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	headers := map[string]string{HeaderCronSecret: "s3cret"}

	rec := ts.do(t, http.MethodPost, "/internal/jobs/reindex/run", nil, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, ok, err := ts.locker.TryLock(context.Background(), "rentflow:scheduler:job:generate_billing", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	rec = ts.do(t, http.MethodPost, "/internal/jobs/generate_billing/run", nil, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, ts.billing.generated)
}

func TestInternalRoutesDisabledWithoutSecret(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(t, http.MethodPost, "/internal/jobs/generate_billing/run", nil,
		map[string]string{HeaderCronSecret: ""})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, ts.billing.generated)
}

func TestListJobs(t *testing.T) {
	ts := newTestServer(t, "s3cret")
	rec := ts.do(t, http.MethodGet, "/internal/jobs", nil, map[string]string{HeaderCronSecret: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t,
		[]any{scheduler.JobGenerateBilling, scheduler.JobAdjustLateFees, scheduler.JobDowngradeSubscriptions},
		decode(t, rec)["jobs"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}
