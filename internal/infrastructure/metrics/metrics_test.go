package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveJob(t *testing.T) {
	before := testutil.ToFloat64(jobRuns.WithLabelValues("unit_job", ResultError))
	rowsBefore := testutil.ToFloat64(jobRows.WithLabelValues("unit_job"))

	ObserveJob("unit_job", 3, time.Second, nil)
	ObserveJob("unit_job", 0, time.Second, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(jobRuns.WithLabelValues("unit_job", ResultError)))
	assert.Equal(t, rowsBefore+3, testutil.ToFloat64(jobRows.WithLabelValues("unit_job")))
}

func TestLifecycleOp_ResultOverride(t *testing.T) {
	before := testutil.ToFloat64(lifecycleOps.WithLabelValues("revoke", "suppressed"))
	LifecycleOp("revoke", nil, "suppressed")
	assert.Equal(t, before+1, testutil.ToFloat64(lifecycleOps.WithLabelValues("revoke", "suppressed")))
}

func TestHandler_ExposesSeries(t *testing.T) {
	GatewayCall("create_invite", "ok")
	Notification("sent")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"channelgate_gateway_calls_total",
		"channelgate_notifications_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
