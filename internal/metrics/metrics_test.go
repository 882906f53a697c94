package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func TestMissionsCompletedTotal(t *testing.T) {
	MissionsCompletedTotal.Reset()

	MissionsCompletedTotal.WithLabelValues("daily").Inc()
	MissionsCompletedTotal.WithLabelValues("daily").Inc()
	MissionsCompletedTotal.WithLabelValues("weekly").Inc()

	daily, err := MissionsCompletedTotal.GetMetricWithLabelValues("daily")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if got := counterValue(t, daily); got != 2.0 {
		t.Errorf("daily completions = %f, want 2", got)
	}
}

func TestVotesCastTotal(t *testing.T) {
	VotesCastTotal.Reset()

	for _, option := range []string{"for", "for", "against", "abstain"} {
		VotesCastTotal.WithLabelValues(option).Inc()
	}

	forVotes, err := VotesCastTotal.GetMetricWithLabelValues("for")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if got := counterValue(t, forVotes); got != 2.0 {
		t.Errorf("for votes = %f, want 2", got)
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	HTTPRequestsTotal.Reset()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/ping", nil))

	counter, err := HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/v1/ping", "2xx")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if got := counterValue(t, counter); got != 1.0 {
		t.Errorf("request count = %f, want 1", got)
	}
}

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{102, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
	}
	for _, tc := range tests {
		if got := statusBucket(tc.code); got != tc.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tc.code, got, tc.want)
		}
	}
}
