package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goToken.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goToken.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func emptySnapshot() goToken.MetricsSnapshot {
	return goToken.MetricsSnapshot{
		Counters:   map[goToken.MetricID]uint64{},
		Histograms: map[goToken.MetricID][]uint64{},
	}
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: emptySnapshot()})
	assert.Equal(t, 0, testutil.CollectAndCount(exp))
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goToken.MetricsSnapshot{
			Counters: map[goToken.MetricID]uint64{
				goToken.MetricIssueSuccess:     7,
				goToken.MetricStoreUnavailable: 2,
			},
			Histograms: map[goToken.MetricID][]uint64{
				goToken.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	assert.Equal(t, want, testutil.CollectAndCount(exp))

	expected := `
# HELP gotoken_issue_success_total Token pairs issued.
# TYPE gotoken_issue_success_total counter
gotoken_issue_success_total 7
# HELP gotoken_store_unavailable_total Operations that failed because the session store was unreachable.
# TYPE gotoken_store_unavailable_total counter
gotoken_store_unavailable_total 2
# HELP gotoken_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE gotoken_audit_dropped_total counter
gotoken_audit_dropped_total 2
# HELP gotoken_verify_latency_seconds Verify latency histogram.
# TYPE gotoken_verify_latency_seconds histogram
gotoken_verify_latency_seconds_bucket{le="0.001"} 1
gotoken_verify_latency_seconds_bucket{le="0.002"} 3
gotoken_verify_latency_seconds_bucket{le="0.005"} 6
gotoken_verify_latency_seconds_bucket{le="0.01"} 10
gotoken_verify_latency_seconds_bucket{le="0.025"} 15
gotoken_verify_latency_seconds_bucket{le="0.05"} 21
gotoken_verify_latency_seconds_bucket{le="0.25"} 28
gotoken_verify_latency_seconds_bucket{le="+Inf"} 36
gotoken_verify_latency_seconds_sum 0
gotoken_verify_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"gotoken_issue_success_total",
		"gotoken_store_unavailable_total",
		"gotoken_audit_dropped_total",
		"gotoken_verify_latency_seconds",
	)
	require.NoError(t, err)
}

func TestCollectorRegistersCleanly(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: emptySnapshot()})
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(exp))
}

func TestHandlerServesTextFormat(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goToken.MetricsSnapshot{
			Counters: map[goToken.MetricID]uint64{goToken.MetricLoginSuccess: 3},
		},
	})

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gotoken_login_success_total 3")
}
