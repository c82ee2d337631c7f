package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-ambient"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type failingBackend struct{}

func (failingBackend) Get(string) (string, bool, error) { return "", false, nil }
func (failingBackend) Set(string, string) error       { return errors.New("quota") }

func TestPrometheusRecorderCountsBindingActivity(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	b := ambient.NewBinding("theme", ambient.Literal("light"), failingBackend{}, ambient.WithRecorder(rec))
	b.Set("dark")
	b.Set("blue")

	require.Equal(t, 1.0, testutil.ToFloat64(rec.reads.WithLabelValues("theme", ambient.ReadInitial)))
	require.Equal(t, 2.0, testutil.ToFloat64(rec.writes.WithLabelValues("theme", "failed")))
	require.Equal(t, 0.0, testutil.ToFloat64(rec.writes.WithLabelValues("theme", "success")))
}

func TestPrometheusRecorderTracksActiveSubscriptions(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	target := ambient.NewTarget()

	first, err := ambient.Subscribe(target, "scroll", func(ambient.Event) {}, ambient.WithSubscriptionRecorder(rec))
	require.NoError(t, err)
	second, err := ambient.Subscribe(target, "scroll", func(ambient.Event) {}, ambient.WithSubscriptionRecorder(rec))
	require.NoError(t, err)
	require.Equal(t, 2.0, testutil.ToFloat64(rec.subscriptionsActive.WithLabelValues("scroll")))

	first()
	first()
	second()
	require.Equal(t, 0.0, testutil.ToFloat64(rec.subscriptionsActive.WithLabelValues("scroll")))
	require.Equal(t, 2.0, testutil.ToFloat64(rec.subscriptions.WithLabelValues("scroll", "detached")))
}

func TestHTTPHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.ObserveRead("k", ambient.ReadDecoded)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "ambient_binding_reads_total")
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	rec.ObserveRead("k", ambient.ReadDecoded)
	rec.ObserveWrite("k", 0, nil)
	rec.SubscriptionAttached("e")
	rec.SubscriptionDetached("e")
}
