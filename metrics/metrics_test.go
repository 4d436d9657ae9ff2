package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorostang/secret-upgradable-nfts/logger"
)

func TestPromIndicators(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromIndicators(reg)

	p.IncrementProcessedTxsTotal("execute", "success")
	p.IncrementProcessedTxsTotal("execute", "success")
	p.IncrementProcessedTxsTotal("upload", "error")
	p.ObserveGasUsed(150_000)
	p.ObserveBroadcastLatencyMs(12)
	p.ObserveConfirmationLatencyMs(900)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.processedTxsTotal.WithLabelValues("execute", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.processedTxsTotal.WithLabelValues("upload", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.gasUsed))
}

func TestObserveCase(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromIndicators(reg)

	p.ObserveCase("test_mint", "passed", 0.5)
	p.ObserveCase("test_query_metadata", "failed", 1.5)
	p.ObserveCase("test_set_metadata", "passed", 0.1)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.casesTotal.WithLabelValues("passed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.casesTotal.WithLabelValues("failed")))
	assert.Equal(t, 3, testutil.CollectAndCount(p.caseDuration))
}

func TestServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	reg := prometheus.NewRegistry()
	NewPromIndicators(reg).ObserveCase("test_mint", "passed", 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := NewServer(addr, logger.NewMockLogger()).Start(ctx, reg)

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		body = string(b)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, body, "harness_suite_cases_total")

	cancel()
	select {
	case err, ok := <-errChan:
		require.False(t, ok, "unexpected server error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after shutdown")
	}
}

func TestServerListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	errChan := NewServer(l.Addr().String(), logger.NewMockLogger()).Start(context.Background(), prometheus.NewRegistry())

	select {
	case err := <-errChan:
		assert.ErrorContains(t, err, "metrics server failed")
	case <-time.After(5 * time.Second):
		t.Fatal("no error for a busy address")
	}
	select {
	case _, ok := <-errChan:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after a failed listen")
	}
}
