package metrics

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-wormhole/config"
	"github.com/dep2p/go-wormhole/internal/core/directory"
)

func TestMetrics_Counters(t *testing.T) {
	m, err := New("wormhole", nil)
	require.NoError(t, err)

	m.DatagramReceived()
	m.DatagramReceived()
	m.DatagramDropped("malformed")
	m.CommandProcessed("register")
	m.CommandProcessed("lookup")
	m.CommandProcessed("lookup")
	m.CommandFailed("lookup")
	m.EndpointRegistered()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("malformed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registered))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("wormhole", reg)
	require.NoError(t, err)

	_, err = New("wormhole", reg)
	assert.Error(t, err)
}

func TestMetrics_Gauges(t *testing.T) {
	m, err := New("wh", nil)
	require.NoError(t, err)

	d := directory.New(directory.Config{})
	require.NoError(t, m.WatchDirectory(d))
	depth := 3
	require.NoError(t, m.WatchQueue(func() int { return depth }))

	_, _ = d.Register(directory.NewEndpoint("a", "1", netip.MustParseAddrPort("1.1.1.1:1")))
	_, _ = d.Register(directory.NewEndpoint("a", "2", netip.MustParseAddrPort("1.1.1.1:1")))

	expected := `
# HELP wh_directory_endpoints Endpoints held by the directory.
# TYPE wh_directory_endpoints gauge
wh_directory_endpoints 2
# HELP wh_directory_names Service names with at least one endpoint.
# TYPE wh_directory_names gauge
wh_directory_names 1
# HELP wh_queue_depth Commands waiting for a worker.
# TYPE wh_queue_depth gauge
wh_queue_depth 3
`
	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"wh_directory_endpoints", "wh_directory_names", "wh_queue_depth")
	assert.NoError(t, err)
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New("wormhole", nil)
	require.NoError(t, err)
	m.DatagramDropped("rate_limited")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `wormhole_datagrams_dropped_total{reason="rate_limited"} 1`)
}

func TestModule_HTTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := config.NewConfig()
	cfg.Metrics.ListenAddr = addr

	var m *Metrics
	app := fxtest.New(t,
		fx.Supply(cfg),
		directory.Module,
		Module,
		fx.Populate(&m),
	)
	app.RequireStart()
	defer app.RequireStop()

	m.DatagramReceived()
	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(body), "wormhole_datagrams_received_total 1")
	assert.Contains(t, string(body), "wormhole_directory_names 0")
}
