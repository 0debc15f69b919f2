package discord

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientGatewayMetricsFollowState(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewClient(nil, &fakeDispatcher{}, zap.NewNop())
	require.NoError(t, c.RegisterMetrics(reg))

	gauge := func() float64 {
		families, err := reg.Gather()
		require.NoError(t, err)
		for _, f := range families {
			if f.GetName() == "bot_gateway_connected" {
				return f.GetMetric()[0].GetGauge().GetValue()
			}
		}
		t.Fatal("bot_gateway_connected not registered")
		return 0
	}

	c.setState(StateConnecting)
	assert.Zero(t, gauge())

	c.setState(StateConnected)
	assert.Equal(t, 1.0, gauge())

	c.setState(StateDisconnected)
	assert.Zero(t, gauge())

	c.setState(StateResumed)
	assert.Equal(t, 1.0, gauge())

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP bot_gateway_disconnects_total Gateway connections lost since start.
# TYPE bot_gateway_disconnects_total counter
bot_gateway_disconnects_total 1
`), "bot_gateway_disconnects_total"))
}

func TestClientGatewayMetricsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewClient(nil, &fakeDispatcher{}, zap.NewNop())
	require.NoError(t, c.RegisterMetrics(reg))
	assert.Error(t, c.RegisterMetrics(reg))
}
