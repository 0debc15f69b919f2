package discord

import (
	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	connected   prometheus.Gauge
	disconnects prometheus.Counter
}

// RegisterMetrics exports the gateway connection state on reg and keeps it
// current through a state callback.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	m := &gatewayMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bot",
			Subsystem: "gateway",
			Name:      "connected",
			Help:      "1 while the gateway session is connected or resumed.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bot",
			Subsystem: "gateway",
			Name:      "disconnects_total",
			Help:      "Gateway connections lost since start.",
		}),
	}
	for _, col := range []prometheus.Collector{m.connected, m.disconnects} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}

	c.OnStateChange(func(state ConnectionState) {
		switch state {
		case StateConnected, StateResumed:
			m.connected.Set(1)
		case StateDisconnected:
			m.connected.Set(0)
			m.disconnects.Inc()
			c.logger.Warn("Gateway disconnected, waiting for reconnect")
		default:
			m.connected.Set(0)
		}
	})
	return nil
}
