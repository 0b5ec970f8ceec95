package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type hubMetrics struct {
	connections prometheus.Gauge
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

func (h *Hub) initMetrics(registry prometheus.Registerer) {
	promautoFactory := promauto.With(registry)
	h.metrics = &hubMetrics{
		connections: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "scaleup_realtime_connections",
			Help: "number of live websocket connections",
		}),
		delivered: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "scaleup_realtime_frames_delivered_total",
			Help: "frames queued for a live connection",
		}, []string{"event"}),
		dropped: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "scaleup_realtime_frames_dropped_total",
			Help: "frames dropped because the connection buffer was full",
		}, []string{"event"}),
	}
}
