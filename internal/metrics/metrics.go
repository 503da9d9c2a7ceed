// Package metrics registers the gateway's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "painel_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	maintenancePolls  *prometheus.CounterVec
	maintenanceActive prometheus.Gauge

	snapshotRefreshes *prometheus.CounterVec

	sessionKicks prometheus.Counter

	wsClients prometheus.Gauge
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		upstreamRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total panel API requests by method and result",
			},
			[]string{"method", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_latency_seconds",
				Help:    "Panel API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		maintenancePolls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "maintenance_polls_total",
				Help: "Total maintenance flag polls by result",
			},
			[]string{"result"},
		)
		maintenanceActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "maintenance_active",
				Help: "Whether the maintenance flag is currently up",
			},
		)

		snapshotRefreshes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_refreshes_total",
				Help: "Total fallback snapshot refresh runs by result",
			},
			[]string{"result"},
		)

		sessionKicks = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "session_kicks_total",
				Help: "Total sessions signed out after a login elsewhere",
			},
		)

		wsClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "websocket_clients",
				Help: "Currently connected websocket clients",
			},
		)

		prometheus.MustRegister(
			upstreamRequests,
			upstreamLatency,
			maintenancePolls,
			maintenanceActive,
			snapshotRefreshes,
			sessionKicks,
			wsClients,
		)
	})
}

// ObserveUpstreamRequest records one panel API round trip.
func ObserveUpstreamRequest(method string, err error, elapsed time.Duration) {
	if upstreamRequests == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	upstreamRequests.WithLabelValues(method, result).Inc()
	upstreamLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveMaintenancePoll records one maintenance flag read.
func ObserveMaintenancePoll(err error, active bool) {
	if maintenancePolls == nil {
		return
	}
	if err != nil {
		maintenancePolls.WithLabelValues(resultError).Inc()
		return
	}
	maintenancePolls.WithLabelValues(resultSuccess).Inc()
	if active {
		maintenanceActive.Set(1)
	} else {
		maintenanceActive.Set(0)
	}
}

// ObserveSnapshotRefresh records one snapshot refresh run.
func ObserveSnapshotRefresh(err error) {
	if snapshotRefreshes == nil {
		return
	}
	if err != nil {
		snapshotRefreshes.WithLabelValues(resultError).Inc()
		return
	}
	snapshotRefreshes.WithLabelValues(resultSuccess).Inc()
}

// SessionKicked counts a forced sign-out.
func SessionKicked() {
	if sessionKicks == nil {
		return
	}
	sessionKicks.Inc()
}

// WebSocketConnected tracks the connected client gauge.
func WebSocketConnected(delta int) {
	if wsClients == nil {
		return
	}
	wsClients.Add(float64(delta))
}
