package metrics

import (
	"net/http"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Launch holds the launch pipeline collectors on a private registry so
// tests can build as many as they like.
type Launch struct {
	registry    *prometheus.Registry
	stages      *prometheus.CounterVec
	remoteCalls *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
}

func NewLaunch() *Launch {
	registry := prometheus.NewRegistry()
	m := &Launch{
		registry: registry,
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adpilot_stage_attempts_total",
			Help: "Stage attempts by entity kind and outcome.",
		}, []string{"stage", "status"}),
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adpilot_remote_call_seconds",
			Help:    "Latency of ad platform calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}, []string{"kind", "op"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adpilot_jobs_total",
			Help: "Launch jobs by terminal status.",
		}, []string{"status"}),
	}
	registry.MustRegister(
		m.stages,
		m.remoteCalls,
		m.jobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Launch) ObserveStage(stage entities.StageKind, status entities.EventStatus) {
	m.stages.WithLabelValues(string(stage), string(status)).Inc()
}

func (m *Launch) ObserveRemoteCall(kind entities.StageKind, operation ports.RemoteOperation, elapsed time.Duration) {
	m.remoteCalls.WithLabelValues(string(kind), string(operation)).Observe(elapsed.Seconds())
}

func (m *Launch) ObserveJob(status entities.JobStatus) {
	m.jobs.WithLabelValues(string(status)).Inc()
}

func (m *Launch) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Launch) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
