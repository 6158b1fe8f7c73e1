// Package metrics exposes Prometheus collectors for instruction processing,
// vault reconciliation and the HTTP ingress.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "squadvault"

// Metrics holds the process collectors on their own registry
type Metrics struct {
	Registry *prometheus.Registry

	instructions        *prometheus.CounterVec
	instructionDuration *prometheus.HistogramVec
	vaultDrift          *prometheus.GaugeVec
	driftedSquads       prometheus.Gauge
	lastAudit           prometheus.Gauge
	httpInFlight        prometheus.Gauge
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatcher",
				Name:      "instructions_total",
				Help:      "Instructions processed, by kind, outcome and error kind.",
			},
			[]string{"kind", "outcome", "error_kind"},
		),
		instructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatcher",
				Name:      "instruction_duration_seconds",
				Help:      "Time spent processing an instruction, including its database transaction.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"kind"},
		),
		vaultDrift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconciliation",
				Name:      "vault_drift_units",
				Help:      "Stored vault balance minus the sum of its ledger entries, for drifted squads.",
			},
			[]string{"squad_id"},
		),
		driftedSquads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "drifted_squads",
			Help:      "Number of squads whose vault disagreed with the ledger in the last audit.",
		}),
		lastAudit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "last_audit_timestamp_seconds",
			Help:      "Unix time of the last completed vault audit.",
		}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}

	m.Registry.MustRegister(
		m.instructions,
		m.instructionDuration,
		m.vaultDrift,
		m.driftedSquads,
		m.lastAudit,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveInstruction records one dispatched instruction
func (m *Metrics) ObserveInstruction(kind models.InstructionKind, outcome models.InstructionOutcome, errKind ledger.Kind, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	m.instructions.WithLabelValues(string(kind), string(outcome), string(errKind)).Inc()
	m.instructionDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// ReportVaultAudit replaces the drift gauges with the latest audit
func (m *Metrics) ReportVaultAudit(audits []models.VaultAudit) {
	m.vaultDrift.Reset()

	drifted := 0
	for i := range audits {
		if drift := audits[i].Drift(); drift != 0 {
			drifted++
			m.vaultDrift.WithLabelValues(audits[i].SquadID).Set(float64(drift))
		}
	}
	m.driftedSquads.Set(float64(drifted))
	m.lastAudit.SetToCurrentTime()
}

// InstrumentHandler wraps next with request counting and timing. Routes are
// labelled by their mux template so ids do not explode label cardinality.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
