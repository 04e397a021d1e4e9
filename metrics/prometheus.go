// Package metrics provides a Prometheus plugin exporting authorization and
// emergency-access metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medplane/guardian"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/plugin"
)

// Compile-time hook checks.
var (
	_ plugin.Plugin                = (*Plugin)(nil)
	_ plugin.AfterAuthorize        = (*Plugin)(nil)
	_ plugin.EmergencyRequested    = (*Plugin)(nil)
	_ plugin.EmergencyTransitioned = (*Plugin)(nil)
)

// Plugin exports decision counts, per-gate denials, emergency transitions,
// and evaluation latency to Prometheus.
type Plugin struct {
	registry *prometheus.Registry

	decisions    *prometheus.CounterVec
	gateDenials  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	evalDuration *prometheus.HistogramVec
}

// New creates the metrics plugin with its own registry.
func New() *Plugin {
	p := &Plugin{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_decisions_total",
				Help: "Authorization decisions by tenant and decision code.",
			},
			[]string{"tenant", "decision"},
		),
		gateDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_gate_denials_total",
				Help: "Denied requests by tenant and deciding gate.",
			},
			[]string{"tenant", "gate"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_emergency_transitions_total",
				Help: "Emergency grant status transitions.",
			},
			[]string{"tenant", "from", "to"},
		),
		evalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardian_eval_duration_seconds",
				Help:    "Authorization evaluation latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant"},
		),
	}
	p.registry.MustRegister(p.decisions, p.gateDenials, p.transitions, p.evalDuration)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "prometheus-metrics" }

// Handler returns the scrape endpoint for this plugin's registry.
func (p *Plugin) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for callers that aggregate
// collectors themselves.
func (p *Plugin) Registry() *prometheus.Registry { return p.registry }

// OnAfterAuthorize records the decision outcome and latency.
func (p *Plugin) OnAfterAuthorize(_ context.Context, req, result any) error {
	r, ok := req.(*guardian.AuthorizeRequest)
	if !ok {
		return nil
	}
	res, ok := result.(*guardian.Result)
	if !ok {
		return nil
	}

	p.decisions.WithLabelValues(r.TenantID, string(res.Decision)).Inc()
	if !res.Allowed && res.Gate != "" {
		p.gateDenials.WithLabelValues(r.TenantID, string(res.Gate)).Inc()
	}
	p.evalDuration.WithLabelValues(r.TenantID).
		Observe(time.Duration(res.EvalTimeNs).Seconds())
	return nil
}

// OnEmergencyRequested counts new grant requests.
func (p *Plugin) OnEmergencyRequested(_ context.Context, g *emergency.Grant) error {
	p.transitions.WithLabelValues(g.TenantID, "", string(emergency.StatusPending)).Inc()
	return nil
}

// OnEmergencyTransitioned counts grant status transitions.
func (p *Plugin) OnEmergencyTransitioned(_ context.Context, g *emergency.Grant, from emergency.Status) error {
	p.transitions.WithLabelValues(g.TenantID, string(from), string(g.Status)).Inc()
	return nil
}
