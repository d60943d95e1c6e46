// Package metrics holds the Prometheus collectors of the probe engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProbeTotal counts finished probes by result ("ok" or an error kind).
	ProbeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagemeter_probe_total",
			Help: "Total number of provider probes by result",
		},
		[]string{"provider", "result"},
	)

	// CandidateAttempts counts every endpoint candidate tried.
	CandidateAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagemeter_candidate_attempts_total",
			Help: "Total number of endpoint candidates tried by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// LineUsed is the used amount of the last successful probe, per line.
	LineUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usagemeter_line_used",
			Help: "Used amount of a usage line",
		},
		[]string{"provider", "label"},
	)

	// LineLimit is the limit of the last successful probe, per line.
	LineLimit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usagemeter_line_limit",
			Help: "Limit of a usage line",
		},
		[]string{"provider", "label"},
	)
)

func init() {
	prometheus.MustRegister(ProbeTotal)
	prometheus.MustRegister(CandidateAttempts)
	prometheus.MustRegister(LineUsed)
	prometheus.MustRegister(LineLimit)
}

// Candidate outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeAuth    = "auth"
	OutcomeHTTP    = "http"
	OutcomeNetwork = "network"
	OutcomeNotJSON = "not_json"
)
