package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sani_requests_total",
			Help: "Total number of requests by endpoint and status code",
		},
		[]string{"endpoint", "code"},
	)

	Intents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sani_intents_total",
			Help: "Canonical intents produced by classification",
		},
		[]string{"intent"},
	)

	GateShortCircuits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sani_gate_short_circuits_total",
			Help: "Messages classified as OTHER without calling the classifier",
		},
	)

	NLUParseStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sani_nlu_parse_total",
			Help: "Classifier replies by decode stage (direct, extracted, failed)",
		},
		[]string{"stage"},
	)

	SanitizerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sani_sanitizer_fallbacks_total",
			Help: "Chat replies replaced by the fallback message after sanitizing",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sani_cache_lookups_total",
			Help: "Generator cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	GenerateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sani_generate_duration_seconds",
			Help:    "Duration of generator calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "op"},
	)

	GenerateErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sani_generate_errors_total",
			Help: "Failed generator calls",
		},
		[]string{"engine", "op"},
	)
)
