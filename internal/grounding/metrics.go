package grounding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrivener",
		Name:      "retrievals_total",
		Help:      "Repository retrievals by data completeness tier.",
	}, []string{"completeness"})

	retrievalSourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrivener",
		Name:      "retrieval_sources_total",
		Help:      "Grounding documents retrieved, by source kind.",
	}, []string{"source"})
)
