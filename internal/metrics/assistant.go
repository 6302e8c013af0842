package metrics

import "github.com/prometheus/client_golang/prometheus"

// Assistant routing metrics.
var (
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "intents_total",
			Help:      "Classified intents",
		},
		[]string{"intent"},
	)

	BranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "branch_total",
			Help:      "Answers by pipeline branch and outcome",
		},
		[]string{"branch", "outcome"},
	)

	DialogueTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "dialogue_transitions_total",
			Help:      "Slot-filling state transitions",
		},
		[]string{"from", "to"},
	)

	HandoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "handoffs_total",
			Help:      "Support handoff submissions",
		},
		[]string{"result"}, // created / duplicate / error
	)

	CorpusEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tourassist",
			Name:      "corpus_entries",
			Help:      "Entries in the loaded corpus index",
		},
	)
)

var assistantMetricsRegistered bool

// RegisterAssistantMetrics registers routing metrics. Must be called once from main.
func RegisterAssistantMetrics() {
	if assistantMetricsRegistered {
		return
	}
	prometheus.MustRegister(IntentsTotal)
	prometheus.MustRegister(BranchTotal)
	prometheus.MustRegister(DialogueTransitionsTotal)
	prometheus.MustRegister(HandoffsTotal)
	prometheus.MustRegister(CorpusEntries)
	assistantMetricsRegistered = true
}
