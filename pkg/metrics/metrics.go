package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Append captures counters for the leader append path.
type Append struct {
	Appends   prometheus.Counter
	Retries   prometheus.Counter
	Failures  *prometheus.CounterVec
	StepDowns prometheus.Counter
}

// NewAppend registers append-path counters on reg.
// Failures are labelled by failure kind (io_fault, out_of_disk_space,
// too_large, hook, unclassified, closed).
func NewAppend(reg prometheus.Registerer) *Append {
	factory := promauto.With(reg)
	return &Append{
		Appends: factory.NewCounter(prometheus.CounterOpts{
			Name: "raftlog_appends_total",
			Help: "Entries durably appended to the journal.",
		}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "raftlog_append_retries_total",
			Help: "Append attempts re-issued after a transient storage fault.",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raftlog_append_failures_total",
			Help: "Append requests resolved with an error, by failure kind.",
		}, []string{"kind"}),
		StepDowns: factory.NewCounter(prometheus.CounterOpts{
			Name: "raftlog_step_downs_total",
			Help: "Leader step-downs triggered by fatal append failures.",
		}),
	}
}
