// Package metrics provides an optional Prometheus collector for a
// jsonstream pipeline: fragments emitted (labeled by token kind and
// stream session), bytes consumed and lex errors (labeled by stream
// session), so concurrent streams stay distinguishable in shared output.
package metrics

import (
	"github.com/flitsinc/jsonstream/chunk"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the counters one jsonstream pipeline reports
// through. The zero value is not usable; construct with NewCollector.
type Collector struct {
	Fragments *prometheus.CounterVec
	Bytes     *prometheus.CounterVec
	LexErrors *prometheus.CounterVec
}

// NewCollector builds an unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		Fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonstream",
			Name:      "fragments_emitted_total",
			Help:      "Number of located token fragments emitted.",
		}, []string{"kind", "session"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonstream",
			Name:      "bytes_consumed_total",
			Help:      "Number of source bytes fed into the lexer.",
		}, []string{"session"}),
		LexErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonstream",
			Name:      "lex_errors_total",
			Help:      "Number of lex errors encountered.",
		}, []string{"session"}),
	}
}

// Register registers all of the Collector's metrics with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, coll := range []prometheus.Collector{c.Fragments, c.Bytes, c.LexErrors} {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	return nil
}

// ObserveFragment records one emitted fragment of the given kind for
// session.
func (c *Collector) ObserveFragment(session string, kind chunk.Kind) {
	c.Fragments.WithLabelValues(string(kind), session).Inc()
}

// ObserveBytes records n bytes consumed for session.
func (c *Collector) ObserveBytes(session string, n int) {
	c.Bytes.WithLabelValues(session).Add(float64(n))
}

// ObserveLexError records one lex error for session.
func (c *Collector) ObserveLexError(session string) {
	c.LexErrors.WithLabelValues(session).Inc()
}
