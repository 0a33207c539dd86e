// Package stats wires the splitter's counters to Prometheus: one
// CounterVec labeled by command name for the per-command totals, plus two
// standalone counters for the failure paths that never resolve to a
// command.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Sink implements splitter.Stats against a Prometheus registry. Counter
// names follow "<prefix>splitter_invalid_request",
// "<prefix>splitter_unsupported_command" and "<prefix>command_total"
// (labeled by command), underscored rather than dotted since Prometheus
// metric names cannot contain '.'.
type Sink struct {
	invalidRequest     prometheus.Counter
	unsupportedCommand prometheus.Counter
	commandTotal       *prometheus.CounterVec
}

// NewSink registers its counters with reg under statPrefix and returns the
// ready Sink. statPrefix is typically the empty string or a deployment tag
// ending in a separator the caller has already chosen.
func NewSink(reg prometheus.Registerer, statPrefix string) *Sink {
	s := &Sink{
		invalidRequest: prometheus.NewCounter(prometheus.CounterOpts{
			Name: statPrefix + "splitter_invalid_request",
			Help: "Requests rejected before a command could be dispatched.",
		}),
		unsupportedCommand: prometheus.NewCounter(prometheus.CounterOpts{
			Name: statPrefix + "splitter_unsupported_command",
			Help: "Requests whose verb has no registered handler.",
		}),
		commandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: statPrefix + "command_total",
			Help: "Requests dispatched per command verb.",
		}, []string{"command"}),
	}
	reg.MustRegister(s.invalidRequest, s.unsupportedCommand, s.commandTotal)
	return s
}

// IncInvalidRequest implements splitter.Stats
func (s *Sink) IncInvalidRequest() {
	s.invalidRequest.Inc()
}

// IncUnsupportedCommand implements splitter.Stats
func (s *Sink) IncUnsupportedCommand() {
	s.unsupportedCommand.Inc()
}

// IncCommandTotal implements splitter.Stats
func (s *Sink) IncCommandTotal(name string) {
	s.commandTotal.WithLabelValues(name).Inc()
}
