package alert

import (
	"context"
	"errors"

	"rugwatch/internal/domain"
)

// MultiSink fans a verdict out to several sinks. Every sink sees every
// verdict even when an earlier one fails; the errors come back joined.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink delivering to all the given sinks in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Deliver passes the verdict to each sink.
func (m *MultiSink) Deliver(ctx context.Context, verdict *domain.RiskVerdict) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Deliver(ctx, verdict); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
