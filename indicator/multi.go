package indicator

import "context"

// Multi combines multiple Indicator implementations. Signals run one after
// another, in order.
type Multi struct {
	indicators []Indicator
}

// NewMulti returns a Multi over the given indicators.
func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{indicators: indicators}
}

// Signal implements Indicator.Signal.
func (m *Multi) Signal(ctx context.Context, ev Event) {
	for _, ind := range m.indicators {
		ind.Signal(ctx, ev)
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
