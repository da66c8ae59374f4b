package engine

import (
	"time"

	"github.com/rs/zerolog"

	"repello/internal/metrics"
)

// defaultTickInterval is how often the background ticker sweeps the
// expiration heap. Commands do not sweep it themselves.
const defaultTickInterval = 250 * time.Millisecond

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithInvertModifyGate flips Modify's suppression condition from the
// literal contract (existing.Remaining >= new.MinimumQuantity suppresses)
// to the business-intent reading (existing.Remaining < new.MinimumQuantity
// suppresses). Default: false (the literal contract).
func WithInvertModifyGate(invert bool) Option {
	return func(e *Engine) { e.invertModifyGate = invert }
}

// WithTickInterval overrides how often the expiration heap is swept by the
// background ticker.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithLogger overrides the engine's zerolog.Logger. Default: a disabled
// logger (silent), so tests do not need to configure one.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics overrides the engine's metrics sink. Default: a fresh
// metrics.Metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the engine's source of "now", for deterministic
// expiration tests. Default: time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}
