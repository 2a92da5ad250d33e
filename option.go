package clawpay

import (
	"github.com/clawstack/clawpay/clients"
	"github.com/clawstack/clawpay/logger"
	"github.com/clawstack/clawpay/metrics"
	"github.com/clawstack/clawpay/settlement"
)

// Option customizes an Engine at construction time.
type Option func(*Engine)

// WithLogger injects a logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics injects a metrics recorder. The default discards everything.
func WithMetrics(rec metrics.Recorder) Option {
	return func(e *Engine) {
		if rec != nil {
			e.metrics = rec
		}
	}
}

// WithStore injects the split contract store. The default is in-memory;
// production deployments pass settlement.NewPostgresStore.
func WithStore(store settlement.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithFailoverConfig overrides the RPC endpoint retry and timeout policy.
func WithFailoverConfig(cfg clients.FailoverConfig) Option {
	return func(e *Engine) {
		e.failover = &cfg
	}
}
