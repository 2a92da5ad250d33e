package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clawstack/clawpay/logger"
)

// FailoverConfig bounds the endpoint-fallback loop. Endpoints are exhausted
// strictly in priority order, never raced, so cost and quota usage stay
// predictable. Backoff is an explicit sequence: attempt n on an endpoint
// sleeps Backoff[n-1] first, and len(Backoff)+1 is the per-endpoint attempt
// cap.
type FailoverConfig struct {
	Backoff     []time.Duration
	CallTimeout time.Duration
}

// DefaultFailoverConfig retries each endpoint twice with a short pause
// before moving on to the next one.
var DefaultFailoverConfig = FailoverConfig{
	Backoff:     []time.Duration{500 * time.Millisecond},
	CallTimeout: 15 * time.Second,
}

func (c FailoverConfig) attemptsPerEndpoint() int { return len(c.Backoff) + 1 }

// errAllEndpointsFailed wraps the per-endpoint errors when the whole
// fallback chain is exhausted. Verification maps it to StatusUnknown, which
// is distinct from "transaction not found": the two require different
// caller-facing guidance.
type errAllEndpointsFailed struct {
	endpoints int
	cause     error
}

func (e *errAllEndpointsFailed) Error() string {
	return fmt.Sprintf("all %d rpc endpoints failed: %v", e.endpoints, e.cause)
}

func (e *errAllEndpointsFailed) Unwrap() error { return e.cause }

// IsAllEndpointsFailed reports whether err is a total RPC failure rather
// than a definitive chain answer.
func IsAllEndpointsFailed(err error) bool {
	var e *errAllEndpointsFailed
	return errors.As(err, &e)
}

// withFailover runs call against each endpoint index in priority order,
// retrying per the backoff sequence, and returns nil on the first success.
// Individual endpoint failures are logged and swallowed; only total failure
// surfaces, as an aggregate error. When the parent context carries a
// deadline, each attempt gets at most an equal share of the remaining
// budget, so a stalled endpoint cannot starve the fallbacks behind it.
func withFailover(ctx context.Context, log logger.Logger, cfg FailoverConfig, endpoints []string, call func(ctx context.Context, endpoint int) error) error {
	if len(endpoints) == 0 {
		return errors.New("no rpc endpoints configured")
	}

	perEndpoint := cfg.attemptsPerEndpoint()

	var failures []error
	for i := range endpoints {
		for attempt := 0; attempt < perEndpoint; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(cfg.Backoff[attempt-1]):
				}
			}

			timeout := cfg.CallTimeout
			if deadline, ok := ctx.Deadline(); ok {
				remaining := (len(endpoints)-i)*perEndpoint - attempt
				share := time.Until(deadline) / time.Duration(remaining)
				if timeout <= 0 || share < timeout {
					timeout = share
				}
			}

			callCtx := ctx
			var cancel context.CancelFunc
			if timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			err := call(callCtx, i)
			if cancel != nil {
				cancel()
			}
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.Warn("rpc endpoint call failed", map[string]any{
				"endpoint": endpoints[i],
				"attempt":  attempt + 1,
				"error":    err.Error(),
			})
			failures = append(failures, fmt.Errorf("%s: %w", endpoints[i], err))
		}
	}

	return &errAllEndpointsFailed{endpoints: len(endpoints), cause: errors.Join(failures...)}
}
