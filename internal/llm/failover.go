package llm

import (
	"context"
	"fmt"
)

// Failover wraps a primary provider with a single fallback attempt on
// transient failures. In strict-determinism mode the fallback is disabled
// entirely, because results are not reproducible across providers; transient
// failures then propagate as hard errors.
type Failover struct {
	primary  Provider
	fallback Provider
	strict   bool
}

// NewFailover creates a failover wrapper. fallback may be nil, in which case
// transient failures propagate unchanged.
func NewFailover(primary, fallback Provider, strict bool) *Failover {
	return &Failover{
		primary:  primary,
		fallback: fallback,
		strict:   strict,
	}
}

// Name returns the primary provider's name.
func (f *Failover) Name() string {
	return f.primary.Name()
}

// Complete calls the primary provider, retrying exactly once against the
// fallback when the failure is classified as transient. Any other failure
// class is not retried and propagates.
func (f *Failover) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := f.primary.Complete(ctx, req)
	if err == nil {
		resp.Provider = f.primary.Name()
		return resp, nil
	}

	if Classify(err) != FailureTransient {
		return nil, err
	}
	if f.strict {
		return nil, fmt.Errorf("provider %s transient failure (fallback disabled in strict mode): %w", f.primary.Name(), err)
	}
	if f.fallback == nil {
		return nil, err
	}

	resp, fbErr := f.fallback.Complete(ctx, req)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %s failed (%v); fallback %s failed: %w",
			f.primary.Name(), err, f.fallback.Name(), fbErr)
	}
	resp.Provider = f.fallback.Name()
	resp.FallbackUsed = true
	return resp, nil
}
