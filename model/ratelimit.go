package model

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to an underlying Model with a token bucket.
type RateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// NewRateLimited wraps m so that at most perSecond calls start per second,
// with the given burst. perSecond <= 0 disables pacing.
func NewRateLimited(m Model, perSecond float64, burst int) Model {
	if perSecond <= 0 {
		return m
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: m, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate waits for a token then delegates.
func (r *RateLimited) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := r.limiter.Wait(ctx); err != nil {
		respCh := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- err
		close(respCh)
		close(errCh)
		return respCh, errCh
	}
	return r.next.Generate(ctx, req)
}

// Info implements Model.
func (r *RateLimited) Info() Info { return r.next.Info() }
