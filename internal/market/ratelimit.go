package market

import (
	"context"

	"golang.org/x/time/rate"
)

// newSourceLimiter builds a token bucket capping outbound calls to one
// upstream market source. This is a plain in-process limiter, distinct
// from the Redis sliding-window limiter enrichment sidecars use —
// market sources are called from a single process per request, so
// there's no cross-instance state to coordinate.
func newSourceLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// waitLimiter blocks until limiter admits a request or ctx is done. A
// nil limiter always admits immediately, so sources remain usable in
// tests that construct them without one.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
