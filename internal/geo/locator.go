// Package geo obtains a best-effort coordinate pair: a precise device source
// first, a coarse IP-based estimate second. Absence of a fix is represented by
// nil coordinates, never by an error; callers decide how hard that failure is.
package geo

import (
	"context"
	"time"

	"campattend/internal/model"
)

// Source is a precise location provider tried before the IP fallback.
type Source interface {
	Current(ctx context.Context) (model.GeoFix, error)
}

// Static wraps a fix the device already captured and sent with the request.
type Static model.GeoFix

// Current returns the captured fix.
func (s Static) Current(ctx context.Context) (model.GeoFix, error) {
	return model.GeoFix(s), nil
}

// Locator tries the primary source under a timeout, then the IP estimate.
type Locator struct {
	ip      *IPLocator
	timeout time.Duration
}

// NewLocator creates a locator. timeout bounds the primary source attempt.
func NewLocator(ip *IPLocator, timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Locator{ip: ip, timeout: timeout}
}

// Acquire returns the best fix available. primary may be nil (no device
// sensor); clientIP feeds the network estimate.
func (l *Locator) Acquire(ctx context.Context, primary Source, clientIP string) model.GeoFix {
	if primary != nil {
		tctx, cancel := context.WithTimeout(ctx, l.timeout)
		fix, err := primary.Current(tctx)
		cancel()
		if err == nil && fix.HasCoords() {
			fix.Source = model.SourceDevice
			return fix
		}
	}

	if l.ip != nil {
		fix, err := l.ip.Lookup(ctx, clientIP)
		if err == nil && fix.HasCoords() {
			return fix
		}
	}

	return model.Unavailable("location not available")
}
