package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate"
	"golang.org/x/time/rate"
)

// Paced wraps a Notifier with a token bucket so bursts of logins cannot
// exceed a provider's send quota. Waiting honours ctx, so the engine's
// dispatch timeout still bounds a send.
type Paced struct {
	next    authgate.Notifier
	limiter *rate.Limiter
}

// NewPaced allows perSecond sends with the given burst.
func NewPaced(next authgate.Notifier, perSecond float64, burst int) *Paced {
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// SendCode waits for a token, then delegates.
func (p *Paced) SendCode(ctx context.Context, address, code string, ttl time.Duration) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: pacing: %w", err)
	}
	return p.next.SendCode(ctx, address, code, ttl)
}
