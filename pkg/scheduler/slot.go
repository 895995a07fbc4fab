package scheduler

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
)

// slot is one unit of the bounded pool. Its limiter persists across the
// plugins that run in it, so spacing holds between consecutive plugins too.
type slot struct {
	id      int
	limiter *rate.Limiter
}

func newSlots(n int, cfg Config) chan *slot {
	slots := make(chan *slot, n)
	for i := 0; i < n; i++ {
		s := &slot{id: i}
		if cfg.InterRequestDelay > 0 {
			s.limiter = rate.NewLimiter(rate.Every(cfg.InterRequestDelay), 1)
		}
		slots <- s
	}
	return slots
}

// pacedRequester spaces requests issued through one slot. Retry attempts
// made inside the client wait on the same limiter.
type pacedRequester struct {
	next    plugin.Requester
	limiter *rate.Limiter
}

func (s *slot) requester(next plugin.Requester) plugin.Requester {
	if s.limiter == nil {
		return next
	}
	return &pacedRequester{next: next, limiter: s.limiter}
}

func (p *pacedRequester) Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		// The wait would outlast ctx; the request can never be sent.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	paced := *req
	paced.RetryPacer = p.limiter
	return p.next.Do(ctx, &paced)
}
