// Package rate wraps uber's leaky-bucket limiter behind a channel so worker
// loops can pace themselves with a plain blocking call.
package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Jitter paces callers at a fixed per-second rate. A small buffered channel
// absorbs short bursts so consumers waking up together are not all serialized
// on the pacer.
type Jitter struct {
	ch chan struct{}
	l  ratelimit.Limiter
}

func NewJitter(ctx context.Context, limit int) *Jitter {
	burst := limit / 10
	if burst < 1 {
		burst = 1
	}
	j := &Jitter{
		ch: make(chan struct{}, burst),
		l:  ratelimit.New(limit),
	}
	go j.pace(ctx)
	return j
}

func (j *Jitter) pace(ctx context.Context) {
	defer close(j.ch)
	for {
		j.l.Take()
		select {
		case <-ctx.Done():
			return
		case j.ch <- struct{}{}:
		}
	}
}

// Take blocks until the limiter grants a slot. Once the owning context is
// cancelled and the buffer drains, Take returns immediately.
func (j *Jitter) Take() {
	<-j.ch
}
