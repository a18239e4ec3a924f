package fluxgraph

import (
	"context"
	"time"
)

// Dedupe removes duplicate items from a flow based on a key function. It
// maintains a time-based cache of seen keys with optional TTL expiration,
// useful ahead of an aggregator operator when upstream producers may
// redeliver the same event (at-least-once sources feeding an otherwise
// exactly-once-per-event aggregation).
type Dedupe[T any, K comparable] struct {
	base
	clock   Clock
	keyFunc func(T) K
	seen    map[K]time.Time
	ttl     time.Duration
}

// NewDedupe creates a Dedupe operator keyed by keyFunc. Keys are remembered
// forever unless WithTTL is set.
func NewDedupe[T any, K comparable](name string, keyFunc func(T) K, clock Clock) *Dedupe[T, K] {
	return &Dedupe[T, K]{
		base:    newBase(name),
		keyFunc: keyFunc,
		seen:    make(map[K]time.Time),
		clock:   clock,
	}
}

// WithTTL sets the time-to-live for remembered keys.
func (d *Dedupe[T, K]) WithTTL(ttl time.Duration) *Dedupe[T, K] {
	d.ttl = ttl
	return d
}

func (d *Dedupe[T, K]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	out := make(chan Message[T], InboundQueueSize)

	go func() {
		d.setState(StateRunning)
		defer close(out)

		var ticker Ticker
		var tickerChan <-chan time.Time
		if d.ttl > 0 {
			ticker = d.clock.NewTicker(d.ttl / 2)
			defer ticker.Stop()
			tickerChan = ticker.C()
		}

		for {
			select {
			case <-ctx.Done():
				d.setState(StateFailed)
				return

			case msg, ok := <-in:
				if !ok {
					d.setState(StateTerminated)
					return
				}
				if msg.Sentinel {
					d.setState(StateDraining)
					select {
					case out <- msg:
					case <-ctx.Done():
					}
					d.setState(StateTerminated)
					return
				}

				key := d.keyFunc(msg.Value)
				lastSeen, exists := d.seen[key]
				now := d.clock.Now()

				shouldPass := !exists
				if exists && d.ttl > 0 {
					shouldPass = now.Sub(lastSeen) > d.ttl
				}
				if shouldPass {
					d.seen[key] = now
					select {
					case out <- msg:
					case <-ctx.Done():
						d.setState(StateFailed)
						return
					}
				}

			case <-tickerChan:
				d.logger.Debug().Str("operator", d.name).Msg("dedupe ticker boundary reached")
				d.cleanup()
			}
		}
	}()

	return out
}

func (d *Dedupe[T, K]) cleanup() {
	now := d.clock.Now()
	for key, lastSeen := range d.seen {
		if now.Sub(lastSeen) > d.ttl {
			delete(d.seen, key)
		}
	}
}
