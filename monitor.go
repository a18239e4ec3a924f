package fluxgraph

import (
	"context"
	"time"
)

// FlowStats reports throughput for a monitored flow segment.
type FlowStats struct {
	LastUpdate time.Time
	Count      int64
	Rate       float64
}

// Monitor is a pass-through operator that periodically reports throughput
// statistics without otherwise touching the flow.
type Monitor[T any] struct {
	base
	clock    Clock
	interval time.Duration
	onStats  func(FlowStats)
	count    int64
	lastTime time.Time
}

// NewMonitor creates a Monitor reporting every interval via onStats.
func NewMonitor[T any](name string, interval time.Duration, clock Clock, onStats func(FlowStats)) *Monitor[T] {
	return &Monitor[T]{
		base:     newBase(name),
		clock:    clock,
		interval: interval,
		onStats:  onStats,
		lastTime: clock.Now(),
	}
}

func (m *Monitor[T]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	out := make(chan Message[T], InboundQueueSize)

	go func() {
		m.setState(StateRunning)
		defer close(out)

		ticker := m.clock.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.reportStats()
				m.setState(StateFailed)
				return

			case msg, ok := <-in:
				if !ok {
					m.reportStats()
					m.setState(StateTerminated)
					return
				}
				if msg.Sentinel {
					m.setState(StateDraining)
					m.reportStats()
					select {
					case out <- msg:
					case <-ctx.Done():
					}
					m.setState(StateTerminated)
					return
				}

				m.count++
				select {
				case out <- msg:
				case <-ctx.Done():
					m.setState(StateFailed)
					return
				}

			case <-ticker.C():
				m.logger.Debug().Str("operator", m.name).Msg("monitor ticker boundary reached")
				m.reportStats()
			}
		}
	}()

	return out
}

func (m *Monitor[T]) reportStats() {
	now := m.clock.Now()
	duration := now.Sub(m.lastTime).Seconds()
	rate := 0.0
	if duration > 0 {
		rate = float64(m.count) / duration
	}
	if m.onStats != nil {
		m.onStats(FlowStats{Count: m.count, Rate: rate, LastUpdate: now})
	}
	m.count = 0
	m.lastTime = now
}
