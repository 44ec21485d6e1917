package ygggo_db

import (
	"context"
	"errors"
	"time"
)

// HealthStatus is a point-in-time snapshot of pool health.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Engine    Engine        `json:"engine"`
	Latency   time.Duration `json:"latency"`
	Open      int           `json:"open"`
	Idle      int           `json:"idle"`
	InUse     int           `json:"in_use"`
	WaitCount int64         `json:"wait_count"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// SelfCheck verifies the pool end to end: a ping plus a SELECT 1 round
// trip through a real connection.
func (p *Pool) SelfCheck(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("ygggo_db: nil pool")
	}
	if err := p.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	return nil
}

// HealthCheck runs SelfCheck and returns a snapshot with pool statistics.
// Failures land in the snapshot, not in a second return value.
func (p *Pool) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	st := &HealthStatus{Engine: p.Engine(), CheckedAt: start}
	err := p.SelfCheck(ctx)
	st.Latency = time.Since(start)
	if p != nil && p.db != nil {
		stats := p.db.Stats()
		st.Open = stats.OpenConnections
		st.Idle = stats.Idle
		st.InUse = stats.InUse
		st.WaitCount = stats.WaitCount
		p.logConnectionPool(ctx, p.GetPoolStats())
	}
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Healthy = true
	return st
}

// PingWithRetry pings under the pool's retry policy. Connection-class
// failures count as retryable here: the whole point is waiting out a server
// that is not reachable yet.
func (p *Pool) PingWithRetry(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("ygggo_db: nil pool")
	}
	classify := func(err error) ErrorClass {
		if class := Classify(err); class != ErrClassConnection {
			return class
		}
		return ErrClassRetryable
	}
	return retryWithPolicy(ctx, p.retry, func() error {
		return p.db.PingContext(ctx)
	}, classify)
}
