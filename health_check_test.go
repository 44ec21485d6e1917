package ygggo_db

import (
	"context"
	"testing"
	"time"
)

func TestSelfCheck_RoundTrips(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	defer p.Close()

	if err := p.SelfCheck(ctx); err != nil {
		t.Fatalf("SelfCheck: %v", err)
	}
}

func TestSelfCheck_NilPool(t *testing.T) {
	var p *Pool
	if err := p.SelfCheck(context.Background()); err == nil {
		t.Fatal("nil pool should fail the self check")
	}
}

func TestHealthCheck_HealthySnapshot(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	defer p.Close()

	st := p.HealthCheck(ctx)
	if !st.Healthy {
		t.Fatalf("Healthy = false, error = %q", st.Error)
	}
	if st.Engine != EngineSQLite {
		t.Fatalf("Engine = %v, want sqlite", st.Engine)
	}
	if st.Error != "" {
		t.Fatalf("Error = %q, want empty", st.Error)
	}
	if st.CheckedAt.IsZero() {
		t.Fatal("CheckedAt not set")
	}
	if st.Latency < 0 {
		t.Fatalf("Latency = %v", st.Latency)
	}
}

func TestHealthCheck_FailureLandsInSnapshot(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st := p.HealthCheck(ctx)
	if st.Healthy {
		t.Fatal("closed pool reported healthy")
	}
	if st.Error == "" {
		t.Fatal("Error should describe the failure")
	}
}

func TestHealthCheck_NilPool(t *testing.T) {
	var p *Pool
	st := p.HealthCheck(context.Background())
	if st.Healthy {
		t.Fatal("nil pool reported healthy")
	}
	if st.Error == "" {
		t.Fatal("Error should describe the failure")
	}
}

func TestPingWithRetry_Succeeds(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	defer p.Close()

	if err := p.PingWithRetry(ctx); err != nil {
		t.Fatalf("PingWithRetry: %v", err)
	}
}

func TestPingWithRetry_GivesUpOnClosedPool(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	p.retry = fastRetry(3)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	start := time.Now()
	if err := p.PingWithRetry(ctx); err == nil {
		t.Fatal("ping on closed pool should fail")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retry loop ran too long: %v", elapsed)
	}
}

func TestPingWithRetry_NilPool(t *testing.T) {
	var p *Pool
	if err := p.PingWithRetry(context.Background()); err == nil {
		t.Fatal("nil pool should fail")
	}
}
