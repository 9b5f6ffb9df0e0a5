package utils

import (
	"context"
	"errors"
	"testing"
)

func TestHealthMonitorCheck(t *testing.T) {
	m := NewHealthMonitor(map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("down") },
	})
	status := m.Check(context.Background())
	if status.Healthy {
		t.Fatal("expected unhealthy")
	}
	if !status.Checks["store"] || status.Checks["redis"] {
		t.Fatalf("unexpected checks %v", status.Checks)
	}
	if got := m.Status(); got.CheckedAt.IsZero() || got.Healthy {
		t.Fatalf("status not stored: %+v", got)
	}
}

func TestHealthMonitorNoChecks(t *testing.T) {
	if !NewHealthMonitor(nil).Check(context.Background()).Healthy {
		t.Fatal("no checks should be healthy")
	}
}
