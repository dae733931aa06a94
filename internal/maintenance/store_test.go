package maintenance_test

import (
	"context"
	"testing"
	"time"

	"github.com/sentrymon/monitor-core/internal/maintenance"
)

func TestIsActiveOneOffWindow(t *testing.T) {
	s := maintenance.NewStore()
	now := time.Now()
	err := s.Upsert(&maintenance.Window{
		ID:         "w1",
		MonitorIDs: []string{"m1"},
		Start:      now.Add(-time.Hour),
		End:        now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !s.IsActive(context.Background(), "m1", now) {
		t.Fatal("expected monitor to be inside its maintenance window")
	}
	if s.IsActive(context.Background(), "m2", now) {
		t.Fatal("unrelated monitor must not be affected")
	}
}

func TestIsActiveOutsideWindow(t *testing.T) {
	s := maintenance.NewStore()
	now := time.Now()
	_ = s.Upsert(&maintenance.Window{
		ID:         "w1",
		MonitorIDs: []string{"m1"},
		Start:      now.Add(-2 * time.Hour),
		End:        now.Add(-time.Hour),
	})
	if s.IsActive(context.Background(), "m1", now) {
		t.Fatal("window already ended, expected inactive")
	}
}

func TestRemoveClearsWindow(t *testing.T) {
	s := maintenance.NewStore()
	now := time.Now()
	_ = s.Upsert(&maintenance.Window{
		ID:         "w1",
		MonitorIDs: []string{"m1"},
		Start:      now.Add(-time.Hour),
		End:        now.Add(time.Hour),
	})
	s.Remove("w1")
	if s.IsActive(context.Background(), "m1", now) {
		t.Fatal("expected window removal to take effect")
	}
}
