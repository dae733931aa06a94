package uptime_test

import (
	"testing"
	"time"

	"github.com/sentrymon/monitor-core/internal/uptime"
)

func TestUptime24hAllUp(t *testing.T) {
	c := uptime.NewCalculator()
	now := time.Now()
	ping := 12.5
	for i := 0; i < 5; i++ {
		c.Update("m1", now.Add(time.Duration(i)*time.Minute), true, &ping)
	}
	if got := c.Uptime24h("m1"); got != 1.0 {
		t.Fatalf("expected 100%% uptime, got %v", got)
	}
}

func TestUptimeMixedOutcomes(t *testing.T) {
	c := uptime.NewCalculator()
	now := time.Now()
	c.Update("m1", now, true, nil)
	c.Update("m1", now.Add(time.Minute), false, nil)
	c.Update("m1", now.Add(2*time.Minute), true, nil)
	c.Update("m1", now.Add(3*time.Minute), false, nil)

	got := c.Uptime24h("m1")
	if got != 0.5 {
		t.Fatalf("expected 50%% uptime, got %v", got)
	}
}

func TestUptimeUnknownMonitorIsZero(t *testing.T) {
	c := uptime.NewCalculator()
	if got := c.Uptime24h("never-seen"); got != 0 {
		t.Fatalf("expected 0 for a monitor with no data, got %v", got)
	}
}

func TestAvgPingLastHour(t *testing.T) {
	c := uptime.NewCalculator()
	now := time.Now()
	p1, p2 := 10.0, 20.0
	c.Update("m1", now, true, &p1)
	c.Update("m1", now.Add(time.Minute), true, &p2)

	if got := c.AvgPingLastHour("m1"); got != 15.0 {
		t.Fatalf("expected avg ping 15.0, got %v", got)
	}
}

func TestRemoveEvictsWindow(t *testing.T) {
	c := uptime.NewCalculator()
	c.Update("m1", time.Now(), true, nil)
	c.Remove("m1")
	if got := c.Uptime24h("m1"); got != 0 {
		t.Fatalf("expected 0 uptime after removal, got %v", got)
	}
}
