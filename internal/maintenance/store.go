// Package maintenance answers whether a monitor currently falls inside a
// configured maintenance window, the delegated query the check executor
// consults before dispatching to a type handler.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Window is one recurring or one-off maintenance window attached to a set
// of monitors. CronExpr follows standard 5-field cron syntax; a one-off
// window leaves CronExpr empty and relies solely on Start/End.
type Window struct {
	ID         string
	MonitorIDs []string
	CronExpr   string
	Duration   time.Duration
	Start      time.Time
	End        time.Time
	schedule   cron.Schedule
}

// Store holds the active maintenance windows in memory, keyed by monitor.
// Windows are added with Upsert and dropped with Remove; nothing in this
// repository loads windows from the management layer or from pub/sub, so
// the worker's store stays empty unless a caller upserts into it.
type Store struct {
	mu       sync.RWMutex
	byMonitor map[string][]*Window
}

func NewStore() *Store {
	return &Store{byMonitor: make(map[string][]*Window)}
}

// Upsert parses w's cron expression (if any) and replaces any existing
// window with the same ID for each of its monitors.
func (s *Store) Upsert(w *Window) error {
	if w.CronExpr != "" {
		sched, err := cron.ParseStandard(w.CronExpr)
		if err != nil {
			return err
		}
		w.schedule = sched
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, monitorID := range w.MonitorIDs {
		s.byMonitor[monitorID] = replaceWindow(s.byMonitor[monitorID], w)
	}
	return nil
}

func replaceWindow(windows []*Window, w *Window) []*Window {
	out := make([]*Window, 0, len(windows)+1)
	for _, existing := range windows {
		if existing.ID != w.ID {
			out = append(out, existing)
		}
	}
	return append(out, w)
}

// Remove drops a window entirely, from every monitor it applied to.
func (s *Store) Remove(windowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for monitorID, windows := range s.byMonitor {
		kept := windows[:0:0]
		for _, w := range windows {
			if w.ID != windowID {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			delete(s.byMonitor, monitorID)
		} else {
			s.byMonitor[monitorID] = kept
		}
	}
}

// IsActive reports whether monitorID falls inside one of its windows at now.
func (s *Store) IsActive(_ context.Context, monitorID string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.byMonitor[monitorID] {
		if w.schedule == nil {
			if (now.Equal(w.Start) || now.After(w.Start)) && now.Before(w.End) {
				return true
			}
			continue
		}
		// Recurring: find the most recent occurrence at or before now and
		// check whether its duration still covers now. Only an occurrence
		// within the last Duration can cover now, so search from there.
		prev := w.schedule.Next(now.Add(-w.Duration))
		for {
			next := w.schedule.Next(prev)
			if next.After(now) {
				break
			}
			prev = next
		}
		if !now.Before(prev) && now.Before(prev.Add(w.Duration)) {
			return true
		}
	}
	return false
}
