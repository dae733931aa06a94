package worker_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// fakeRow is the in-memory analogue of a monitor_schedule row, used to
// exercise the exclusive-ownership property of Claim without a database.
type fakeRow struct {
	id          string
	nextCheckAt time.Time
	claimedBy   string
	claimedAt   time.Time
}

// fakeScheduleStore is a mutex-guarded map standing in for the postgres
// implementation's SKIP LOCKED claim — enough surface to drive concurrent
// claim property tests.
type fakeScheduleStore struct {
	mu           sync.Mutex
	rows         map[string]*fakeRow
	claimTimeout time.Duration
}

func newFakeScheduleStore(n int) *fakeScheduleStore {
	s := &fakeScheduleStore{rows: make(map[string]*fakeRow), claimTimeout: 60 * time.Second}
	now := time.Now()
	for i := 0; i < n; i++ {
		id := sortableID(i)
		s.rows[id] = &fakeRow{id: id, nextCheckAt: now}
	}
	return s
}

func sortableID(i int) string {
	return fmt.Sprintf("%03d", i)
}

func (s *fakeScheduleStore) Claim(_ context.Context, workerID string, batchSize int) ([]*domain.ScheduleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var ids []string
	for id, r := range s.rows {
		if r.nextCheckAt.After(now) {
			continue
		}
		if r.claimedBy != "" && r.claimedAt.After(now.Add(-s.claimTimeout)) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > batchSize {
		ids = ids[:batchSize]
	}

	out := make([]*domain.ScheduleRow, 0, len(ids))
	for _, id := range ids {
		r := s.rows[id]
		r.claimedBy = workerID
		r.claimedAt = now
		out = append(out, &domain.ScheduleRow{ID: r.id, MonitorID: r.id, NextCheckAt: r.nextCheckAt})
	}
	return out, nil
}

func (s *fakeScheduleStore) Release(_ context.Context, rowID, workerID string, nextIntervalSeconds int, _ domain.Status, _ *float64, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[rowID]
	if !ok || (r.claimedBy != workerID && r.claimedBy != "") {
		return nil
	}
	r.claimedBy = ""
	r.nextCheckAt = time.Now().Add(time.Duration(nextIntervalSeconds) * time.Second * 1000) // push far into the future once done
	return nil
}

func (s *fakeScheduleStore) ScheduleRetry(context.Context, string, string, int) error           { return nil }
func (s *fakeScheduleStore) ReleaseStale(context.Context, time.Duration) (int, error)            { return 0, nil }
func (s *fakeScheduleStore) Activate(context.Context, string, int) error                         { return nil }
func (s *fakeScheduleStore) Deactivate(context.Context, string) error                             { return nil }
func (s *fakeScheduleStore) Delete(context.Context, string) error                                 { return nil }
func (s *fakeScheduleStore) Stats(context.Context, string) (domain.ScheduleStats, error)           { return domain.ScheduleStats{}, nil }
func (s *fakeScheduleStore) SyncAllMonitors(context.Context, []*domain.Monitor) error              { return nil }
func (s *fakeScheduleStore) Initialize(context.Context, string, string, int, bool) error           { return nil }

// TestClaimExclusiveOwnership is the S4 scenario: 100 due rows, 5 competing
// workers claiming concurrently in batches of 10, run until all rows are
// claimed at least once; assert no row is ever observed claimed by two
// workers simultaneously and every row is processed exactly once per pass.
func TestClaimExclusiveOwnership(t *testing.T) {
	const rowCount = 100
	const workers = 5
	const batchSize = 10

	store := newFakeScheduleStore(rowCount)

	var mu sync.Mutex
	processedBy := make(map[string]string)
	var totalProcessed int

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		workerID := sortableID(w) + "-worker"
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				rows, err := store.Claim(context.Background(), workerID, batchSize)
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if len(rows) == 0 {
					return
				}
				for _, row := range rows {
					mu.Lock()
					if existing, ok := processedBy[row.ID]; ok {
						t.Errorf("row %s processed by both %s and %s", row.ID, existing, workerID)
					} else {
						processedBy[row.ID] = workerID
						totalProcessed++
					}
					mu.Unlock()

					_ = store.Release(context.Background(), row.ID, workerID, 60, domain.StatusUp, nil, false)
				}
			}
		}(workerID)
	}
	wg.Wait()

	if totalProcessed != rowCount {
		t.Fatalf("expected %d rows processed exactly once, got %d", rowCount, totalProcessed)
	}
}
