// Package health serves the worker's local HTTP surface: liveness,
// readiness, a status dump, and a text metrics view for orchestrator
// probes that can't scrape Prometheus directly.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// Checker serves /health, /ready, /status, /metrics for one worker process.
// It takes a snapshot thunk rather than a concrete worker type so this
// package never imports worker.
type Checker struct {
	startedAt time.Time
	snapshot  func() any
}

func NewChecker(snapshot func() any) *Checker {
	return &Checker{startedAt: time.Now(), snapshot: snapshot}
}

func (c *Checker) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/ready", c.handleReady)
	mux.HandleFunc("/status", c.handleStatus)
	mux.HandleFunc("/metrics", c.handleMetrics)
	return mux
}

func (c *Checker) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (c *Checker) handleReady(w http.ResponseWriter, _ *http.Request) {
	running, shuttingDown := c.readinessValues()
	if running && !shuttingDown {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (c *Checker) readinessValues() (running, shuttingDown bool) {
	data, err := json.Marshal(c.snapshot())
	if err != nil {
		return false, true
	}
	var fields struct {
		Running      bool `json:"running"`
		ShuttingDown bool `json:"shuttingDown"`
	}
	_ = json.Unmarshal(data, &fields)
	return fields.Running, fields.ShuttingDown
}

func (c *Checker) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := map[string]any{
		"worker":        c.snapshot(),
		"uptimeSeconds": time.Since(c.startedAt).Seconds(),
		"memAllocBytes": mem.Alloc,
		"goroutines":    runtime.NumGoroutine(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (c *Checker) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	running, shuttingDown := c.readinessValues()
	data, _ := json.Marshal(c.snapshot())
	var fields struct {
		InFlight        int64 `json:"inFlight"`
		ChecksProcessed int64 `json:"checksProcessed"`
		PubsubAvailable bool  `json:"pubsubAvailable"`
	}
	_ = json.Unmarshal(data, &fields)

	runningVal, pubsubVal := 0, 0
	if running && !shuttingDown {
		runningVal = 1
	}
	if fields.PubsubAvailable {
		pubsubVal = 1
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "running %d\n", runningVal)
	fmt.Fprintf(w, "checks_processed %d\n", fields.ChecksProcessed)
	fmt.Fprintf(w, "in_flight %d\n", fields.InFlight)
	fmt.Fprintf(w, "pubsub_available %d\n", pubsubVal)
}
