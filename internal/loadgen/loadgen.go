// Package loadgen drives synthetic HTTP load against the system under
// experiment. Ported from original_source/oxn/loadgen.py's LoadGenerator,
// which wraps locust's FastHttpUser/LoadTestShape; no Go load-testing
// library (vegeta, ghz, k6) is evidenced anywhere in the example pack, so
// the driver is built directly over net/http + goroutines, wrapped with
// internal/httpretry for the same fixed-backoff policy family the backend
// clients already use.
package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/httpretry"
	"github.com/nymphbox/oxn/internal/oxnerr"
	"github.com/nymphbox/oxn/internal/spec"
)

// Task is one configured request the Generator can issue, mirroring
// LocustTask.
type Task struct {
	Name     string
	Endpoint string
	Verb     string
	Weight   int
	Params   map[string]interface{}
}

// entryStats accumulates per-endpoint response-time statistics, mirroring
// locust.stats.StatsEntry's fields consumed by report.py's add_loadgen_data.
type entryStats struct {
	mu                sync.Mutex
	Name              string
	Verb              string
	NumRequests       int
	NumFailures       int
	TotalResponseTime time.Duration
	MinResponseTime   time.Duration
	MaxResponseTime   time.Duration
	responseTimes     []time.Duration
}

func (e *entryStats) record(d time.Duration, failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NumRequests++
	if failed {
		e.NumFailures++
		return
	}
	e.TotalResponseTime += d
	e.responseTimes = append(e.responseTimes, d)
	if e.MinResponseTime == 0 || d < e.MinResponseTime {
		e.MinResponseTime = d
	}
	if d > e.MaxResponseTime {
		e.MaxResponseTime = d
	}
}

func (e *entryStats) median() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.responseTimes) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), e.responseTimes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// EntrySummary is the exported snapshot of one task's accumulated stats,
// matching the fields add_loadgen_data reads off each
// locust.stats.StatsEntry.
type EntrySummary struct {
	Name                string
	Verb                string
	NumRequests         int
	NumFailures         int
	FailRatio           float64
	SumResponseTime     time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	AvgResponseTime     time.Duration
	MedianResponseTime  time.Duration
}

// Stats is the Go equivalent of locust.stats.RequestStats, the shape
// report.py's add_loadgen_data reads from.
type Stats struct {
	StartTime            time.Time
	LastRequestTimestamp time.Time
	NumRequests          int
	NumFailures          int
	Entries              []EntrySummary
}

// Generator drives weighted HTTP requests against host, shaped either by a
// flat (users=1, spawn_rate=1) run or by a stage list, mirroring
// LoadGenerator.start/_shape_factory/_locust_factory_random.
type Generator struct {
	host       string
	tasks      []Task
	sequential bool
	stages     []spec.LoadgenStage
	runTime    time.Duration
	client     *httpretry.Client

	mu      sync.Mutex
	entries map[string]*entryStats
	start   time.Time
	last    time.Time
}

// New builds a Generator from an experiment's loadgen section, matching
// LoadGenerator._read_config.
func New(host string, cfg spec.LoadgenSpec) (*Generator, error) {
	runTimeSecs, err := clock.ParseSeconds(cfg.RunTime)
	if err != nil {
		return nil, oxnerr.New(oxnerr.LoadGen, fmt.Sprintf("invalid run_time: %v", err))
	}
	if len(cfg.Tasks) == 0 {
		return nil, oxnerr.New(oxnerr.LoadGen, "loadgen section has no tasks")
	}

	tasks := make([]Task, len(cfg.Tasks))
	entries := make(map[string]*entryStats, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		weight := t.Weight
		if weight <= 0 {
			weight = 1
		}
		tasks[i] = Task{Name: t.Name, Endpoint: t.Endpoint, Verb: t.Verb, Weight: weight, Params: t.Params}
		entries[t.Endpoint] = &entryStats{Name: t.Endpoint, Verb: t.Verb}
	}

	return &Generator{
		host:       host,
		tasks:      tasks,
		sequential: cfg.Sequential,
		stages:     cfg.Stages,
		runTime:    time.Duration(runTimeSecs * float64(time.Second)),
		client:     httpretry.New(&http.Client{Timeout: 10 * time.Second}, 100*time.Millisecond, 3),
		entries:    entries,
	}, nil
}

// currentStage returns the (users, spawnRate) active at elapsed, matching
// CustomLoadTestShape.tick's "first stage whose cumulative duration exceeds
// run_time" scan.
func currentStage(stages []spec.LoadgenStage, elapsed time.Duration) (users, spawnRate int, ok bool) {
	elapsedSecs := elapsed.Seconds()
	for _, s := range stages {
		if elapsedSecs < float64(s.Duration) {
			return s.Users, s.SpawnRate, true
		}
	}
	return 0, 0, false
}

// Run drives load for the configured run_time, spawning workers per the
// stage shape (or a single worker if no stages are configured), matching
// LoadGenerator.start's runner.start/start_shape plus the
// gevent.spawn_later(self.run_time, quit) deadline.
func (g *Generator) Run(ctx context.Context) Stats {
	g.start = time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.runTime)
	defer cancel()

	var wg sync.WaitGroup
	spawned := 0
	targetUsers := 1
	if len(g.stages) == 0 {
		g.spawnWorker(ctx, &wg)
		spawned = 1
	} else {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
	loop:
		for {
			users, _, ok := currentStage(g.stages, time.Since(g.start))
			if ok {
				targetUsers = users
			}
			for spawned < targetUsers {
				g.spawnWorker(ctx, &wg)
				spawned++
			}
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
			}
		}
	}

	wg.Wait()
	return g.snapshot()
}

// spawnWorker launches one goroutine that issues tasks continuously
// (sequentially if g.sequential, else weighted-random) until ctx is done,
// mirroring one locust "user" greenlet.
func (g *Generator) spawnWorker(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		idx := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var task Task
			if g.sequential {
				task = g.tasks[idx%len(g.tasks)]
				idx++
			} else {
				task = g.pickWeighted()
			}
			g.execute(ctx, task)
		}
	}()
}

func (g *Generator) pickWeighted() Task {
	total := 0
	for _, t := range g.tasks {
		total += t.Weight
	}
	r := rand.Intn(total)
	for _, t := range g.tasks {
		if r < t.Weight {
			return t
		}
		r -= t.Weight
	}
	return g.tasks[len(g.tasks)-1]
}

func (g *Generator) execute(ctx context.Context, task Task) {
	url := g.host + task.Endpoint
	var body *bytes.Reader
	if task.Params != nil {
		payload, _ := json.Marshal(task.Params)
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	var req *http.Request
	var err error
	switch task.Verb {
	case "post":
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}

	started := time.Now()
	failed := err != nil
	if err == nil {
		resp, doErr := g.client.Do(req)
		failed = doErr != nil
		if doErr == nil {
			resp.Body.Close()
			failed = resp.StatusCode >= 400
		}
	}
	elapsed := time.Since(started)

	g.mu.Lock()
	g.last = time.Now()
	g.mu.Unlock()

	g.entries[task.Endpoint].record(elapsed, failed)
}

func (g *Generator) snapshot() Stats {
	stats := Stats{StartTime: g.start, LastRequestTimestamp: g.last}
	names := make([]string, 0, len(g.entries))
	for name := range g.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := g.entries[name]
		e.mu.Lock()
		n, fail := e.NumRequests, e.NumFailures
		sum, min, max := e.TotalResponseTime, e.MinResponseTime, e.MaxResponseTime
		e.mu.Unlock()

		var avg time.Duration
		succeeded := n - fail
		if succeeded > 0 {
			avg = sum / time.Duration(succeeded)
		}
		var failRatio float64
		if n > 0 {
			failRatio = float64(fail) / float64(n)
		}

		stats.Entries = append(stats.Entries, EntrySummary{
			Name:               name,
			Verb:               e.Verb,
			NumRequests:        n,
			NumFailures:        fail,
			FailRatio:          failRatio,
			SumResponseTime:    sum,
			MinResponseTime:    min,
			MaxResponseTime:    max,
			AvgResponseTime:    avg,
			MedianResponseTime: e.median(),
		})
		stats.NumRequests += n
		stats.NumFailures += fail
	}
	return stats
}
