// Package accountant samples container CPU usage across an experiment run
// and consolidates two reads into a resource-expenditure delta. Ported
// from original_source/oxn/pricing.py's Accountant, dropping its
// psutil-based oxn-process self-accounting (spec.md scopes oxn's report to
// the system under experiment, not the controller process itself) and its
// pytz/dateutil usage in favor of stdlib time.
package accountant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nymphbox/oxn/internal/container"
)

// Sample is one container's stats read, matching read_container_stats's
// per-read value dict.
type Sample struct {
	ContainerName string
	ContainerID   string
	TotalCPUUsage float64 // seconds
	NumberOfCPUs  int
	Timestamp     time.Time
}

// Consolidated is the delta between a container's first and second reads,
// matching Accountant.consolidate's output shape.
type Consolidated struct {
	ContainerName string
	TotalCPUUsage float64
	NumberOfCPUs  int
}

// Accountant samples docker stats for a fixed set of containers across an
// experiment run, matching Accountant's constructor-provided
// container_names filter.
type Accountant struct {
	docker         *container.Client
	containerNames []string
	data           map[string][]Sample
	consolidated   map[string]Consolidated
}

// New builds an Accountant that will only read stats for containerNames,
// matching the original's container_names filter in read_all_containers.
func New(docker *container.Client, containerNames []string) *Accountant {
	return &Accountant{
		docker:         docker,
		containerNames: containerNames,
		data:           make(map[string][]Sample),
		consolidated:   make(map[string]Consolidated),
	}
}

// totalCPUUsage converts nanoseconds to seconds, matching total_cpu_usage.
func totalCPUUsage(nanos int64) float64 { return float64(nanos) / 1e9 }

// ReadAll takes one stats snapshot of every tracked container, matching
// read_all_containers.
func (a *Accountant) ReadAll(ctx context.Context) error {
	for _, name := range a.containerNames {
		stats, err := a.docker.StatsOnce(ctx, name)
		if err != nil {
			return fmt.Errorf("accountant: read %s: %w", name, err)
		}
		a.data[name] = append(a.data[name], Sample{
			ContainerName: name,
			ContainerID:   name,
			TotalCPUUsage: totalCPUUsage(stats.CPUUsageNanos),
			NumberOfCPUs:  stats.OnlineCPUs,
			Timestamp:     stats.Read,
		})
	}
	return nil
}

// Consolidate computes the experiment's resource expenditure from exactly
// two reads per container, matching Accountant.consolidate — containers
// with any other read count are skipped and logged by the caller, just as
// the original logs "Could not read twice from docker stats" and moves on.
func (a *Accountant) Consolidate() (skipped []string) {
	a.consolidated = make(map[string]Consolidated)
	for name, samples := range a.data {
		if len(samples) != 2 {
			skipped = append(skipped, name)
			continue
		}
		first, second := samples[0], samples[1]
		a.consolidated[name] = Consolidated{
			ContainerName: first.ContainerName,
			TotalCPUUsage: second.TotalCPUUsage - first.TotalCPUUsage,
			NumberOfCPUs:  first.NumberOfCPUs,
		}
	}
	sort.Strings(skipped)
	return skipped
}

// ConsolidatedData returns the per-container deltas computed by the last
// Consolidate call, matching consolidated_data.
func (a *Accountant) ConsolidatedData() map[string]Consolidated { return a.consolidated }

// Clear resets all collected samples, matching Accountant.clear.
func (a *Accountant) Clear() {
	a.data = make(map[string][]Sample)
	a.consolidated = make(map[string]Consolidated)
}
