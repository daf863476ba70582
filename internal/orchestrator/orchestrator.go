// Package orchestrator builds and tears down the system under experiment
// from its docker-compose description. Ported from
// original_source/oxn/orchestration.py's DockerComposeOrchestrator: the
// original drives docker-compose through python-on-whales and
// docker-py side by side; since neither exists in the example pack, oxn
// drives compose through the `docker compose` CLI via os/exec (the
// compose lifecycle actions: up/down) and keeps the teacher's own
// Docker Engine API client (internal/container) for everything
// container-state-level the CLI doesn't expose conveniently (polling
// individual container running state in Ready).
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/container"
	"github.com/nymphbox/oxn/internal/oxnerr"
)

// Orchestrator manages the lifecycle of a docker-compose-described system
// under experiment.
type Orchestrator struct {
	ComposePath string
	Exclude     []string
	Include     []string

	docker *container.Client

	dockerServiceNames  map[string]bool
	sueServiceNames     []string
	serviceContainerMap map[string]string
	containerServiceMap map[string]string
}

// New builds an Orchestrator for composePath, applying include/exclude
// filters, and validates the compose file exists and parses — the Go
// equivalent of _validate_sue plus _read_service_names/
// _build_sue_service_names, run eagerly at construction time.
func New(composePath string, exclude, include []string, docker *container.Client) (*Orchestrator, error) {
	acc := oxnerr.NewAccumulator(oxnerr.Orchestration)

	if _, err := os.Stat(composePath); err != nil {
		acc.Add("specified compose file does not exist: %s", composePath)
		return nil, acc.Err()
	}

	cf, err := loadComposeFile(composePath)
	if err != nil {
		acc.Add("specified compose file has invalid format: %v", err)
		return nil, acc.Err()
	}

	o := &Orchestrator{
		ComposePath:         composePath,
		Exclude:             exclude,
		Include:             include,
		docker:              docker,
		dockerServiceNames:  make(map[string]bool),
		serviceContainerMap: make(map[string]string),
		containerServiceMap: make(map[string]string),
	}

	for name, svc := range cf.Services {
		o.dockerServiceNames[name] = true
		containerName := svc.ContainerName
		if containerName == "" {
			containerName = name
		}
		o.serviceContainerMap[name] = containerName
		o.containerServiceMap[containerName] = name
	}

	for _, name := range include {
		if !o.dockerServiceNames[name] {
			acc.Add("included service %s does not exist in the compose file", name)
		}
	}
	for _, name := range exclude {
		if !o.dockerServiceNames[name] {
			acc.Add("excluded service %s does not exist in the compose file", name)
		}
	}
	if acc.HasErrors() {
		return nil, acc.Err()
	}

	o.sueServiceNames = o.buildSUEServiceNames()
	return o, nil
}

// buildSUEServiceNames applies the include/exclude set algebra exactly as
// _build_sue_service_names does: include∩exclude both present intersects
// then subtracts exclude; exclude alone subtracts; include alone
// intersects; neither returns every service.
func (o *Orchestrator) buildSUEServiceNames() []string {
	all := make(map[string]bool, len(o.dockerServiceNames))
	for k, v := range o.dockerServiceNames {
		all[k] = v
	}

	toSet := func(names []string) map[string]bool {
		s := make(map[string]bool, len(names))
		for _, n := range names {
			s[n] = true
		}
		return s
	}

	var result map[string]bool
	switch {
	case len(o.Include) > 0 && len(o.Exclude) > 0:
		inc := toSet(o.Include)
		exc := toSet(o.Exclude)
		result = make(map[string]bool)
		for name := range all {
			if inc[name] && !exc[name] {
				result[name] = true
			}
		}
	case len(o.Exclude) > 0:
		exc := toSet(o.Exclude)
		result = make(map[string]bool)
		for name := range all {
			if !exc[name] {
				result[name] = true
			}
		}
	case len(o.Include) > 0:
		inc := toSet(o.Include)
		result = make(map[string]bool)
		for name := range all {
			if inc[name] {
				result[name] = true
			}
		}
	default:
		result = all
	}

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	return names
}

// SUEServiceNames returns the effective set of services under experiment.
func (o *Orchestrator) SUEServiceNames() []string { return o.sueServiceNames }

// TranslateComposeNames maps compose service names to their container
// names, matching translate_compose_names.
func (o *Orchestrator) TranslateComposeNames(serviceNames []string) []string {
	out := make([]string, len(serviceNames))
	for i, name := range serviceNames {
		out[i] = o.serviceContainerMap[name]
	}
	return out
}

// TranslateContainerNames maps container names back to service names,
// matching translate_container_names.
func (o *Orchestrator) TranslateContainerNames(containerNames []string) []string {
	out := make([]string, len(containerNames))
	for i, name := range containerNames {
		out[i] = o.containerServiceMap[name]
	}
	return out
}

// Orchestrate brings the SUE services up in detached mode, matching
// DockerComposeOrchestrator.orchestrate.
func (o *Orchestrator) Orchestrate(ctx context.Context) error {
	args := append([]string{"compose", "-f", o.ComposePath, "up", "-d", "--quiet-pull"}, o.sueServiceNames...)
	return o.runCompose(ctx, args...)
}

// Ready blocks until every expectedServices container reports "running",
// or timeout elapses, matching the polling loop in
// DockerComposeOrchestrator.ready (1s poll interval, timeout in seconds).
// A nil expectedServices defaults to every compose service.
func (o *Orchestrator) Ready(ctx context.Context, expectedServices []string, timeout time.Duration) (bool, error) {
	if len(expectedServices) == 0 {
		for name := range o.dockerServiceNames {
			expectedServices = append(expectedServices, name)
		}
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	for _, serviceName := range expectedServices {
		containerName, ok := o.serviceContainerMap[serviceName]
		if !ok {
			return false, fmt.Errorf("orchestrator: unknown service %s", serviceName)
		}

		deadline := time.Now().Add(timeout)
		for {
			running, err := o.docker.Running(ctx, containerName)
			if err != nil {
				return false, fmt.Errorf("orchestrator: probe %s: %w", containerName, err)
			}
			if running {
				break
			}
			if time.Now().After(deadline) {
				return false, nil
			}
			if err := clock.InterruptibleSleep(ctx, time.Second); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// Teardown stops and removes the compose-managed containers, matching
// DockerComposeOrchestrator.teardown — including the OXN_WAIT env var
// pre-teardown delay the original honors.
func (o *Orchestrator) Teardown(ctx context.Context) error {
	if waitStr := os.Getenv("OXN_WAIT"); waitStr != "" {
		var waitSecs int
		if _, err := fmt.Sscanf(waitStr, "%d", &waitSecs); err == nil && waitSecs > 0 {
			if err := clock.InterruptibleSleep(ctx, time.Duration(waitSecs)*time.Second); err != nil {
				return err
			}
		}
	}
	return o.runCompose(ctx, "compose", "-f", o.ComposePath, "down", "--remove-orphans")
}

func (o *Orchestrator) runCompose(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("orchestrator: docker %v: %w: %s", args, err, stderr.String())
	}
	return nil
}
