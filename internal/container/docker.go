// Package container wraps the Docker Engine API client for the container-
// level operations oxn's treatments need: exec-ing tc/stress-ng inside a
// target container, and pausing/killing/restarting services of the system
// under experiment. Adapted from the teacher's
// pkg/discovery/docker/client.go (ExecCommand's create/attach/read/
// inspect-exit-code sequence is kept verbatim) and
// pkg/injection/container/{pause,kill,restart}.go's action methods.
package container

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Client wraps the Docker Engine API for oxn's injection needs.
type Client struct {
	cli *client.Client
}

// New connects to the local Docker daemon using the environment's standard
// DOCKER_HOST/DOCKER_* variables, negotiating the API version.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("container: create docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// ExecCommand runs cmd inside containerID and returns its combined output,
// returning an error if the command exits non-zero. This is the mechanism
// NetworkDelayTreatment, PacketLossTreatment and StressTreatment use to run
// tc and stress-ng inside a target container without a sidecar.
func (c *Client) ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error) {
	execConfig := types.ExecConfig{Cmd: cmd, AttachStdout: true, AttachStderr: true}

	execID, err := c.cli.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return "", fmt.Errorf("container: create exec: %w", err)
	}

	resp, err := c.cli.ContainerExecAttach(ctx, execID.ID, types.ExecStartCheck{})
	if err != nil {
		return "", fmt.Errorf("container: attach exec: %w", err)
	}
	defer resp.Close()

	output, err := io.ReadAll(resp.Reader)
	if err != nil {
		return string(output), fmt.Errorf("container: read exec output: %w", err)
	}

	inspectResp, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return string(output), fmt.Errorf("container: inspect exec: %w", err)
	}
	if inspectResp.ExitCode != 0 {
		return string(output), fmt.Errorf("container: command exited %d: %s", inspectResp.ExitCode, string(output))
	}
	return string(output), nil
}

// Pause suspends all processes in containerID — PauseTreatment's inject.
func (c *Client) Pause(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerPause(ctx, containerID); err != nil {
		return fmt.Errorf("container: pause %s: %w", containerID, err)
	}
	return nil
}

// Unpause resumes a paused container — PauseTreatment's clean.
func (c *Client) Unpause(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerUnpause(ctx, containerID); err != nil {
		return fmt.Errorf("container: unpause %s: %w", containerID, err)
	}
	return nil
}

// Kill sends SIGKILL (or the given signal) to containerID's entrypoint —
// KillTreatment's inject.
func (c *Client) Kill(ctx context.Context, containerID, signal string) error {
	if signal == "" {
		signal = "SIGKILL"
	}
	if err := c.cli.ContainerKill(ctx, containerID, signal); err != nil {
		return fmt.Errorf("container: kill %s: %w", containerID, err)
	}
	return nil
}

// Restart starts containerID back up after Kill — KillTreatment's clean,
// matching the original's "docker-compose up" re-creation semantics at the
// single-container granularity Go's client exposes directly.
func (c *Client) Restart(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("container: restart %s: %w", containerID, err)
	}
	return nil
}

// Stop gracefully stops containerID — used by the tail-sampling treatment
// to stop the otel-collector before patching its config.
func (c *Client) Stop(ctx context.Context, containerID string, timeout *int) error {
	opts := container.StopOptions{}
	if timeout != nil {
		opts.Timeout = timeout
	}
	if err := c.cli.ContainerStop(ctx, containerID, opts); err != nil {
		return fmt.Errorf("container: stop %s: %w", containerID, err)
	}
	return nil
}

// Start starts a stopped container — the other half of Stop, used to bring
// the collector back up once its config has been patched.
func (c *Client) Start(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("container: start %s: %w", containerID, err)
	}
	return nil
}

// Running reports whether containerID is currently running.
func (c *Client) Running(ctx context.Context, containerID string) (bool, error) {
	info, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, fmt.Errorf("container: inspect %s: %w", containerID, err)
	}
	return info.State != nil && info.State.Running, nil
}

// Stats is the subset of the Docker Engine API's one-shot container stats
// response the Accountant needs, mirroring pricing.py's total_cpu_usage/
// number_of_cpus/timestamp helpers without pulling in the full upstream
// types.StatsJSON shape.
type Stats struct {
	CPUUsageNanos int64
	OnlineCPUs    int
	Read          time.Time
}

// StatsOnce takes a single non-streaming stats snapshot of containerID,
// the Go equivalent of container.stats(stream=False) used by
// Accountant.read_container_stats.
func (c *Client) StatsOnce(ctx context.Context, containerID string) (Stats, error) {
	resp, err := c.cli.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return Stats{}, fmt.Errorf("container: stats %s: %w", containerID, err)
	}
	defer resp.Body.Close()

	var raw types.StatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Stats{}, fmt.Errorf("container: decode stats %s: %w", containerID, err)
	}
	return Stats{
		CPUUsageNanos: int64(raw.CPUStats.CPUUsage.TotalUsage),
		OnlineCPUs:    int(raw.CPUStats.OnlineCPUs),
		Read:          raw.Read,
	}, nil
}
