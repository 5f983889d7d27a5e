// Package docker implements domain.SandboxDriver on top of the Docker
// Engine API, the same dependency the broader goxec lineage uses to run
// submitted code. Every container gets the hardening defaults: network
// disabled, auto-remove on exit, non-privileged, no-new-privileges.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/dontdude/execagent/internal/domain"
)

// Driver wraps the official Docker SDK client.
type Driver struct {
	cli *client.Client
}

var _ domain.SandboxDriver = (*Driver)(nil)

// New initialises and verifies a Docker client. It performs a Ping on
// construction and fails fast if the daemon is unreachable: the agent
// has no useful degraded mode without a container runtime.
func New() (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("connect to docker daemon: %w", err)
	}
	return &Driver{cli: cli}, nil
}

// Client exposes the underlying Docker SDK client so the telemetry probe
// can reuse the same connection for stats sampling.
func (d *Driver) Client() *client.Client { return d.cli }

type handle struct{ id string }

func (h handle) ID() string { return h.id }

// Create pulls spec.Image on every call, without first checking for a
// local copy, and creates (but does not start) a container bind-mounting
// spec.WorkspaceDir read-write at /code. A failed pull fails Create.
func (d *Driver) Create(ctx context.Context, spec domain.ContainerSpec) (domain.Container, error) {
	reader, err := d.cli.ImagePull(ctx, spec.Image, image.PullOptions{})
	if err != nil {
		return nil, domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("pull image %s: %w", spec.Image, err))
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	hostConfig := &container.HostConfig{
		Binds:       []string{spec.WorkspaceDir + ":/code"},
		NetworkMode: "none",
		AutoRemove:  true,
		Privileged:  false,
		SecurityOpt: []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:   spec.MemoryLimitMiB * 1024 * 1024,
			NanoCPUs: int64(spec.CPULimitCores * 1e9),
		},
	}

	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Argv,
		WorkingDir: "/code",
		Tty:        false,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return nil, domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("create container: %w", err))
	}

	return handle{id: resp.ID}, nil
}

// Run starts c and returns a follow-stream of combined stdout+stderr
// along with a Waiter for its exit status.
func (d *Driver) Run(ctx context.Context, c domain.Container) (io.ReadCloser, domain.Waiter, error) {
	id := c.ID()

	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, nil, domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("start container: %w", err))
	}

	logs, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, nil, domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("attach logs: %w", err))
	}

	waitCh, errCh := d.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	wait := func(ctx context.Context) (int, error) {
		select {
		case res := <-waitCh:
			if res.Error != nil {
				return -1, fmt.Errorf("container wait: %s", res.Error.Message)
			}
			return int(res.StatusCode), nil
		case err := <-errCh:
			return -1, fmt.Errorf("container wait: %w", err)
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}

	return logs, wait, nil
}

// Dispose stops then removes c, each best-effort.
func (d *Driver) Dispose(ctx context.Context, c domain.Container) {
	id := c.ID()

	timeout := 2
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		slog.Debug("dispose: stop failed", "containerID", id, "error", err)
	}
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		slog.Debug("dispose: remove failed", "containerID", id, "error", err)
	}
}
