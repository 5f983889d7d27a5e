package domain

import (
	"context"
	"io"
)

// ContainerSpec describes the container to create, independent of the
// runtime driver that actually creates it.
type ContainerSpec struct {
	Image          string
	WorkspaceDir   string
	Argv           []string
	MemoryLimitMiB int64
	CPULimitCores  float64
}

// Container is an opaque handle to a created container instance, owned
// by exactly one job.
type Container interface {
	ID() string
}

// Waiter is returned by SandboxDriver.Run; calling it blocks until the
// container exits and returns its exit code.
type Waiter func(ctx context.Context) (exitCode int, err error)

// SandboxDriver creates, starts, streams logs from, and tears down
// containers with the hardening defaults (network disabled, auto-remove,
// non-privileged, no-new-privileges) applied uniformly.
type SandboxDriver interface {
	// Create builds (but does not start) a container for spec, pulling
	// the image first if necessary.
	Create(ctx context.Context, spec ContainerSpec) (Container, error)

	// Run starts c and returns a follow-stream of its combined
	// stdout+stderr plus a Waiter for its exit status.
	Run(ctx context.Context, c Container) (logs io.ReadCloser, wait Waiter, err error)

	// Dispose stops then removes c, best-effort, swallowing errors.
	Dispose(ctx context.Context, c Container)
}
