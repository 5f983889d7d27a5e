// Package telemetry samples host and container aggregate CPU and memory
// utilisation from the Docker Engine API — the same client the sandbox
// driver uses, since "aggregate across all running containers on the
// host" is exactly what the Engine API's list/stats/info endpoints
// expose.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/dontdude/execagent/internal/domain"
)

// Probe implements domain.TelemetryProbe.
type Probe struct {
	cli *client.Client
}

var _ domain.TelemetryProbe = (*Probe)(nil)

func New(cli *client.Client) *Probe {
	return &Probe{cli: cli}
}

// dockerStats mirrors the subset of the "docker stats" JSON payload the
// CPU/memory formula needs. Decoded manually rather than via the SDK's
// stats struct so the probe is insulated from that type's churn across
// Engine API versions.
type dockerStats struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs  uint32 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
	} `json:"memory_stats"`
}

// Sample aggregates per-container CPU and memory usage across every
// running container on the host, per the formula:
//
//	cpuPercentCores = (cpuDelta / systemCpuDelta) * onlineCPUs
//
// and memory usage is the straight sum of each container's reported
// usage. Totals come from the daemon's host info.
func (p *Probe) Sample(ctx context.Context) (domain.Telemetry, error) {
	info, err := p.cli.Info(ctx)
	if err != nil {
		return domain.Telemetry{}, fmt.Errorf("docker info: %w", err)
	}

	containers, err := p.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return domain.Telemetry{}, fmt.Errorf("list containers: %w", err)
	}

	var usedCPU, usedMemBytes float64
	for _, c := range containers {
		stats, err := p.sampleOne(ctx, c.ID)
		if err != nil {
			// A container can exit between list and stats; skip it
			// rather than failing the whole sample.
			continue
		}
		usedCPU += stats.cpuCores
		usedMemBytes += stats.memBytes
	}

	return domain.Telemetry{
		CPU: domain.ResourceUsage{
			Total: round2(float64(info.NCPU)),
			Used:  round2(usedCPU),
		},
		Memory: domain.ResourceUsage{
			Total: math.Round(float64(info.MemTotal) / (1024 * 1024)),
			Used:  math.Round(usedMemBytes / (1024 * 1024)),
		},
	}, nil
}

type oneShotResult struct {
	cpuCores float64
	memBytes float64
}

func (p *Probe) sampleOne(ctx context.Context, containerID string) (oneShotResult, error) {
	resp, err := p.cli.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return oneShotResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return oneShotResult{}, err
	}

	var s dockerStats
	if err := json.Unmarshal(body, &s); err != nil {
		return oneShotResult{}, err
	}

	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)

	var cpuCores float64
	if systemDelta > 0 && cpuDelta > 0 {
		online := float64(s.CPUStats.OnlineCPUs)
		if online == 0 {
			online = 1
		}
		cpuCores = (cpuDelta / systemDelta) * online
	}

	return oneShotResult{
		cpuCores: cpuCores,
		memBytes: float64(s.MemoryStats.Usage),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
