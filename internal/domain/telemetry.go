package domain

import "context"

// ResourceUsage is a total/used pair, used for both the cpu and memory
// halves of a Telemetry snapshot. CPU is measured in cores, memory in
// MiB.
type ResourceUsage struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
}

// Telemetry is one sample of host/container aggregate resource
// utilisation, as reported in register and resourceUpdate messages.
type Telemetry struct {
	CPU    ResourceUsage `json:"cpu"`
	Memory ResourceUsage `json:"memory"`
}

// TelemetryProbe samples aggregate CPU and memory utilisation across all
// running containers on the host.
type TelemetryProbe interface {
	Sample(ctx context.Context) (Telemetry, error)
}
