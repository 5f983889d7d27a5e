package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dontdude/execagent/internal/domain"
)

// Sample and sampleOne talk straight to a live Docker daemon over the SDK
// client; exercising them end to end belongs to an integration suite with
// a real or container-mocked daemon, not this package's unit tests. What
// is unit-testable in isolation is the pure rounding helper and the
// interface assertion below.

func TestProbeImplementsTelemetryProbe(t *testing.T) {
	var _ domain.TelemetryProbe = (*Probe)(nil)
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.234, 1.23},
		{1.236, 1.24},
		{0.001, 0.0},
		{2, 2},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, round2(c.in), 0.001)
	}
}
