// Package agent implements the top-level coordinator: it owns the
// agent's identity, holds the Link, dispatches inbound task messages to
// the JobExecutor, and publishes telemetry around each job.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dontdude/execagent/internal/domain"
	"github.com/dontdude/execagent/internal/link"
	"github.com/dontdude/execagent/internal/worker"
)

// Executor is the subset of executor.Executor the Agent depends on.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) (domain.JobOutcome, error)
}

// Link is the subset of link.Link the Agent depends on.
type Link interface {
	Inbound() <-chan domain.InboundMessage
	Events() <-chan link.Event
	Send(payload any)
}

// Agent coordinates the Link, the JobExecutor, and telemetry sampling.
// Jobs share no mutable state; each inbound task gets its own goroutine
// so the Agent stays responsive to new link frames, but actual execution
// is submitted to a bounded worker pool so a bursty dispatcher cannot
// oversubscribe the host with container fan-out.
type Agent struct {
	id       string
	link     Link
	probe    domain.TelemetryProbe
	registry domain.LanguageRegistry
	pool     *worker.Pool
}

// NewID generates a stable, opaque agent identity: a random 128-bit
// value in its textual form. Callers that need the identity before the
// Link exists (the Link tags every outbound frame with it) should
// generate it with NewID and pass it to New.
func NewID() string { return uuid.New().String() }

// New constructs an Agent with the given identity.
func New(id string, l Link, exec Executor, probe domain.TelemetryProbe, registry domain.LanguageRegistry, maxConcurrentJobs int) *Agent {
	return &Agent{
		id:       id,
		link:     l,
		probe:    probe,
		registry: registry,
		pool:     worker.NewPool(maxConcurrentJobs, exec),
	}
}

// ID returns the agent's stable identity for this process lifetime.
func (a *Agent) ID() string { return a.id }

// Run processes Link events and inbound messages until ctx is cancelled.
// It returns once ctx is done and every job it accepted has finished.
func (a *Agent) Run(ctx context.Context) {
	a.pool.Start()

	var inFlight int
	done := make(chan struct{})

	for {
		select {
		case <-ctx.Done():
			for i := 0; i < inFlight; i++ {
				<-done
			}
			a.pool.Stop()
			return

		case ev := <-a.link.Events():
			switch ev.Kind {
			case link.EventConnected:
				a.onConnected(ctx)
			case link.EventDisconnected:
				slog.Info("agent: link disconnected, in-flight jobs continue")
			}

		case msg := <-a.link.Inbound():
			if msg.Type != domain.InboundTask || msg.Task == nil {
				slog.Debug("agent: ignoring unknown inbound message", "type", msg.Type)
				continue
			}
			job := *msg.Task
			inFlight++
			go func() {
				defer func() { done <- struct{}{} }()
				a.handleTask(ctx, job)
			}()
		}
	}
}

func (a *Agent) onConnected(ctx context.Context) {
	snap, err := a.probe.Sample(ctx)
	if err != nil {
		slog.Warn("agent: telemetry sample failed at connect, skipping register snapshot", "error", err)
		snap = domain.Telemetry{}
	}
	a.link.Send(domain.RegisterMessage{
		Type: domain.OutboundRegister,
		Resources: domain.ResourceTotals{
			CPU:    int(snap.CPU.Total),
			Memory: int(snap.Memory.Total),
		},
	})
}

// handleTask runs exactly one job end to end, emitting the
// resourceUpdate-before / terminal / resourceUpdate-after sequence for
// that job's taskId, in that order. Overlapping jobs are independent:
// there is no ordering guarantee between different jobs' messages. The
// actual run is submitted to the worker pool, which caps how many
// containers run at once; this goroutine just waits for its own result.
func (a *Agent) handleTask(ctx context.Context, job domain.Job) {
	profile, _ := a.registry.Lookup(job.Language)
	a.publishResourceUpdate(ctx, &profile)

	resultCh := make(chan worker.Result, 1)
	start := time.Now()
	a.pool.Submit(worker.Task{Job: job, ResultCh: resultCh})
	result := <-resultCh
	elapsed := float64(time.Since(start).Milliseconds())

	if result.Err != nil {
		a.reportFailure(ctx, job, result.Err)
	} else {
		a.reportSuccess(ctx, job, profile, result.Outcome, elapsed)
	}

	a.publishResourceUpdate(ctx, nil)
}

func (a *Agent) reportSuccess(ctx context.Context, job domain.Job, profile domain.LanguageProfile, outcome domain.JobOutcome, elapsedMillis float64) {
	snap := a.sampleOrEmpty(ctx)
	a.link.Send(domain.TaskCompleteMessage{
		Type:   domain.OutboundTaskComplete,
		TaskID: job.ID,
		Result: outcome,
		Metrics: domain.TaskMetrics{
			ExecutionTime: elapsedMillis,
			Language:      job.Language,
			Resources:     snap,
			LangConfig: domain.LangConfigInfo{
				CPULimit:      profile.CPULimitCores,
				MemoryLimit:   profile.MemoryLimitMiB,
				Timeout:       profile.TimeoutMillis,
				Image:         profile.Image,
				FileExtension: profile.FileExtension,
				RunCommand:    joinArgv(profile.RunArgv),
			},
		},
	})
}

func (a *Agent) reportFailure(ctx context.Context, job domain.Job, err error) {
	snap := a.sampleOrEmpty(ctx)
	a.link.Send(domain.TaskErrorMessage{
		Type:      domain.OutboundTaskError,
		TaskID:    job.ID,
		Error:     err.Error(),
		Language:  job.Language,
		Resources: snap,
	})
}

// publishResourceUpdate samples telemetry and emits a resourceUpdate. If
// profile is non-nil this is the pre-job admission signal: used is
// optimistically bumped by the job's configured limits rather than
// measured, per the dispatcher's admission-control contract.
func (a *Agent) publishResourceUpdate(ctx context.Context, profile *domain.LanguageProfile) {
	snap, err := a.probe.Sample(ctx)
	if err != nil {
		slog.Warn("agent: telemetry sample failed, skipping resourceUpdate", "error", err)
		return
	}
	if profile != nil {
		snap.CPU.Used += profile.CPULimitCores
		snap.Memory.Used += float64(profile.MemoryLimitMiB)
	}
	a.link.Send(domain.ResourceUpdateMessage{Type: domain.OutboundResourceUpdate, Metrics: snap})
}

func (a *Agent) sampleOrEmpty(ctx context.Context) domain.Telemetry {
	snap, err := a.probe.Sample(ctx)
	if err != nil {
		slog.Warn("agent: telemetry sample failed", "error", err)
		return domain.Telemetry{}
	}
	return snap
}

func joinArgv(argv []string) string {
	return strings.Join(argv, " ")
}
