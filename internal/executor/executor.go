// Package executor composes the workspace, sandbox, and result-parser
// components into the end-to-end run of one job, including the optional
// compile step and the wall-clock timeout.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dontdude/execagent/internal/domain"
	"github.com/dontdude/execagent/internal/resultparser"
	"github.com/dontdude/execagent/internal/workspace"
)

// compileLogTailBytes caps the buffered compile-container log kept for a
// CompileError report.
const compileLogTailBytes = 64 * 1024

// disposeTimeout bounds container teardown. It runs on its own context
// rather than the caller's, so a cancelled or already-expired run context
// can never starve cleanup of the container it was running.
const disposeTimeout = 5 * time.Second

func disposeContainer(driver domain.SandboxDriver, c domain.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()
	driver.Dispose(ctx, c)
}

// tailWriter retains only the most recent n bytes written to it, so a
// CompileError report carries the end of a log rather than its start.
type tailWriter struct {
	buf []byte
	n   int
}

func newTailWriter(n int) *tailWriter {
	return &tailWriter{buf: make([]byte, 0, n), n: n}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.n {
		w.buf = w.buf[len(w.buf)-w.n:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return string(w.buf)
}

// Executor runs jobs against a SandboxDriver and a workspace root.
type Executor struct {
	registry domain.LanguageRegistry
	driver   domain.SandboxDriver
	workDir  string
}

func New(registry domain.LanguageRegistry, driver domain.SandboxDriver, workDir string) *Executor {
	return &Executor{registry: registry, driver: driver, workDir: workDir}
}

// Execute runs job to completion or fails with a *domain.ExecutionError.
// It creates and destroys exactly one workspace and creates and disposes
// up to two containers, all released before Execute returns regardless
// of outcome.
func (e *Executor) Execute(ctx context.Context, job domain.Job) (domain.JobOutcome, error) {
	profile, ok := e.registry.Lookup(job.Language)
	if !ok {
		return domain.JobOutcome{}, domain.NewExecutionError(
			domain.KindUnsupportedLanguage,
			fmt.Sprintf("Unsupported language: %s", job.Language),
			nil,
		)
	}

	dir, err := workspace.Create(e.workDir, job, profile)
	if err != nil {
		return domain.JobOutcome{}, err
	}
	defer workspace.Destroy(dir)

	if len(profile.CompileArgv) > 0 {
		if err := e.compile(ctx, profile, dir); err != nil {
			return domain.JobOutcome{}, err
		}
	}

	return e.run(ctx, profile, dir)
}

func (e *Executor) compile(ctx context.Context, profile domain.LanguageProfile, dir string) error {
	spec := domain.ContainerSpec{
		Image:          profile.Image,
		WorkspaceDir:   dir,
		Argv:           append(append([]string{}, profile.CompileArgv...), profile.SolutionFilename, profile.TestFilename),
		MemoryLimitMiB: profile.MemoryLimitMiB,
		CPULimitCores:  profile.CPULimitCores,
	}

	c, err := e.driver.Create(ctx, spec)
	if err != nil {
		return err
	}
	defer disposeContainer(e.driver, c)

	logs, wait, err := e.driver.Run(ctx, c)
	if err != nil {
		return err
	}
	defer logs.Close()

	tail := newTailWriter(compileLogTailBytes)
	_, _ = io.Copy(tail, logs)

	exitCode, err := wait(ctx)
	if err != nil {
		return domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("await compile container: %w", err))
	}
	if exitCode != 0 {
		return domain.NewExecutionError(
			domain.KindCompileError,
			fmt.Sprintf("Compilation failed: %s", tail.String()),
			nil,
		)
	}
	return nil
}

func (e *Executor) run(ctx context.Context, profile domain.LanguageProfile, dir string) (domain.JobOutcome, error) {
	argv := append([]string{}, profile.RunArgv...)
	if fn := profile.RunFilename(); fn != "" {
		argv = append(argv, fn)
	}
	spec := domain.ContainerSpec{
		Image:          profile.Image,
		WorkspaceDir:   dir,
		Argv:           argv,
		MemoryLimitMiB: profile.MemoryLimitMiB,
		CPULimitCores:  profile.CPULimitCores,
	}

	c, err := e.driver.Create(ctx, spec)
	if err != nil {
		return domain.JobOutcome{}, err
	}
	defer disposeContainer(e.driver, c)

	logs, wait, err := e.driver.Run(ctx, c)
	if err != nil {
		return domain.JobOutcome{}, err
	}
	defer logs.Close()

	timeout := time.Duration(profile.TimeoutMillis) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parser := resultparser.New()
	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- pumpLogs(logs, parser)
	}()

	exitCode, waitErr := wait(runCtx)

	// The timer winning the race doesn't automatically mean timeout: a
	// harness that already streamed final_result before the container got
	// around to exiting has genuinely finished, it's just slow to shut
	// down. Only declare ExecutionTimeout when no summary landed yet.
	if runCtx.Err() != nil && waitErr != nil {
		if summary, ok := parser.Summary(); ok {
			return domain.NewJobOutcome(summary), nil
		}
		return domain.JobOutcome{}, domain.NewExecutionError(domain.KindExecutionTimeout, "Execution timeout", nil)
	}
	if waitErr != nil {
		return domain.JobOutcome{}, domain.NewExecutionError(domain.KindSandboxError, "", fmt.Errorf("await run container: %w", waitErr))
	}

	<-pumpDone
	parser.Close()

	if exitCode != 0 {
		return domain.JobOutcome{}, domain.NewExecutionError(
			domain.KindContainerExit,
			fmt.Sprintf("Container exited with code %d", exitCode),
			nil,
		)
	}

	summary, ok := parser.Summary()
	if !ok {
		return domain.JobOutcome{}, domain.NewExecutionError(domain.KindNoResult, "No test results received", nil)
	}

	return domain.NewJobOutcome(summary), nil
}

func pumpLogs(r io.Reader, p *resultparser.Parser) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			slog.Debug("log pump ended", "error", err)
			return nil
		}
	}
}
