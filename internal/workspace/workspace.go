// Package workspace creates and destroys the hermetic per-job
// directories that hold a job's solution and test-harness files.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dontdude/execagent/internal/domain"
)

const testCasesToken = "{{TEST_CASES}}"

// dirPattern matches the <timestamp>-<random> naming convention used by
// Create, so Sweep can distinguish job directories from anything else an
// operator might have dropped under the workspace root.
var dirPattern = regexp.MustCompile(`^\d+-[0-9a-f]{8}$`)

// Create allocates a process-unique directory under root and writes the
// solution and test files demanded by profile. Directory naming combines
// a high-resolution timestamp with a random suffix so collisions on one
// host are astronomically unlikely.
func Create(root string, job domain.Job, profile domain.LanguageProfile) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", domain.NewExecutionError(domain.KindWorkspaceError, "", fmt.Errorf("create workspace root: %w", err))
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", domain.NewExecutionError(domain.KindWorkspaceError, "", fmt.Errorf("create workspace dir: %w", err))
	}

	solutionPath := filepath.Join(dir, profile.SolutionFilename)
	if err := os.WriteFile(solutionPath, []byte(job.Code), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", domain.NewExecutionError(domain.KindWorkspaceError, "", fmt.Errorf("write solution file: %w", err))
	}

	testContent := strings.Replace(profile.HarnessTemplate, testCasesToken, string(job.TestCases), 1)
	testPath := filepath.Join(dir, profile.TestFilename)
	if err := os.WriteFile(testPath, []byte(testContent), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", domain.NewExecutionError(domain.KindWorkspaceError, "", fmt.Errorf("write test file: %w", err))
	}

	return dir, nil
}

// Destroy recursively removes dir. It must succeed even when the
// container left read-only or root-owned files behind; failure is logged
// and swallowed, never propagated.
func Destroy(dir string) {
	relaxPermissions(dir)
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to destroy workspace", "dir", dir, "error", err)
	}
}

// relaxPermissions best-effort chmods everything under dir so RemoveAll
// does not trip over read-only files left by the sandboxed process.
func relaxPermissions(dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		mode := os.FileMode(0o644)
		if info.IsDir() {
			mode = 0o755
		}
		_ = os.Chmod(path, mode)
		return nil
	})
}

// Sweep removes stale per-job directories left under root by a previous
// crash. It is invoked once at process start, before any job runs, so it
// is safe to remove every directory matching the naming convention.
func Sweep(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("workspace sweep: failed to read root", "root", root, "error", err)
		}
		return
	}

	var removed int
	for _, e := range entries {
		if !e.IsDir() || !dirPattern.MatchString(e.Name()) {
			continue
		}
		Destroy(filepath.Join(root, e.Name()))
		removed++
	}
	if removed > 0 {
		slog.Info("workspace sweep removed stale directories", "root", root, "count", removed)
	}
}
