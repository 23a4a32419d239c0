package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"condense/internal/chunk"
	"condense/internal/config"
	"condense/internal/inference"
	"condense/internal/services/backend"
)

// BackendCheckTimeout bounds the backend reachability probe.
const BackendCheckTimeout = 10 * time.Second

// CheckBackend verifies that the generate backend answers its health endpoint.
// It uses a single attempt (no retries).
func CheckBackend(ctx context.Context, cfg config.BackendConfig) Result {
	name := fmt.Sprintf("Backend (%s)", cfg.Kind)
	if cfg.URL == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, BackendCheckTimeout)
	defer cancel()

	client, err := backend.NewClient(backend.Config{
		Kind:    cfg.Kind,
		BaseURL: cfg.URL,
		Model:   cfg.Model,
		Timeout: BackendCheckTimeout,
	}, backend.WithRetryMaxAttempts(1))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.URL)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckParamsFile verifies that a sampling parameter file parses.
func CheckParamsFile(path string) Result {
	const name = "Sampling params"
	params, err := inference.LoadParams(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d keys)", path, len(params))}
}

// CheckChunkConfig verifies that a header/footer file parses.
func CheckChunkConfig(name, path string) Result {
	if _, err := chunk.LoadConfig(path); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// summarizeBackendError produces a human-readable summary for health check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("health check returned HTTP %d", statusErr.StatusCode)
	}
	return err.Error()
}
