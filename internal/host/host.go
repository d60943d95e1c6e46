// Package host is everything a probe needs from the machine it runs on:
// environment, secure credential storage, JSON state files, HTTP and a clock.
// Probes only see these interfaces, so tests can swap in fakes.
package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/tnunamak/usagemeter/internal/api"
)

// Env reads environment variables. Get may fail on sandboxed hosts; callers
// treat a failure like an unset variable.
type Env interface {
	Get(name string) (string, error)
}

// SecretStore is an OS-level secure credential store.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// Files reads and writes small JSON state files.
type Files interface {
	Exists(path string) bool
	ReadJSON(path string, v any) error
	WriteJSON(path string, v any) error
}

// HTTP performs requests and only errors on transport failures.
type HTTP interface {
	Do(ctx context.Context, r api.Request) (api.Response, error)
}

type Clock interface {
	Now() time.Time
}

// Context is handed to every probe.
type Context struct {
	Env     Env
	Secrets SecretStore
	Files   Files
	HTTP    HTTP
	Clock   Clock
	// DataDir is the provider's private state directory.
	DataDir string
	Logger  *slog.Logger
}

// WithProvider returns a copy scoped to one provider: its own data directory
// and a logger tagged with the provider id.
func (c *Context) WithProvider(id, dataDir string) *Context {
	cp := *c
	cp.DataDir = dataDir
	cp.Logger = c.Log().With("provider", id)
	return &cp
}

// Log returns the context logger, falling back to slog.Default.
func (c *Context) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Now returns the clock time, or time.Now when no clock is set.
func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
