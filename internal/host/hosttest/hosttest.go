// Package hosttest provides in-memory fakes of the host interfaces.
package hosttest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/host"
)

// Env is a map-backed host.Env. Names listed in Fail return an error.
type Env struct {
	Values map[string]string
	Fail   map[string]error
}

func (e *Env) Get(name string) (string, error) {
	if err, ok := e.Fail[name]; ok {
		return "", err
	}
	return e.Values[name], nil
}

// Secrets is an in-memory host.SecretStore.
type Secrets struct {
	mu      sync.Mutex
	entries map[string]string
	// GetErr, when set, is returned by every Get.
	GetErr  error
	Deleted []string
}

func NewSecrets() *Secrets {
	return &Secrets{entries: map[string]string{}}
}

func key(service, account string) string { return service + "\x00" + account }

func (s *Secrets) Get(service, account string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	v, ok := s.entries[key(service, account)]
	if !ok {
		return "", host.ErrSecretNotFound
	}
	return v, nil
}

func (s *Secrets) Set(service, account, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(service, account)] = value
	return nil
}

func (s *Secrets) Delete(service, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(service, account)
	s.Deleted = append(s.Deleted, service)
	if _, ok := s.entries[k]; !ok {
		return host.ErrSecretNotFound
	}
	delete(s.entries, k)
	return nil
}

// Value returns the stored value and whether it exists.
func (s *Secrets) Value(service, account string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key(service, account)]
	return v, ok
}

// Files is an in-memory host.Files holding raw JSON per path.
type Files struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewFiles() *Files {
	return &Files{Data: map[string][]byte{}}
}

func (f *Files) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Data[path]
	return ok
}

func (f *Files) ReadJSON(path string, v any) error {
	f.mu.Lock()
	data, ok := f.Data[path]
	f.mu.Unlock()
	if !ok {
		return os.ErrNotExist
	}
	return json.Unmarshal(data, v)
}

func (f *Files) WriteJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Data[path] = data
	return nil
}

// Put stores raw text at path.
func (f *Files) Put(path, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Data[path] = []byte(text)
}

// ErrTransport is what HTTP returns for a Transport reply.
var ErrTransport = errors.New("ECONNRESET")

// Reply is a canned response. Transport makes the call fail at the transport level.
type Reply struct {
	Status    int
	Body      string
	Transport bool
}

// HTTP is a scripted host.HTTP that records every request.
type HTTP struct {
	mu      sync.Mutex
	Handler func(api.Request) Reply
	Calls   []api.Request
}

// Always replies the same to every request.
func Always(r Reply) *HTTP {
	return &HTTP{Handler: func(api.Request) Reply { return r }}
}

// ByURL replies per URL; unknown URLs get 404.
func ByURL(routes map[string]Reply) *HTTP {
	return &HTTP{Handler: func(req api.Request) Reply {
		if r, ok := routes[req.URL]; ok {
			return r
		}
		return Reply{Status: 404, Body: "{}"}
	}}
}

func (h *HTTP) Do(_ context.Context, r api.Request) (api.Response, error) {
	h.mu.Lock()
	h.Calls = append(h.Calls, r)
	handler := h.Handler
	h.mu.Unlock()

	reply := handler(r)
	if reply.Transport {
		return api.Response{}, ErrTransport
	}
	return api.Response{Status: reply.Status, Body: []byte(reply.Body)}, nil
}

// URLs returns the requested URLs in order.
func (h *HTTP) URLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.Calls))
	for i, c := range h.Calls {
		out[i] = c.URL
	}
	return out
}

// Clock is a fixed clock.
type Clock struct{ T time.Time }

func (c Clock) Now() time.Time { return c.T }

// FixedMs returns a clock frozen at the given epoch milliseconds.
func FixedMs(ms int64) Clock {
	return Clock{T: time.UnixMilli(ms).UTC()}
}

// New returns a host context wired to fresh fakes and a discarding logger.
func New(env map[string]string, h *HTTP) *host.Context {
	if h == nil {
		h = Always(Reply{Status: 404, Body: "{}"})
	}
	return &host.Context{
		Env:     &Env{Values: env},
		Secrets: NewSecrets(),
		Files:   NewFiles(),
		HTTP:    h,
		Clock:   FixedMs(1700000000000),
		DataDir: "/data",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
