// Package provider defines the probe contract every usage provider
// implements and the boundary that turns probe failures into user-facing
// messages.
package provider

import (
	"context"
	"sort"

	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/metrics"
	"github.com/tnunamak/usagemeter/internal/probeerr"
	"github.com/tnunamak/usagemeter/internal/usage"
)

// Provider probes one subscription's usage.
type Provider interface {
	ID() string
	Name() string
	Probe(ctx context.Context, h *host.Context) (usage.Result, error)
}

// Registry holds the enabled providers.
type Registry struct {
	byID map[string]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{byID: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		r.byID[p.ID()] = p
	}
	return r
}

func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns provider ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Failure is the error Run returns. Its text is only the user-facing
// message; Kind is kept for exit codes and HTTP status mapping.
type Failure struct {
	Kind    probeerr.Kind
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Run probes p and is the only place probe errors leave the engine. The
// returned error carries just the message; a successful probe always has at
// least one line.
func Run(ctx context.Context, p Provider, h *host.Context) (usage.Result, error) {
	log := h.Log()
	res, err := p.Probe(ctx, h)
	if err != nil {
		kind := probeerr.KindOf(err)
		metrics.ProbeTotal.WithLabelValues(p.ID(), kind.Short()).Inc()
		log.Warn("probe failed", "kind", kind, "status", probeerr.StatusOf(err), "error", err)
		return usage.Result{}, &Failure{Kind: kind, Message: probeerr.Message(err)}
	}
	if len(res.Lines) == 0 {
		res.Lines = []usage.Line{usage.NoDataLine()}
	}
	metrics.ProbeTotal.WithLabelValues(p.ID(), "ok").Inc()
	for _, l := range res.Lines {
		if l.Type != usage.TypeProgress {
			continue
		}
		metrics.LineUsed.WithLabelValues(p.ID(), l.Label).Set(l.Used)
		metrics.LineLimit.WithLabelValues(p.ID(), l.Label).Set(l.Limit)
	}
	log.Debug("probe succeeded", "plan", res.Plan, "lines", len(res.Lines))
	return res, nil
}
