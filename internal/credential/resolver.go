package credential

import (
	"encoding/json"
	"errors"

	"github.com/tnunamak/usagemeter/internal/fallback"
	"github.com/tnunamak/usagemeter/internal/host"
)

// Cache is the engine's own copy of a credential: one secure store entry
// mirrored into a JSON state file.
type Cache struct {
	Service string
	Account string
	// StatePath may be nil when there is no file mirror.
	StatePath func(h *host.Context) string
}

type tokenDoc struct {
	Token string `json:"token"`
}

// Save writes value to the secure store and the state file. Failures are
// logged; a cache that cannot be written only costs a slower next probe.
func (c *Cache) Save(h *host.Context, value string) {
	doc, _ := json.Marshal(tokenDoc{Token: value})
	if h.Secrets != nil {
		if err := h.Secrets.Set(c.Service, c.Account, string(doc)); err != nil {
			h.Log().Warn("keyring write failed", "service", c.Service, "error", err)
		}
	}
	c.writeState(h, &tokenDoc{Token: value})
}

// Clear removes the secure store entry and nulls the state file.
func (c *Cache) Clear(h *host.Context) {
	if h.Secrets != nil {
		if err := h.Secrets.Delete(c.Service, c.Account); err != nil && !errors.Is(err, host.ErrSecretNotFound) {
			h.Log().Info("keyring delete failed", "service", c.Service, "error", err)
		}
	}
	c.writeState(h, nil)
}

func (c *Cache) writeState(h *host.Context, doc *tokenDoc) {
	if c.StatePath == nil || h.Files == nil {
		return
	}
	path := c.StatePath(h)
	if err := h.Files.WriteJSON(path, doc); err != nil {
		h.Log().Warn("state file write failed", "path", path, "error", err)
	}
}

// Resolver walks Sources in order. Cache, when set, is where credentials from
// later sources get persisted and what Invalidate clears.
type Resolver struct {
	Sources []Locator
	Cache   *Cache
}

// Resolve returns the first credential any source yields.
func (r *Resolver) Resolve(h *host.Context) (Credential, bool) {
	return r.resolve(h, r.Sources)
}

// ResolveAfter skips every source up to and including the first one of kind
// after, then resolves from the rest.
func (r *Resolver) ResolveAfter(h *host.Context, after Source) (Credential, bool) {
	for i, s := range r.Sources {
		if s.Kind() == after {
			return r.resolve(h, r.Sources[i+1:])
		}
	}
	return r.resolve(h, r.Sources)
}

func (r *Resolver) resolve(h *host.Context, sources []Locator) (Credential, bool) {
	cred, _, ok := fallback.First(sources, func(s Locator) (Credential, error) {
		return s.Lookup(h)
	}, func(s Locator, err error) {
		if errors.Is(err, ErrAbsent) {
			h.Log().Debug("credential source empty", "source", s.Kind(), "name", s.Name())
			return
		}
		h.Log().Info("credential source failed", "source", s.Kind(), "name", s.Name(), "error", err)
	})
	if ok {
		h.Log().Info("credential resolved", "source", cred.Source, "fingerprint", cred.Fingerprint())
	}
	return cred, ok
}

// Persist copies a credential from a non-primary source into the cache.
func (r *Resolver) Persist(h *host.Context, cred Credential) {
	if r.Cache == nil || cred.Source == SourcePrimaryCache || cred.Value == "" {
		return
	}
	h.Log().Info("persisting credential to cache", "source", cred.Source, "fingerprint", cred.Fingerprint())
	r.Cache.Save(h, cred.Value)
}

// Invalidate clears the cache when cred came from it and reports whether it did.
func (r *Resolver) Invalidate(h *host.Context, cred Credential) bool {
	if r.Cache == nil || cred.Source != SourcePrimaryCache {
		return false
	}
	h.Log().Info("cached credential rejected, clearing", "fingerprint", cred.Fingerprint())
	r.Cache.Clear(h)
	return true
}
