// Package credential resolves the access credential for a probe from an
// ordered chain of sources, and keeps the engine's own cache of it fresh.
package credential

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"
)

// Source says where a credential came from.
type Source string

const (
	SourcePrimaryCache Source = "primary-cache"
	SourceOSStore      Source = "os-secure-store"
	SourceCompanionCLI Source = "companion-cli"
	SourceStateFile    Source = "state-file"
	SourceEnvironment  Source = "environment"
)

// ErrAbsent is returned by a Locator that found nothing usable.
var ErrAbsent = errors.New("credential absent")

// Credential is one resolved secret. It is never mutated after resolution.
type Credential struct {
	Value  string
	Source Source
	// Origin names the concrete place: an env var, a keyring service, a path.
	Origin string
	// ExpiresAt is zero when the store does not record an expiry.
	ExpiresAt time.Time
	// Plan is a subscription label some stores keep next to the token.
	Plan string
}

// Expired reports whether a known expiry is at or before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Fingerprint is a short, stable digest of the value for logs.
func (c Credential) Fingerprint() string {
	if c.Value == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(c.Value))
	return hex.EncodeToString(sum[:6])
}
