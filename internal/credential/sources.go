package credential

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tnunamak/usagemeter/internal/host"
)

// Locator is one link of the credential chain.
type Locator interface {
	Kind() Source
	Name() string
	Lookup(h *host.Context) (Credential, error)
}

// EnvSource reads the first non-blank variable among Names.
type EnvSource struct {
	Names []string
}

func (s EnvSource) Kind() Source { return SourceEnvironment }
func (s EnvSource) Name() string { return "env:" + strings.Join(s.Names, ",") }

func (s EnvSource) Lookup(h *host.Context) (Credential, error) {
	name, value, ok := FirstEnv(h, s.Names...)
	if !ok {
		return Credential{}, ErrAbsent
	}
	h.Log().Info("credential loaded from environment", "var", name)
	return Credential{Value: value, Source: SourceEnvironment, Origin: name}, nil
}

// FirstEnv returns the first environment variable among names whose trimmed
// value is non-blank. A failing getter is logged and skipped.
func FirstEnv(h *host.Context, names ...string) (string, string, bool) {
	for _, name := range names {
		raw, err := h.Env.Get(name)
		if err != nil {
			h.Log().Warn("env read failed", "var", name, "error", err)
			continue
		}
		if v := strings.TrimSpace(raw); v != "" {
			return name, v, true
		}
	}
	return "", "", false
}

// Decoder turns a stored blob into a credential value. Source and Origin are
// filled in by the caller.
type Decoder func(raw []byte) (Credential, error)

// SecretSource reads one entry of the OS secure store.
type SecretSource struct {
	Source  Source
	Service string
	Account string
	Decode  Decoder
}

func (s SecretSource) Kind() Source { return s.Source }
func (s SecretSource) Name() string { return "keyring:" + s.Service }

func (s SecretSource) Lookup(h *host.Context) (Credential, error) {
	if h.Secrets == nil {
		return Credential{}, ErrAbsent
	}
	raw, err := h.Secrets.Get(s.Service, s.Account)
	if err != nil {
		if errors.Is(err, host.ErrSecretNotFound) {
			return Credential{}, ErrAbsent
		}
		return Credential{}, fmt.Errorf("keyring read %s: %w", s.Service, err)
	}
	if strings.TrimSpace(raw) == "" {
		return Credential{}, ErrAbsent
	}
	return finish(s.decoder(), []byte(raw), s.Source, s.Service)
}

func (s SecretSource) decoder() Decoder {
	if s.Decode != nil {
		return s.Decode
	}
	return RawToken
}

// FileSource reads a JSON state file. Path is resolved against the host so
// it can live under the provider data directory.
type FileSource struct {
	Source Source
	Path   func(h *host.Context) string
	Decode Decoder
}

func (s FileSource) Kind() Source {
	if s.Source == "" {
		return SourceStateFile
	}
	return s.Source
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Lookup(h *host.Context) (Credential, error) {
	path := s.Path(h)
	if path == "" || h.Files == nil || !h.Files.Exists(path) {
		return Credential{}, ErrAbsent
	}
	var raw json.RawMessage
	if err := h.Files.ReadJSON(path, &raw); err != nil {
		return Credential{}, fmt.Errorf("read %s: %w", path, err)
	}
	dec := s.Decode
	if dec == nil {
		dec = TokenJSON
	}
	return finish(dec, raw, s.Kind(), path)
}

func finish(dec Decoder, raw []byte, src Source, origin string) (Credential, error) {
	cred, err := dec(raw)
	if err != nil {
		return Credential{}, err
	}
	if strings.TrimSpace(cred.Value) == "" {
		return Credential{}, ErrAbsent
	}
	cred.Value = strings.TrimSpace(cred.Value)
	cred.Source = src
	cred.Origin = origin
	return cred, nil
}

// RawToken uses the stored text as-is.
func RawToken(raw []byte) (Credential, error) {
	return Credential{Value: string(raw)}, nil
}

// TokenJSON decodes {"token": "..."}; JSON null decodes as absent.
func TokenJSON(raw []byte) (Credential, error) {
	var doc struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Credential{}, fmt.Errorf("decode token: %w", err)
	}
	return Credential{Value: doc.Token}, nil
}

const keyringBase64Prefix = "go-keyring-base64:"

// KeyringBase64 strips the encoding marker go-keyring based CLIs (gh) put in
// front of base64 encoded secrets.
func KeyringBase64(raw []byte) (Credential, error) {
	s := string(raw)
	if !strings.HasPrefix(s, keyringBase64Prefix) {
		return Credential{Value: s}, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, keyringBase64Prefix))
	if err != nil {
		return Credential{}, fmt.Errorf("decode %s value: %w", keyringBase64Prefix, err)
	}
	return Credential{Value: string(decoded)}, nil
}
