package claude

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/tnunamak/usagemeter/internal/credential"
	"github.com/tnunamak/usagemeter/internal/host"
)

const (
	keychainService = "Claude Code-credentials"
	tokenEnv        = "CLAUDE_CODE_OAUTH_TOKEN"
)

// oauthFile is what Claude Code keeps in the keychain and in
// ~/.claude/.credentials.json.
type oauthFile struct {
	ClaudeAiOauth struct {
		AccessToken      string `json:"accessToken"`
		ExpiresAt        int64  `json:"expiresAt"`
		SubscriptionType string `json:"subscriptionType"`
	} `json:"claudeAiOauth"`
}

// decodeOAuth reads the credentials document. A keychain value that is not
// JSON is taken as a bare access token.
func decodeOAuth(raw []byte) (credential.Credential, error) {
	var doc oauthFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return credential.Credential{Value: strings.TrimSpace(string(raw))}, nil
	}
	cred := credential.Credential{
		Value: doc.ClaudeAiOauth.AccessToken,
		Plan:  doc.ClaudeAiOauth.SubscriptionType,
	}
	if doc.ClaudeAiOauth.ExpiresAt > 0 {
		cred.ExpiresAt = time.UnixMilli(doc.ClaudeAiOauth.ExpiresAt)
	}
	return cred, nil
}

// keychainSource reads Claude Code's keychain entry, which is stored under
// the login name of the current user.
type keychainSource struct{}

func (keychainSource) Kind() credential.Source { return credential.SourceOSStore }
func (keychainSource) Name() string            { return "keyring:" + keychainService }

func (keychainSource) Lookup(h *host.Context) (credential.Credential, error) {
	_, account, _ := credential.FirstEnv(h, "USER", "USERNAME")
	return credential.SecretSource{
		Source:  credential.SourceOSStore,
		Service: keychainService,
		Account: account,
		Decode:  decodeOAuth,
	}.Lookup(h)
}

func credentialsPath(h *host.Context) string {
	_, home, ok := credential.FirstEnv(h, "HOME", "USERPROFILE")
	if !ok {
		return ""
	}
	return filepath.Join(home, ".claude", ".credentials.json")
}

func newResolver() *credential.Resolver {
	return &credential.Resolver{
		Sources: []credential.Locator{
			credential.EnvSource{Names: []string{tokenEnv}},
			keychainSource{},
			credential.FileSource{Path: credentialsPath, Decode: decodeOAuth},
		},
	}
}
