// Package update checks GitHub for a newer usagemeter release.
package update

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/host"
)

const (
	repo = "tnunamak/usagemeter"
	// LatestURL is the GitHub API endpoint for the newest release.
	LatestURL   = "https://api.github.com/repos/" + repo + "/releases/latest"
	httpTimeout = 15 * time.Second
)

type Release struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Checker asks URL (LatestURL when empty) for the latest release.
type Checker struct {
	HTTP host.HTTP
	URL  string
}

// Check returns the latest release if it differs from currentVersion.
// Returns nil when already up to date or when running a dev build.
func (c *Checker) Check(ctx context.Context, currentVersion string) (*Release, error) {
	url := c.URL
	if url == "" {
		url = LatestURL
	}
	resp, err := c.HTTP.Do(ctx, api.Request{
		Method:  "GET",
		URL:     url,
		Headers: map[string]string{"Accept": "application/vnd.github+json"},
		Timeout: httpTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("check update: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("check update: GitHub API returned %d", resp.Status)
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("check update: response is not JSON")
	}

	tag := gjson.GetBytes(resp.Body, "tag_name").String()
	if tag == "" || StripV(tag) == StripV(currentVersion) || currentVersion == "dev" {
		return nil, nil
	}

	return &Release{
		Version: tag,
		URL: fmt.Sprintf("https://github.com/%s/releases/download/%s/usagemeter-%s-%s",
			repo, tag, runtime.GOOS, runtime.GOARCH),
	}, nil
}

// StripV removes a leading "v" prefix for display: "v1.2.3" -> "1.2.3".
func StripV(version string) string {
	return strings.TrimPrefix(version, "v")
}
