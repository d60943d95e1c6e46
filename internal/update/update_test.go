package update_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/host/hosttest"
	"github.com/tnunamak/usagemeter/internal/update"
)

const releaseURL = "https://example.test/releases/latest"

func checker(reply hosttest.Reply) (*update.Checker, *hosttest.HTTP) {
	h := hosttest.ByURL(map[string]hosttest.Reply{releaseURL: reply})
	return &update.Checker{HTTP: h, URL: releaseURL}, h
}

func TestCheckFindsUpdate(t *testing.T) {
	c, h := checker(hosttest.Reply{Status: 200, Body: `{"tag_name":"v1.4.0"}`})
	rel, err := c.Check(context.Background(), "v1.3.2")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "v1.4.0", rel.Version)
	assert.Equal(t, "https://github.com/tnunamak/usagemeter/releases/download/v1.4.0/usagemeter-"+runtime.GOOS+"-"+runtime.GOARCH, rel.URL)
	assert.Equal(t, []string{releaseURL}, h.URLs())
	assert.Equal(t, "application/vnd.github+json", h.Calls[0].Headers["Accept"])
}

func TestCheckUpToDate(t *testing.T) {
	c, _ := checker(hosttest.Reply{Status: 200, Body: `{"tag_name":"v1.4.0"}`})
	rel, err := c.Check(context.Background(), "1.4.0")
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestCheckDevSkipped(t *testing.T) {
	c, _ := checker(hosttest.Reply{Status: 200, Body: `{"tag_name":"v1.4.0"}`})
	rel, err := c.Check(context.Background(), "dev")
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestCheckErrors(t *testing.T) {
	c, _ := checker(hosttest.Reply{Status: 403, Body: `{"message":"rate limited"}`})
	_, err := c.Check(context.Background(), "v1.0.0")
	assert.EqualError(t, err, "check update: GitHub API returned 403")

	c, _ = checker(hosttest.Reply{Status: 200, Body: `<html>`})
	_, err = c.Check(context.Background(), "v1.0.0")
	assert.EqualError(t, err, "check update: response is not JSON")

	c, _ = checker(hosttest.Reply{Transport: true})
	_, err = c.Check(context.Background(), "v1.0.0")
	assert.ErrorIs(t, err, hosttest.ErrTransport)
}

func TestStripV(t *testing.T) {
	assert.Equal(t, "1.2.3", update.StripV("v1.2.3"))
	assert.Equal(t, "1.2.3", update.StripV("1.2.3"))
}
