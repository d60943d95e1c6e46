package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnunamak/usagemeter/internal/api"
)

func TestDoSendsHeadersAndReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"busy":true}`))
	}))
	defer srv.Close()

	resp, err := api.NewClient().Do(context.Background(), api.Request{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer k", "User-Agent": "custom-agent"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.False(t, resp.OK())
	assert.JSONEq(t, `{"busy":true}`, string(resp.Body))
}

func TestDoTimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := api.NewClient().Do(context.Background(), api.Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
}

func TestDoUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.NewClient().Do(context.Background(), api.Request{URL: url, Timeout: time.Second})
	require.Error(t, err)
}

func TestResponseOK(t *testing.T) {
	assert.True(t, api.Response{Status: 200}.OK())
	assert.True(t, api.Response{Status: 204}.OK())
	assert.False(t, api.Response{Status: 301}.OK())
	assert.False(t, api.Response{Status: 199}.OK())
}
