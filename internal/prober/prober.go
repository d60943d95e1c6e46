// Package prober fetches one logical resource from an ordered list of
// endpoint candidates and folds their failures into a single probe error.
package prober

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/fallback"
	"github.com/tnunamak/usagemeter/internal/host"
	"github.com/tnunamak/usagemeter/internal/metrics"
	"github.com/tnunamak/usagemeter/internal/probeerr"
)

const defaultTimeout = 15 * time.Second

// Messages are the user-facing texts of the aggregate error.
type Messages struct {
	Auth    string
	HTTP    func(status int) string
	Network string
	Parse   string
}

// DefaultMessages returns the generic texts with a provider auth message.
func DefaultMessages(auth string) Messages {
	return Messages{
		Auth: auth,
		HTTP: func(status int) string {
			return fmt.Sprintf("Request failed (HTTP %d). Try again later.", status)
		},
		Network: "Request failed. Check your connection.",
		Parse:   "Could not parse usage data.",
	}
}

// Prober is configured once per provider.
type Prober struct {
	Provider string
	Timeout  time.Duration
	// IsAuth classifies auth statuses; nil means 401 and 403.
	IsAuth   func(status int) bool
	Messages Messages
}

// AuthStatus is the default auth classifier.
func AuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// tally is what the failed candidates left behind. Only the first HTTP status
// and the first transport error are kept.
type tally struct {
	auth    int
	status  int
	network error
}

type attemptError struct {
	outcome string
	status  int
	err     error
}

func (e *attemptError) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.status != 0:
		return fmt.Sprintf("HTTP %d", e.status)
	default:
		return e.outcome
	}
}

// TryCandidates GETs each url in order and returns the first 2xx JSON object.
// When every candidate fails the error precedence is: first HTTP status, then
// first transport error, then auth failures, then unparseable bodies.
func (p *Prober) TryCandidates(ctx context.Context, h *host.Context, urls []string, headers map[string]string) (gjson.Result, error) {
	var t tally
	log := h.Log()

	payload, _, ok := fallback.First(urls, func(url string) (gjson.Result, error) {
		return p.attempt(ctx, h, url, headers)
	}, func(url string, err error) {
		ae, _ := err.(*attemptError)
		if ae == nil {
			ae = &attemptError{outcome: metrics.OutcomeNetwork, err: err}
		}
		metrics.CandidateAttempts.WithLabelValues(p.Provider, ae.outcome).Inc()
		switch ae.outcome {
		case metrics.OutcomeAuth:
			t.auth++
		case metrics.OutcomeHTTP:
			if t.status == 0 {
				t.status = ae.status
			}
		case metrics.OutcomeNetwork:
			if t.network == nil {
				t.network = ae.err
			}
		}
		log.Info("endpoint candidate failed", "url", url, "outcome", ae.outcome, "status", ae.status, "error", ae.err)
	})
	if ok {
		metrics.CandidateAttempts.WithLabelValues(p.Provider, metrics.OutcomeOK).Inc()
		return payload, nil
	}
	return gjson.Result{}, p.aggregate(t)
}

func (p *Prober) attempt(ctx context.Context, h *host.Context, url string, headers map[string]string) (gjson.Result, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	resp, err := h.HTTP.Do(ctx, api.Request{Method: http.MethodGet, URL: url, Headers: headers, Timeout: timeout})
	if err != nil {
		return gjson.Result{}, &attemptError{outcome: metrics.OutcomeNetwork, err: err}
	}
	if p.isAuth(resp.Status) {
		return gjson.Result{}, &attemptError{outcome: metrics.OutcomeAuth, status: resp.Status}
	}
	if !resp.OK() {
		return gjson.Result{}, &attemptError{outcome: metrics.OutcomeHTTP, status: resp.Status}
	}
	payload, ok := ParseObject(resp.Body)
	if !ok {
		return gjson.Result{}, &attemptError{outcome: metrics.OutcomeNotJSON}
	}
	return payload, nil
}

func (p *Prober) isAuth(status int) bool {
	if p.IsAuth != nil {
		return p.IsAuth(status)
	}
	return AuthStatus(status)
}

func (p *Prober) aggregate(t tally) error {
	m := p.Messages
	defaults := DefaultMessages(m.Auth)
	if m.HTTP == nil {
		m.HTTP = defaults.HTTP
	}
	if m.Network == "" {
		m.Network = defaults.Network
	}
	if m.Parse == "" {
		m.Parse = defaults.Parse
	}
	switch {
	case t.status != 0:
		return probeerr.HTTP(t.status, m.HTTP(t.status))
	case t.network != nil:
		return probeerr.Network(m.Network)
	case t.auth > 0:
		return probeerr.Auth(m.Auth)
	default:
		return probeerr.Parse(m.Parse)
	}
}

// ParseObject returns body as a JSON object, or false for anything else.
func ParseObject(body []byte) (gjson.Result, bool) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, false
	}
	r := gjson.ParseBytes(body)
	return r, r.IsObject()
}
