package api

import (
	"net/http"
	"time"
)

// Request is one outbound HTTP call made on behalf of a probe.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// Response is the status and body of a completed call. Non-2xx statuses are
// ordinary responses, not errors.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
