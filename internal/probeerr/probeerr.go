// Package probeerr is the error taxonomy of a usage probe. Every failure a
// provider can report carries one Kind, and the message is what the user sees.
package probeerr

import (
	"fmt"

	"github.com/samber/oops"
)

// Kind is the machine-readable class of a probe failure.
type Kind string

const (
	KindAuth            Kind = "probe.auth"
	KindNetwork         Kind = "probe.network"
	KindHTTP            Kind = "probe.http"
	KindParse           Kind = "probe.parse"
	KindDataUnavailable Kind = "probe.data_unavailable"
	KindPluginSpecific  Kind = "probe.plugin_specific"
)

const statusKey = "status"

// Short returns the label used for metrics and logs ("auth", "http", ...).
func (k Kind) Short() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	case KindDataUnavailable:
		return "data_unavailable"
	case KindPluginSpecific:
		return "plugin_specific"
	default:
		return "unknown"
	}
}

// New builds a probe error of the given kind. msg is shown to the user verbatim.
func New(kind Kind, msg string) error {
	return oops.Code(kind).Errorf("%s", msg)
}

// Errorf is New with formatting.
func Errorf(kind Kind, format string, args ...any) error {
	return oops.Code(kind).Errorf("%s", fmt.Sprintf(format, args...))
}

// HTTP builds a KindHTTP error that remembers the response status.
func HTTP(status int, msg string) error {
	return oops.Code(KindHTTP).With(statusKey, status).Errorf("%s", msg)
}

func Auth(msg string) error            { return New(KindAuth, msg) }
func Network(msg string) error         { return New(KindNetwork, msg) }
func Parse(msg string) error           { return New(KindParse, msg) }
func DataUnavailable(msg string) error { return New(KindDataUnavailable, msg) }
func PluginSpecific(msg string) error  { return New(KindPluginSpecific, msg) }

// KindOf returns the kind carried by err, or "" for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Kind:
		return code
	case string:
		return Kind(code)
	default:
		return ""
	}
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status attached by HTTP, or 0.
func StatusOf(err error) int {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0
	}
	if status, ok := oopsErr.Context()[statusKey].(int); ok {
		return status
	}
	return 0
}

// Message renders err as the single string shown at the probe boundary.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
