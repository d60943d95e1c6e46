// Package normalize turns vendor usage payloads into canonical records. It
// covers envelope unwrapping, embedded status envelopes, alias lookups,
// used/remaining reconciliation, time unit disambiguation and tier inference.
package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/coerce"
	"github.com/tnunamak/usagemeter/internal/probeerr"
)

// Envelope is a payload with an optional one-level wrapper object. When the
// wrapper key is missing, Wrapper is the root itself.
type Envelope struct {
	Wrapper gjson.Result
	Root    gjson.Result
}

func Unwrap(payload gjson.Result, key string) Envelope {
	w := payload.Get(key)
	if !w.IsObject() {
		w = payload
	}
	return Envelope{Wrapper: w, Root: payload}
}

// FirstArray returns the first array found under names, probing the wrapper
// before the root for each name.
func (e Envelope) FirstArray(names ...string) (gjson.Result, bool) {
	for _, name := range names {
		if r := e.Wrapper.Get(name); r.IsArray() {
			return r, true
		}
		if r := e.Root.Get(name); r.IsArray() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// FirstObject returns the first object among wrapper.name and root.name.
func (e Envelope) FirstObject(name string) (gjson.Result, bool) {
	if r := e.Wrapper.Get(name); r.IsObject() {
		return r, true
	}
	if r := e.Root.Get(name); r.IsObject() {
		return r, true
	}
	return gjson.Result{}, false
}

// StatusCheck inspects a vendor status envelope such as
// {"base_resp": {"status_code": 1004, "status_msg": "..."}}.
type StatusCheck struct {
	Vendor      string
	Key         string
	CodeField   string
	MsgField    string
	AuthCodes   []int
	AuthHints   []string
	AuthMessage string
}

// Check returns nil when the envelope is absent or reports code 0.
func (c StatusCheck) Check(e Envelope) error {
	resp, ok := e.FirstObject(c.Key)
	if !ok {
		return nil
	}
	code, ok := coerce.Number(resp.Get(c.CodeField))
	if !ok || code == 0 {
		return nil
	}
	msg, _ := coerce.String(resp.Get(c.MsgField))
	if c.isAuth(int(code), msg) {
		return probeerr.Auth(c.AuthMessage)
	}
	if msg != "" {
		return probeerr.Errorf(probeerr.KindPluginSpecific, "%s API error: %s", c.Vendor, msg)
	}
	return probeerr.Errorf(probeerr.KindPluginSpecific, "%s API error (status %d).", c.Vendor, int(code))
}

func (c StatusCheck) isAuth(code int, msg string) bool {
	for _, ac := range c.AuthCodes {
		if code == ac {
			return true
		}
	}
	lower := strings.ToLower(msg)
	for _, hint := range c.AuthHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// SelectItem returns the first object in items whose total is positive.
func SelectItem(items gjson.Result, total func(gjson.Result) (float64, bool)) (gjson.Result, bool) {
	var chosen gjson.Result
	found := false
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		if t, ok := total(item); ok && t > 0 {
			chosen, found = item, true
			return false
		}
		return true
	})
	return chosen, found
}
