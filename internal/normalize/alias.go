package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/tnunamak/usagemeter/internal/coerce"
)

// Field names a canonical quantity.
type Field string

const (
	FieldTotal      Field = "total"
	FieldUsed       Field = "used"
	FieldRemaining  Field = "remaining"
	FieldUsageCount Field = "usage_count"
	FieldStart      Field = "start"
	FieldEnd        Field = "end"
	FieldRemainsFor Field = "remains_for"
	FieldReset      Field = "reset"
	FieldPlan       Field = "plan"
)

// AliasTable maps a field to the vendor keys that may carry it, in order.
type AliasTable map[Field][]string

// Lookup returns the first alias present with a non-null value. A present but
// unreadable value still wins; it does not fall through to later aliases.
func (t AliasTable) Lookup(obj gjson.Result, f Field) gjson.Result {
	for _, key := range t[f] {
		if r := obj.Get(key); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func (t AliasTable) Number(obj gjson.Result, f Field) (float64, bool) {
	return coerce.Number(t.Lookup(obj, f))
}

// String returns the first readable string among the aliases. Unlike Lookup
// blank strings fall through.
func (t AliasTable) String(obj gjson.Result, f Field) (string, bool) {
	for _, key := range t[f] {
		if s, ok := coerce.String(obj.Get(key)); ok {
			return s, true
		}
	}
	return "", false
}

// Reconcile derives used from an explicit used value or total - remaining,
// clamped to [0, total]. It fails when neither is known.
func Reconcile(total float64, used float64, hasUsed bool, remaining float64, hasRemaining bool) (float64, bool) {
	switch {
	case hasUsed:
	case hasRemaining:
		used = total - remaining
	default:
		return 0, false
	}
	return Clamp(used, 0, total), true
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
