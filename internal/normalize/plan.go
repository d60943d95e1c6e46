package normalize

import (
	"math"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// PlanNamer cleans explicit plan names.
type PlanNamer struct {
	// Prefix is stripped from the start of the name.
	Prefix *regexp.Regexp
	// Generic matches a name that is nothing but the product phrase; such a
	// name becomes GenericLabel.
	Generic      *regexp.Regexp
	GenericLabel string
}

// Normalize collapses whitespace and strips the vendor prefix. It returns ""
// for blank input.
func (n PlanNamer) Normalize(raw string) string {
	compact := strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
	if compact == "" {
		return ""
	}
	stripped := compact
	if n.Prefix != nil {
		stripped = strings.TrimSpace(n.Prefix.ReplaceAllString(compact, ""))
	}
	if stripped != "" {
		return stripped
	}
	if n.Generic != nil && n.Generic.MatchString(compact) {
		return n.GenericLabel
	}
	return compact
}

// TierTable maps known quota totals to tier names. When Divisor is set, a
// total that is an exact multiple of it is also looked up after dividing.
type TierTable struct {
	Names   map[int]string
	Divisor int
}

// Infer returns the tier name for total, or "".
func (t TierTable) Infer(total float64) string {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return ""
	}
	n := int(math.Round(total))
	if name, ok := t.Names[n]; ok {
		return name
	}
	if t.Divisor > 1 && n%t.Divisor == 0 {
		return t.Names[n/t.Divisor]
	}
	return ""
}
