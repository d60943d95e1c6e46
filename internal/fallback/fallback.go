// Package fallback runs an ordered list of candidates until one succeeds.
// Credential sources and endpoint URLs are both walked this way.
package fallback

// First calls try on each candidate in order and returns the first result
// whose error is nil together with its index. Every failure is handed to
// classify before moving on; classify may be nil. Candidates are never tried
// concurrently and nothing after the first success is tried.
func First[C, R any](candidates []C, try func(C) (R, error), classify func(C, error)) (R, int, bool) {
	for i, c := range candidates {
		r, err := try(c)
		if err == nil {
			return r, i, true
		}
		if classify != nil {
			classify(c, err)
		}
	}
	var zero R
	return zero, -1, false
}
