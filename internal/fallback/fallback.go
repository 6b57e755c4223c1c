// Package fallback centralizes the engine's catch-and-default error policy.
// This is a best-effort advisory engine: a failure inside one computation must
// never abort the whole query. Every computation boundary runs through Do (or
// the Float convenience) so the neutral defaults stay auditable in one place
// instead of being scattered across ad hoc recovers.
package fallback

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Do runs fn and returns its result. On error or panic it logs the failure
// and returns the documented default instead.
func Do[T any](log zerolog.Logger, op string, def T, fn func() (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("op", op).
				Interface("panic", r).
				Msg("Computation panicked, using default")
			result = def
		}
	}()

	v, err := fn()
	if err != nil {
		log.Warn().
			Str("op", op).
			Err(err).
			Msg("Computation failed, using default")
		return def
	}
	return v
}

// Float is Do specialized for the engine's most common shape: a score
// computation defaulting to a neutral value.
func Float(log zerolog.Logger, op string, def float64, fn func() (float64, error)) float64 {
	return Do(log, op, def, fn)
}

// Guard converts a panic in fn into an error. Used at the top-level entry
// points where a genuinely unexpected failure must surface to the caller as a
// single typed failure rather than a partial result.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unexpected failure: %v", op, r)
		}
	}()
	return fn()
}
