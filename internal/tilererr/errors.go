// Package tilererr defines the closed error taxonomy used across the tiling
// engine (§7). Each kind is a sentinel checked with errors.Is; call sites
// wrap it with fmt.Errorf("...: %w", ...) to attach context without losing
// the kind.
package tilererr

import "errors"

var (
	// ErrReader marks an I/O or parse failure in a source format. Fatal to
	// the current source, non-fatal to the run if other sources remain.
	ErrReader = errors.New("reader error")

	// ErrPersistence marks a failure in the node store. Fatal: triggers
	// graceful cancellation and error propagation.
	ErrPersistence = errors.New("persistence error")

	// ErrConfiguration marks an invalid AABB, impossible spacing, or
	// unknown attribute. Fatal before ingestion begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrSampling marks numeric degeneracy (e.g. NaN coordinates). The
	// point is rejected and counted in rejected; never fatal.
	ErrSampling = errors.New("sampling error")
)

// Kind classifies an error returned by the engine. It returns
// "UnknownError" if err does not wrap one of the sentinels above.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrReader):
		return "ReaderError"
	case errors.Is(err, ErrPersistence):
		return "PersistenceError"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrSampling):
		return "SamplingError"
	default:
		return "UnknownError"
	}
}

// IsFatal reports whether an error of this kind should stop the whole run,
// as opposed to being recorded and skipped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrConfiguration)
}
