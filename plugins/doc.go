// Package plugins hosts plugin implementation subpackages. It intentionally
// contains no production runtime code itself; this file exists to satisfy
// tooling (import-boss, go vet) for the architectural guard tests that live
// alongside it.
//
// Plugin packages depend only on the public surfaces in pkg/ and sdk/.
// The framework's internal packages (archive, cache, blob, observe) are
// off limits here, which the guard test alongside enforces.
package plugins
