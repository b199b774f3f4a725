// Package discovery enumerates candidate template packages from local
// directories of package archives and remote package-index endpoints.
//
// Discovery never throws past its boundary: a source that cannot be read
// contributes an empty result plus an entry in the returned error list,
// and the remaining sources are still consulted. Within one cache window,
// identical calls return byte-identical ordering (package ID ascending,
// version descending).
//
// The (source, tag) result cache is the only long-lived mutable state in
// the core. It is an explicit injected interface with a controllable
// clock, so tests can drive TTL expiry deterministically. Writers are
// serialized per key through singleflight: concurrent callers for the
// same key await one in-flight fetch instead of issuing duplicates, while
// cached reads stay unrestricted.
package discovery
