// Package resolver expands a requested set of feature identifiers into a
// complete, conflict-free, dependency-ordered feature list.
//
// Resolution is a pure function over the injected feature lookup: it holds
// no state across calls and is safe to invoke concurrently. The algorithm
// is deterministic — identical inputs always produce identical ordering
// and identical conflict lists, which callers rely on for reproducible
// generated configurations.
//
// Resolution is all-or-nothing: any missing feature, declared conflict of
// blocking severity, or dependency cycle makes the whole request fail with
// an empty resolved list. Partial results are never returned.
package resolver
