// Package catalog provides the built-in, read-only registry of features,
// templates, and editor-extension recommendations.
//
// The catalog is an explicitly constructed value, never a process-wide
// singleton: production code calls NewDefault, tests construct a fixture
// catalog via New with whatever features and templates the test needs.
// Once constructed, a Catalog is immutable and safe for concurrent use.
package catalog
