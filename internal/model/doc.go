// Package model defines the domain types and value objects for the
// devforge CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (Feature, Template, Configuration, Conflict, PackageSummary)
// are immutable after load: features and templates come from the built-in
// catalog or package manifests, and the Configuration is assembled once by
// the merge engine and read-only from then on.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
