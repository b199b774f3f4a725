// Package model defines the domain types for the devforge CLI.
//
// All entities in this package represent the core data structures of the
// scaffolding pipeline: features, templates, discovered packages, and the
// merged devcontainer Configuration that is ultimately written to disk.
//
// Key design decision: Feature and Template values are immutable once
// loaded from the catalog or a package manifest. The only value that is
// assembled incrementally is Configuration, and only inside a single
// merge pass — after that it is treated as read-only by the Validator
// and the file generator.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category classifies features and templates into a closed set of known
// buckets. Category strings coming from package manifests are untrusted,
// so parsing falls back to CategoryOther rather than failing — category
// never decides correctness, only grouping in listings.
type Category string

const (
	// CategoryRuntime covers language runtimes and SDKs (node, dotnet, go).
	CategoryRuntime Category = "runtime"

	// CategoryTool covers standalone CLI tooling (git, terraform, kubectl).
	CategoryTool Category = "tool"

	// CategoryDatabase covers database engines and their client tooling.
	CategoryDatabase Category = "database"

	// CategoryCloud covers cloud-provider CLIs and SDK bundles.
	CategoryCloud Category = "cloud"

	// CategoryOther is the default bucket for unrecognized categories.
	CategoryOther Category = "other"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks whether the Category value is one of the predefined buckets.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRuntime, CategoryTool, CategoryDatabase, CategoryCloud, CategoryOther:
		return true
	default:
		return false
	}
}

// ParseCategory converts a string to a Category. Unknown strings map to
// CategoryOther instead of returning an error, so manifests authored
// against a newer category vocabulary still load.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return CategoryOther
	}
	return c
}

// Severity grades a Conflict. Warning conflicts are surfaced but do not
// block resolution; error and critical conflicts make resolution fail.
type Severity string

const (
	// SeverityWarning is surfaced to the caller but does not block resolution.
	SeverityWarning Severity = "warning"

	// SeverityError blocks resolution. This is the default for declared
	// pairwise conflicts.
	SeverityError Severity = "error"

	// SeverityCritical blocks resolution and indicates a structural problem
	// in the feature graph itself (currently: dependency cycles).
	SeverityCritical Severity = "critical"
)

// String returns the string representation of Severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks whether the Severity value is one of the predefined levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// Blocking reports whether a conflict of this severity prevents resolution
// from succeeding. The zero value ("") is treated as SeverityError.
func (s Severity) Blocking() bool {
	return s != SeverityWarning
}

// ParseSeverity converts a string to a Severity.
// Returns an error if the string does not match any valid level.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(s))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid conflict severity: %q (valid: warning, error, critical)", s)
	}
	return sev, nil
}

// FeatureOption describes a single configurable option on a Feature.
// The option vocabulary mirrors the devcontainer feature spec: a type,
// an optional default, an optional closed value set, and a required flag.
type FeatureOption struct {
	// Type is the option value type: "string", "boolean", or "enum".
	Type string `json:"type"`

	// Default is the value applied when the user supplies no override.
	// Stored as a string regardless of Type; serialization converts it.
	Default string `json:"default,omitempty"`

	// Enum lists the allowed values when Type is "enum".
	Enum []string `json:"enum,omitempty"`

	// Required marks options the user must supply explicitly.
	Required bool `json:"required,omitempty"`
}

// Feature is an installable, optionally-configurable capability added to a
// devcontainer (a language runtime, a CLI tool, a daemon). Features are
// loaded from the built-in catalog or a package manifest and never mutated
// afterwards.
type Feature struct {
	// ID is the globally unique, namespaced identifier in the
	// "org/feature@version" form (e.g. "devforge/dotnet@1").
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Category groups the feature in listings.
	Category Category `json:"category"`

	// Dependencies lists feature IDs that must be installed alongside
	// this feature. Resolution expands these transitively.
	Dependencies []string `json:"dependencies,omitempty"`

	// ConflictsWith lists feature IDs that cannot coexist with this
	// feature. The relation is symmetric: a conflict declared by either
	// side applies both ways.
	ConflictsWith []string `json:"conflictsWith,omitempty"`

	// ConflictSeverity grades declared conflicts. The zero value is
	// treated as SeverityError per the resolution rules.
	ConflictSeverity Severity `json:"conflictSeverity,omitempty"`

	// Options declares the configurable options for this feature,
	// keyed by option name.
	Options map[string]FeatureOption `json:"options,omitempty"`

	// Deprecated marks features kept only for backwards compatibility.
	// Selecting a deprecated feature produces a resolution warning.
	Deprecated bool `json:"deprecated,omitempty"`
}

// Template is a named starting-point configuration from which a project's
// devcontainer is derived: base image, default features, ports, and
// environment. Templates come from the built-in catalog or from an
// extracted package manifest and are never mutated after parse.
type Template struct {
	// ID is the unique template identifier (e.g. "webapp").
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Description is a one-line summary shown in listings.
	Description string `json:"description,omitempty"`

	// Category groups the template in listings.
	Category Category `json:"category"`

	// Image is the base container image reference.
	Image string `json:"image"`

	// RequiredFeatures lists feature IDs always installed with this template.
	RequiredFeatures []string `json:"requiredFeatures,omitempty"`

	// OptionalFeatures lists feature IDs the template suggests but does
	// not require. They are included only when explicitly selected.
	OptionalFeatures []string `json:"optionalFeatures,omitempty"`

	// DefaultPorts lists container ports forwarded by default.
	DefaultPorts []int `json:"defaultPorts,omitempty"`

	// PostCreateCommand is the default command run after container creation.
	PostCreateCommand string `json:"postCreateCommand,omitempty"`

	// DefaultEnvVars maps environment variable names to default values
	// baked into the generated configuration.
	DefaultEnvVars map[string]string `json:"defaultEnvVars,omitempty"`

	// RequiredEnvVars maps environment variable names to prompt
	// descriptions for values the user must supply. Distinct from
	// DefaultEnvVars: these have no value until the user provides one.
	RequiredEnvVars map[string]string `json:"requiredEnvVars,omitempty"`

	// DefaultExtensions lists editor extension IDs recommended by the template.
	DefaultExtensions []string `json:"defaultExtensions,omitempty"`

	// RequiresCompose marks templates that need a docker-compose.yml
	// (multi-service setups).
	RequiresCompose bool `json:"requiresCompose,omitempty"`

	// ComposeFragment is an optional raw docker-compose YAML fragment
	// emitted alongside the devcontainer.json when compose mode is on.
	ComposeFragment string `json:"composeFragment,omitempty"`
}

// BuildSpec holds a Dockerfile build reference for a Configuration.
// Mutually exclusive with Configuration.Image after merge.
type BuildSpec struct {
	// Dockerfile is the path to the Dockerfile, relative to the
	// .devcontainer directory.
	Dockerfile string `json:"dockerfile"`

	// Context is the Docker build context path, relative to devcontainer.json.
	Context string `json:"context,omitempty"`

	// Args are build-time variables passed via --build-arg.
	Args map[string]string `json:"args,omitempty"`
}

// Mount describes a container mount. Targets must be unique within a
// Configuration; the Validator enforces this.
type Mount struct {
	// Source is the host path or volume name.
	Source string `json:"source"`

	// Target is the absolute path inside the container.
	Target string `json:"target"`

	// Type is the mount type: "bind" or "volume". Defaults to "bind"
	// at serialization time when empty.
	Type string `json:"type,omitempty"`
}

// String renders the mount in the devcontainer.json string form:
// "source=<src>,target=<dst>,type=<type>".
func (m Mount) String() string {
	typ := m.Type
	if typ == "" {
		typ = "bind"
	}
	return fmt.Sprintf("source=%s,target=%s,type=%s", m.Source, m.Target, typ)
}

// ParseMount parses the devcontainer.json mount string form back into a
// Mount. Unknown key=value pairs are ignored.
func ParseMount(s string) (Mount, error) {
	var m Mount
	for _, part := range strings.Split(s, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return Mount{}, fmt.Errorf("invalid mount entry %q: expected key=value pairs", s)
		}
		switch strings.TrimSpace(key) {
		case "source", "src":
			m.Source = value
		case "target", "dst":
			m.Target = value
		case "type":
			m.Type = value
		}
	}
	if m.Target == "" {
		return Mount{}, fmt.Errorf("invalid mount entry %q: missing target", s)
	}
	return m, nil
}

// Configuration is the output artifact of the merge engine: the complete
// devcontainer configuration that, once validated, is serialized to
// .devcontainer/devcontainer.json.
//
// Invariant (enforced by the Validator, never silently corrected): exactly
// one of Image or Build is set.
type Configuration struct {
	// Name is the display name for the dev container.
	Name string `json:"name"`

	// Image is the container image reference. Empty when Build is set.
	Image string `json:"image,omitempty"`

	// Build is the Dockerfile build spec. Nil when Image is set.
	Build *BuildSpec `json:"build,omitempty"`

	// ComposeFile is the docker-compose file reference, relative to the
	// .devcontainer directory. Set only in compose mode.
	ComposeFile string `json:"composeFile,omitempty"`

	// ComposeService is the primary service name when ComposeFile is set.
	ComposeService string `json:"composeService,omitempty"`

	// Features maps qualified feature IDs to their per-feature option maps.
	Features map[string]map[string]string `json:"features,omitempty"`

	// Extensions lists recommended editor extension IDs.
	Extensions []string `json:"extensions,omitempty"`

	// ForwardPorts lists forwarded container ports, ordered and deduplicated.
	ForwardPorts []int `json:"forwardPorts,omitempty"`

	// PostCreateCommand is the command run after container creation.
	// Single string; merge semantics are last-writer-wins.
	PostCreateCommand string `json:"postCreateCommand,omitempty"`

	// ContainerEnv sets environment variables inside the container.
	ContainerEnv map[string]string `json:"containerEnv,omitempty"`

	// RemoteEnv sets environment variables for the connecting tool process.
	RemoteEnv map[string]string `json:"remoteEnv,omitempty"`

	// Mounts lists container mounts.
	Mounts []Mount `json:"mounts,omitempty"`

	// RunArgs provides additional `docker run` arguments.
	RunArgs []string `json:"runArgs,omitempty"`

	// WorkspaceFolder is the path inside the container where the project
	// source is mounted.
	WorkspaceFolder string `json:"workspaceFolder,omitempty"`
}

// FeatureIDs returns the qualified feature IDs referenced by the
// configuration's feature map, sorted for deterministic output.
func (c *Configuration) FeatureIDs() []string {
	ids := make([]string, 0, len(c.Features))
	for id := range c.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Conflict records a detected incompatibility between two features, or a
// dependency cycle. The pair is unordered: Key() normalizes the member
// order so {A,B} and {B,A} compare equal.
type Conflict struct {
	// A and B are the conflicting feature IDs. For cycle conflicts,
	// A is the lexicographically smallest cycle member and B the next.
	A string `json:"a"`
	B string `json:"b"`

	// Reason is the human-readable explanation. Cycle conflicts name
	// every cycle member here.
	Reason string `json:"reason"`

	// Severity grades the conflict.
	Severity Severity `json:"severity"`
}

// Key returns a normalized identity for the unordered pair, suitable for
// deduplication.
func (c Conflict) Key() string {
	a, b := c.A, c.B
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Involves reports whether the given feature ID is a member of the pair.
func (c Conflict) Involves(id string) bool {
	return c.A == id || c.B == id
}

// String returns a human-readable representation of the conflict.
func (c Conflict) String() string {
	return fmt.Sprintf("[%s] %s <-> %s: %s", c.Severity, c.A, c.B, c.Reason)
}

// SourceKind discriminates the two kinds of discovery source.
type SourceKind string

const (
	// SourceLocal is a local filesystem directory containing package archives.
	SourceLocal SourceKind = "local"

	// SourceRemote is a remote package-index search endpoint.
	SourceRemote SourceKind = "remote"
)

// SourceRef identifies a discovery source: a local directory of package
// archives or a remote package-index endpoint URL.
type SourceRef struct {
	// Kind is local or remote.
	Kind SourceKind `json:"kind"`

	// Location is the directory path (local) or base URL (remote).
	Location string `json:"location"`
}

// String returns "kind:location", used as a stable display form and as
// part of cache keys.
func (s SourceRef) String() string {
	return string(s.Kind) + ":" + s.Location
}

// PackageSummary is the lightweight description of a discovered template
// package: enough to list and select packages without unpacking them.
type PackageSummary struct {
	// ID is the package identifier.
	ID string `json:"id"`

	// Version is the package version string (dotted numeric, e.g. "1.4.0").
	Version string `json:"version"`

	// Title is the display title; falls back to ID when absent.
	Title string `json:"title,omitempty"`

	// Description is a one-line package summary.
	Description string `json:"description,omitempty"`

	// Tags is the package tag set used for discovery filtering.
	Tags []string `json:"tags,omitempty"`

	// Source identifies which discovery source produced this summary.
	Source string `json:"source"`
}

// HasTag reports whether the package carries the given tag
// (case-insensitive).
func (p PackageSummary) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// projectNameRegex validates project names used for placeholder
// substitution: alphanumerics, hyphens, underscores and dots, starting
// with an alphanumeric character.
var projectNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateProjectName checks if the given name is usable as a project
// name in generated files and directory names.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if !projectNameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name %q: must start with an alphanumeric character and contain only alphanumerics, dots, hyphens and underscores", name)
	}
	return nil
}
