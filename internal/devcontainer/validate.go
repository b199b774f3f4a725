// validate.go checks a merged Configuration against the structural
// invariants of the devcontainer specification before anything is written
// to disk. Validation is read-only: the Configuration is never corrected
// or mutated, only reported on.
package devcontainer

import (
	"fmt"

	"github.com/devforge-io/devforge/internal/model"
)

// ValidationError represents a specific validation failure in a
// configuration, identified by the JSON field path it concerns.
type ValidationError struct {
	// Field is the JSON field path that failed validation (e.g. "forwardPorts[2]").
	Field string `json:"field"`

	// Message describes what is wrong with the field value.
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("devcontainer.json validation error: %s: %s", e.Field, e.Message)
}

// ValidationResult is the outcome of a Validate call. Warnings never make
// IsValid false; any error does.
type ValidationResult struct {
	// IsValid is true when Errors is empty.
	IsValid bool `json:"isValid"`

	// Errors lists the invariant violations that block file emission.
	Errors []ValidationError `json:"errors,omitempty"`

	// Warnings lists non-fatal findings surfaced to the caller.
	Warnings []string `json:"warnings,omitempty"`
}

// Validate checks the merged configuration against its structural
// invariants:
//
//   - name is non-empty
//   - exactly one of image / build is set
//   - every forwarded port is in [1, 65535]
//   - no two mounts share a target path
//   - every feature in the feature map is in the resolved set
//   - compose-required templates without a compose file reference warn
//
// The resolved parameter is the qualified feature IDs produced by the
// resolver for this request; it guards the feature map against merge bugs
// and overlay features that bypassed resolution. requiresCompose comes
// from the base template.
func Validate(cfg model.Configuration, resolved []string, requiresCompose bool) ValidationResult {
	var result ValidationResult

	// Name is required for container identification.
	if cfg.Name == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "name",
			Message: "name must not be empty",
		})
	}

	// Exactly one of image / build.
	hasImage := cfg.Image != ""
	hasBuild := cfg.Build != nil
	switch {
	case hasImage && hasBuild:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "image",
			Message: "image and build are mutually exclusive; exactly one must be set",
		})
	case !hasImage && !hasBuild:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "image",
			Message: "one of image or build must be set",
		})
	}

	if hasBuild && cfg.Build.Dockerfile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "build.dockerfile",
			Message: "build is set but names no dockerfile",
		})
	}

	// Port range. Out-of-range entries are reported individually rather
	// than dropped, so the user sees every offending value in one pass.
	for i, p := range cfg.ForwardPorts {
		if p < 1 || p > 65535 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("forwardPorts[%d]", i),
				Message: fmt.Sprintf("port %d out of range (1-65535)", p),
			})
		}
	}

	// Duplicate mount targets.
	targets := make(map[string]int, len(cfg.Mounts))
	for i, m := range cfg.Mounts {
		if m.Target == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("mounts[%d]", i),
				Message: "mount has no target path",
			})
			continue
		}
		if first, dup := targets[m.Target]; dup {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("mounts[%d]", i),
				Message: fmt.Sprintf("duplicate mount target %q (also mounts[%d])", m.Target, first),
			})
			continue
		}
		targets[m.Target] = i
	}

	// Feature map must be a subset of the resolved set. A mismatch means
	// a merge bug or an overlay feature that bypassed resolution.
	resolvedSet := make(map[string]bool, len(resolved))
	for _, id := range resolved {
		resolvedSet[id] = true
	}
	for _, id := range cfg.FeatureIDs() {
		if !resolvedSet[id] {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("features[%q]", id),
				Message: "feature is not in the resolved set",
			})
		}
	}

	// Compose: required but absent is a warning, not an error — the user
	// may maintain the compose file out-of-band.
	if requiresCompose && cfg.ComposeFile == "" {
		result.Warnings = append(result.Warnings,
			"template requires docker-compose but no compose file reference is set")
	}
	if cfg.ComposeFile != "" && cfg.ComposeService == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "service",
			Message: "service must be set when a compose file is referenced",
		})
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
