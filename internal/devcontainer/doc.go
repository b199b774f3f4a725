// Package devcontainer handles merging, validation, serialization, and
// emission of devcontainer.json configuration files for the devforge CLI.
//
// The package owns the second half of the scaffolding pipeline:
//
//	Merge → Validate → WriteConfiguration
//
// Merge combines a base template with resolved features, requested ports,
// environment variables, and an optional caller-supplied overlay into one
// Configuration. Validate checks the result against the structural
// invariants of the devcontainer specification. WriteConfiguration
// serializes the validated Configuration into .devcontainer/ on disk,
// together with a docker-compose.yml or starter Dockerfile when needed.
//
// JSONC (JSON with Comments) is supported on all input paths via
// github.com/tidwall/jsonc, since hand-edited devcontainer.json files
// routinely contain comments. Compose output goes through gopkg.in/yaml.v3.
package devcontainer
