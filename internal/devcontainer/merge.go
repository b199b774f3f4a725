// merge.go implements the configuration merge engine: the pure function
// that combines a base template, the resolved feature set, and caller
// selections into a single Configuration.
//
// Merge rules, applied in precedence order (later wins):
//
//   - Scalars (name, image, workspace folder, post-create command):
//     an overlay value replaces the base value only when non-empty.
//   - Feature map: selected features union explicitly requested features;
//     per-feature options merge key-by-key (template defaults, then
//     selection overrides, then overlay overrides).
//   - Ordered lists (ports, mounts, run-args, extensions): base then
//     overlay, deduplicated preserving first occurrence.
//   - Maps (containerEnv, remoteEnv): key-wise union, overlay key wins.
//   - Build vs image: an overlay build spec supersedes any base image.
//
// Merge never reads the clock, the environment, or any global state, and
// never mutates its inputs: identical inputs always produce an identical
// Configuration. Merging the same input into a merge result a second time
// produces an equal Configuration (idempotence).
package devcontainer

import (
	"github.com/devforge-io/devforge/internal/model"
)

// SelectedFeature pairs a resolved feature with the option overrides the
// caller supplied for it.
type SelectedFeature struct {
	// Feature is the resolved feature definition.
	Feature model.Feature

	// Options overrides the feature's option defaults, key by key.
	Options map[string]string
}

// MergeInput carries everything merged on top of the base template.
type MergeInput struct {
	// Name is the project name used for the configuration's display name.
	// Empty keeps the template's display name.
	Name string

	// Features is the resolved, dependency-ordered feature set with
	// per-feature option overrides.
	Features []SelectedFeature

	// Extensions lists requested editor extension IDs, appended after the
	// template's defaults.
	Extensions []string

	// Ports lists requested forward ports, appended after the template's
	// defaults.
	Ports []int

	// EnvVars are container environment overrides, including values the
	// user supplied for the template's RequiredEnvVars.
	EnvVars map[string]string

	// PostCreateCommand overrides the template's post-create command when
	// non-empty.
	PostCreateCommand string

	// Compose requests docker-compose mode. Also implied by the
	// template's RequiresCompose flag.
	Compose bool

	// ComposeService names the primary compose service. Defaults to "app".
	ComposeService string

	// Overlay is an optional free-form configuration fragment applied
	// last (highest precedence). Nil means no overlay.
	Overlay *model.Configuration
}

// Merge combines the base template with the caller's selections into one
// Configuration. Pure function: inputs are never mutated.
//
// An explicitly-empty overlay scalar does not override the base value;
// "" always means "not provided" (see scalarMerge).
func Merge(base model.Template, in MergeInput) model.Configuration {
	overlay := in.Overlay
	if overlay == nil {
		overlay = &model.Configuration{}
	}

	cfg := model.Configuration{
		Name:              scalarMerge(base.Name, in.Name, overlay.Name),
		Image:             scalarMerge(base.Image, "", overlay.Image),
		PostCreateCommand: scalarMerge(base.PostCreateCommand, in.PostCreateCommand, overlay.PostCreateCommand),
		WorkspaceFolder:   overlay.WorkspaceFolder,
	}

	// Build vs image: an overlay build spec supersedes the base image.
	// An overlay that itself carries both image and build keeps both, so
	// the Validator reports the contradiction instead of this code
	// silently picking one.
	if overlay.Build != nil {
		cfg.Build = cloneBuild(overlay.Build)
		if overlay.Image == "" {
			cfg.Image = ""
		}
	}

	// Feature map: resolved features first, then overlay-only features.
	cfg.Features = mergeFeatures(in.Features, overlay.Features)

	// Ordered lists: base, then request, then overlay; first occurrence wins.
	cfg.ForwardPorts = dedupeInts(concatInts(base.DefaultPorts, in.Ports, overlay.ForwardPorts))
	cfg.Extensions = dedupeStrings(concatStrings(base.DefaultExtensions, in.Extensions, overlay.Extensions))
	cfg.RunArgs = dedupeStrings(concatStrings(nil, nil, overlay.RunArgs))
	cfg.Mounts = dedupeMounts(overlay.Mounts)

	// Environment maps: key-wise union, later wins.
	cfg.ContainerEnv = mergeEnv(base.DefaultEnvVars, in.EnvVars, overlay.ContainerEnv)
	cfg.RemoteEnv = mergeEnv(nil, nil, overlay.RemoteEnv)

	// Compose mode: requested by the caller or required by the template.
	if in.Compose || base.RequiresCompose {
		cfg.ComposeFile = scalarMerge("docker-compose.yml", "", overlay.ComposeFile)
		service := in.ComposeService
		if service == "" {
			service = "app"
		}
		cfg.ComposeService = scalarMerge(service, "", overlay.ComposeService)
	}

	return cfg
}

// scalarMerge applies last-writer-wins over up to three scalar layers.
// Empty string means "not provided": an explicitly-empty later value
// keeps the earlier one.
func scalarMerge(base string, request string, overlay string) string {
	out := base
	if request != "" {
		out = request
	}
	if overlay != "" {
		out = overlay
	}
	return out
}

// mergeFeatures builds the qualified-ID → option-map union of the
// resolved selection and the overlay's feature map. Option precedence per
// feature: declared defaults, then selection overrides, then overlay.
func mergeFeatures(selected []SelectedFeature, overlay map[string]map[string]string) map[string]map[string]string {
	if len(selected) == 0 && len(overlay) == 0 {
		return nil
	}

	out := make(map[string]map[string]string, len(selected)+len(overlay))

	for _, sel := range selected {
		opts := make(map[string]string)
		for name, def := range sel.Feature.Options {
			if def.Default != "" {
				opts[name] = def.Default
			}
		}
		for name, v := range sel.Options {
			opts[name] = v
		}
		for name, v := range overlay[sel.Feature.ID] {
			opts[name] = v
		}
		out[sel.Feature.ID] = opts
	}

	// Overlay features not present in the resolved selection are carried
	// through untouched; the Validator flags them against the resolved set.
	for id, opts := range overlay {
		if _, present := out[id]; present {
			continue
		}
		copied := make(map[string]string, len(opts))
		for k, v := range opts {
			copied[k] = v
		}
		out[id] = copied
	}

	return out
}

// mergeEnv unions up to three environment maps, later layers winning.
// Returns nil when every layer is empty so generated JSON omits the field.
func mergeEnv(layers ...map[string]string) map[string]string {
	total := 0
	for _, l := range layers {
		total += len(l)
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]string, total)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// concatInts concatenates int slices without mutating any of them.
func concatInts(lists ...[]int) []int {
	var out []int
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// concatStrings concatenates string slices without mutating any of them.
func concatStrings(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// dedupeInts removes duplicates preserving first occurrence and relative order.
func dedupeInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// dedupeStrings removes duplicates preserving first occurrence and relative order.
func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// dedupeMounts removes duplicate mounts by target, preserving first
// occurrence. Distinct sources for the same target are a validation
// error, not a merge concern; this only collapses exact repetition of
// the winning entry's target.
func dedupeMounts(in []model.Mount) []model.Mount {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]model.Mount, 0, len(in))
	for _, m := range in {
		key := m.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

// cloneBuild deep-copies a build spec so the merge result shares no
// mutable state with the overlay input.
func cloneBuild(b *model.BuildSpec) *model.BuildSpec {
	out := &model.BuildSpec{
		Dockerfile: b.Dockerfile,
		Context:    b.Context,
	}
	if len(b.Args) > 0 {
		out.Args = make(map[string]string, len(b.Args))
		for k, v := range b.Args {
			out.Args[k] = v
		}
	}
	return out
}
