package devcontainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-io/devforge/internal/model"
)

// baseTemplate returns a template fixture resembling the built-in "api"
// template.
func baseTemplate() model.Template {
	return model.Template{
		ID:                "api",
		Name:              "REST API",
		Category:          model.CategoryRuntime,
		Image:             "mcr.microsoft.com/devcontainers/base:ubuntu",
		DefaultPorts:      []int{8080},
		PostCreateCommand: "make setup",
		DefaultEnvVars:    map[string]string{"ENVIRONMENT": "development"},
		DefaultExtensions: []string{"editorconfig.editorconfig"},
	}
}

func selection(features ...model.Feature) []SelectedFeature {
	out := make([]SelectedFeature, 0, len(features))
	for _, f := range features {
		out = append(out, SelectedFeature{Feature: f})
	}
	return out
}

// --- basic merge ---

func TestMerge_TemplateDefaultsCarryThrough(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{})

	assert.Equal(t, "REST API", cfg.Name, "template name used when no project name given")
	assert.Equal(t, "mcr.microsoft.com/devcontainers/base:ubuntu", cfg.Image)
	assert.Equal(t, []int{8080}, cfg.ForwardPorts)
	assert.Equal(t, "make setup", cfg.PostCreateCommand)
	assert.Equal(t, map[string]string{"ENVIRONMENT": "development"}, cfg.ContainerEnv)
	assert.Empty(t, cfg.ComposeFile, "no compose unless requested or required")
}

func TestMerge_RequestOverridesTemplate(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Name:              "my-service",
		Ports:             []int{3000},
		PostCreateCommand: "npm install",
		EnvVars:           map[string]string{"ENVIRONMENT": "staging", "DEBUG": "1"},
	})

	assert.Equal(t, "my-service", cfg.Name)
	assert.Equal(t, "npm install", cfg.PostCreateCommand)
	assert.Equal(t, []int{8080, 3000}, cfg.ForwardPorts, "ports append after defaults")
	assert.Equal(t, "staging", cfg.ContainerEnv["ENVIRONMENT"], "request env wins over template default")
	assert.Equal(t, "1", cfg.ContainerEnv["DEBUG"])
}

// --- feature options ---

func TestMerge_FeatureOptionPrecedence(t *testing.T) {
	node := model.Feature{
		ID: "devforge/node@1",
		Options: map[string]model.FeatureOption{
			"version":     {Type: "string", Default: "20"},
			"installYarn": {Type: "boolean", Default: "false"},
		},
	}

	cfg := Merge(baseTemplate(), MergeInput{
		Features: []SelectedFeature{{
			Feature: node,
			Options: map[string]string{"version": "22"},
		}},
		Overlay: &model.Configuration{
			Features: map[string]map[string]string{
				"devforge/node@1": {"installYarn": "true"},
			},
		},
	})

	opts := cfg.Features["devforge/node@1"]
	require.NotNil(t, opts)
	assert.Equal(t, "22", opts["version"], "selection overrides the declared default")
	assert.Equal(t, "true", opts["installYarn"], "overlay overrides everything")
}

func TestMerge_OverlayOnlyFeatureCarriedThrough(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Overlay: &model.Configuration{
			Features: map[string]map[string]string{
				"ghcr.io/custom/thing@2": {"enabled": "true"},
			},
		},
	})

	// The merge carries it; the Validator is the layer that flags
	// features outside the resolved set.
	assert.Contains(t, cfg.Features, "ghcr.io/custom/thing@2")
}

// --- overlay precedence ---

// TestMerge_OverlayHasHighestPrecedence covers layering user-supplied
// custom settings over the template and request values.
func TestMerge_OverlayHasHighestPrecedence(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Name:  "from-request",
		Ports: []int{3000},
		Overlay: &model.Configuration{
			Name:            "from-overlay",
			Image:           "custom/image:1",
			ForwardPorts:    []int{9229},
			WorkspaceFolder: "/src",
			RunArgs:         []string{"--privileged"},
			Mounts:          []model.Mount{{Source: "cache", Target: "/cache", Type: "volume"}},
			RemoteEnv:       map[string]string{"EDITOR": "vim"},
		},
	})

	assert.Equal(t, "from-overlay", cfg.Name)
	assert.Equal(t, "custom/image:1", cfg.Image)
	assert.Equal(t, []int{8080, 3000, 9229}, cfg.ForwardPorts)
	assert.Equal(t, "/src", cfg.WorkspaceFolder)
	assert.Equal(t, []string{"--privileged"}, cfg.RunArgs)
	assert.Len(t, cfg.Mounts, 1)
	assert.Equal(t, map[string]string{"EDITOR": "vim"}, cfg.RemoteEnv)
}

// An explicitly-empty overlay scalar means "not provided" and keeps the
// lower layer's value.
func TestMerge_EmptyOverlayScalarDoesNotOverride(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Name:    "my-service",
		Overlay: &model.Configuration{Name: ""},
	})

	assert.Equal(t, "my-service", cfg.Name)
}

func TestMerge_OverlayBuildSupersedesImage(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Overlay: &model.Configuration{
			Build: &model.BuildSpec{Dockerfile: "Dockerfile", Args: map[string]string{"VARIANT": "1.22"}},
		},
	})

	assert.Empty(t, cfg.Image, "build replaces the template image")
	require.NotNil(t, cfg.Build)
	assert.Equal(t, "Dockerfile", cfg.Build.Dockerfile)
}

func TestMerge_OverlayWithImageAndBuildKeepsBoth(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Overlay: &model.Configuration{
			Image: "custom:1",
			Build: &model.BuildSpec{Dockerfile: "Dockerfile"},
		},
	})

	// The contradiction is the overlay author's, and it is the
	// Validator's to report; merging must not pick a side.
	assert.Equal(t, "custom:1", cfg.Image)
	require.NotNil(t, cfg.Build)

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	found := false
	for _, e := range result.Errors {
		if e.Field == "image" || e.Field == "build" {
			found = true
		}
	}
	assert.True(t, found, "image/build exclusivity reported")
}

// --- deduplication ---

func TestMerge_DeduplicatesPortsAndExtensions(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{
		Ports:      []int{8080, 3000, 3000},
		Extensions: []string{"editorconfig.editorconfig", "golang.go", "golang.go"},
	})

	assert.Equal(t, []int{8080, 3000}, cfg.ForwardPorts)
	assert.Equal(t, []string{"editorconfig.editorconfig", "golang.go"}, cfg.Extensions)
}

// --- compose mode ---

func TestMerge_ComposeRequested(t *testing.T) {
	cfg := Merge(baseTemplate(), MergeInput{Compose: true})

	assert.Equal(t, "docker-compose.yml", cfg.ComposeFile)
	assert.Equal(t, "app", cfg.ComposeService)
}

func TestMerge_ComposeRequiredByTemplate(t *testing.T) {
	base := baseTemplate()
	base.RequiresCompose = true

	cfg := Merge(base, MergeInput{ComposeService: "web"})
	assert.Equal(t, "docker-compose.yml", cfg.ComposeFile)
	assert.Equal(t, "web", cfg.ComposeService)
}

// --- purity and idempotence ---

// Merge must not mutate its inputs: the same template value is reused
// across every init invocation.
func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := baseTemplate()
	overlay := &model.Configuration{
		ForwardPorts: []int{9229},
		Features:     map[string]map[string]string{"acme/x@1": {"k": "v"}},
		Build:        &model.BuildSpec{Dockerfile: "Dockerfile", Args: map[string]string{"A": "1"}},
	}
	in := MergeInput{
		Ports:   []int{3000},
		EnvVars: map[string]string{"DEBUG": "1"},
		Overlay: overlay,
	}

	cfg := Merge(base, in)

	// Mutate the output; inputs must be unaffected.
	cfg.ForwardPorts[0] = 9999
	cfg.Features["acme/x@1"]["k"] = "changed"
	cfg.Build.Args["A"] = "changed"
	cfg.ContainerEnv["DEBUG"] = "changed"

	assert.Equal(t, []int{8080}, base.DefaultPorts)
	assert.Equal(t, []int{9229}, overlay.ForwardPorts)
	assert.Equal(t, "v", overlay.Features["acme/x@1"]["k"])
	assert.Equal(t, "1", overlay.Build.Args["A"])
	assert.Equal(t, "1", in.EnvVars["DEBUG"])
}

func TestMerge_Deterministic(t *testing.T) {
	base := baseTemplate()
	in := MergeInput{
		Name:    "svc",
		Ports:   []int{3000, 5432},
		EnvVars: map[string]string{"A": "1", "B": "2"},
		Features: selection(model.Feature{ID: "devforge/git@1"},
			model.Feature{ID: "devforge/node@1"}),
	}

	first := Merge(base, in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Merge(base, in))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	base := baseTemplate()
	node := model.Feature{
		ID: "devforge/node@1",
		Options: map[string]model.FeatureOption{
			"version": {Type: "string", Default: "20"},
		},
	}
	in := MergeInput{
		Name:              "svc",
		Ports:             []int{3000, 8080},
		EnvVars:           map[string]string{"ENVIRONMENT": "staging"},
		PostCreateCommand: "npm install",
		Extensions:        []string{"golang.go"},
		Features: []SelectedFeature{{
			Feature: node,
			Options: map[string]string{"version": "22"},
		}},
		Overlay: &model.Configuration{
			ForwardPorts: []int{9229},
			RemoteEnv:    map[string]string{"TOKEN": "t"},
			Mounts:       []model.Mount{{Source: "cache", Target: "/cache", Type: "volume"}},
		},
	}

	merged := Merge(base, in)

	// Feeding a merge result back in as the overlay must reproduce it
	// exactly: every layer it absorbed already carries the winning value.
	again := in
	again.Overlay = &merged
	assert.Equal(t, merged, Merge(base, again))
}
