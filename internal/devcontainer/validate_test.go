package devcontainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devforge-io/devforge/internal/model"
)

func validConfig() model.Configuration {
	return model.Configuration{
		Name:         "my-service",
		Image:        "mcr.microsoft.com/devcontainers/base:ubuntu",
		ForwardPorts: []int{8080},
	}
}

func TestValidate_ValidConfiguration(t *testing.T) {
	result := Validate(validConfig(), nil, false)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidate_NameRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Name = ""

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "name", result.Errors[0].Field)
}

// --- image / build exclusivity ---

func TestValidate_ImageAndBuildMutuallyExclusive(t *testing.T) {
	cfg := validConfig()
	cfg.Build = &model.BuildSpec{Dockerfile: "Dockerfile"}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "mutually exclusive")
}

func TestValidate_ImageOrBuildRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Image = ""

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "one of image or build")
}

func TestValidate_BuildNeedsDockerfile(t *testing.T) {
	cfg := validConfig()
	cfg.Image = ""
	cfg.Build = &model.BuildSpec{}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "build.dockerfile", result.Errors[0].Field)
}

// --- ports ---

// Every out-of-range port is reported, not just the first.
func TestValidate_AllBadPortsReported(t *testing.T) {
	cfg := validConfig()
	cfg.ForwardPorts = []int{8080, 0, 70000, -1}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "forwardPorts[1]", result.Errors[0].Field)
	assert.Equal(t, "forwardPorts[2]", result.Errors[1].Field)
	assert.Equal(t, "forwardPorts[3]", result.Errors[2].Field)
}

func TestValidate_PortBoundaries(t *testing.T) {
	cfg := validConfig()
	cfg.ForwardPorts = []int{1, 65535}

	result := Validate(cfg, nil, false)
	assert.True(t, result.IsValid)
}

// --- mounts ---

func TestValidate_DuplicateMountTargets(t *testing.T) {
	cfg := validConfig()
	cfg.Mounts = []model.Mount{
		{Source: "a", Target: "/data"},
		{Source: "b", Target: "/data"},
	}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "mounts[1]", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Message, "/data")
}

func TestValidate_MountWithoutTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Mounts = []model.Mount{{Source: "a"}}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	assert.Equal(t, "mounts[0]", result.Errors[0].Field)
}

// --- feature set ---

func TestValidate_FeatureOutsideResolvedSet(t *testing.T) {
	cfg := validConfig()
	cfg.Features = map[string]map[string]string{
		"devforge/git@1":   nil,
		"devforge/rogue@1": nil,
	}

	result := Validate(cfg, []string{"devforge/git@1"}, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Field, "devforge/rogue@1")
}

// --- compose ---

func TestValidate_ComposeRequiredButMissingWarns(t *testing.T) {
	result := Validate(validConfig(), nil, true)
	assert.True(t, result.IsValid, "missing compose reference is a warning, not an error")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "compose")
}

func TestValidate_ComposeFileNeedsService(t *testing.T) {
	cfg := validConfig()
	cfg.ComposeFile = "docker-compose.yml"

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "service", result.Errors[0].Field)
}

// Findings accumulate: one pass reports everything wrong.
func TestValidate_MultipleErrorsAccumulate(t *testing.T) {
	cfg := model.Configuration{
		ForwardPorts: []int{0},
		ComposeFile:  "docker-compose.yml",
	}

	result := Validate(cfg, nil, false)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 4, "name, image/build, port, service")
}
