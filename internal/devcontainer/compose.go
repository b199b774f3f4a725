// compose.go emits the docker-compose.yml that accompanies a generated
// devcontainer.json in compose mode.
//
// Two paths exist:
//
//   - Templates that ship a compose fragment: the fragment is parsed,
//     given a top-level project name (which sets COMPOSE_PROJECT_NAME and
//     namespaces container/network/volume names), and re-serialized.
//   - Templates without a fragment: a minimal single-service file is
//     synthesized from the Configuration itself.
//
// Either way the output is deterministic for a given input.
package devcontainer

import (
	"fmt"
	"sort"

	"github.com/devforge-io/devforge/internal/model"
	"gopkg.in/yaml.v3"
)

// composeFile is the synthesized docker-compose structure used when the
// template ships no fragment of its own.
type composeFile struct {
	// Name sets the Compose project name for namespace isolation.
	Name string `yaml:"name"`

	// Services maps service names to their definitions.
	Services map[string]composeService `yaml:"services"`
}

// composeService is a single synthesized service definition. Only the
// fields a generated devcontainer needs are modeled.
type composeService struct {
	Image       string            `yaml:"image,omitempty"`
	Build       *composeBuild     `yaml:"build,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Command     string            `yaml:"command,omitempty"`
}

// composeBuild mirrors the compose build object for Dockerfile services.
type composeBuild struct {
	Context    string `yaml:"context"`
	Dockerfile string `yaml:"dockerfile,omitempty"`
}

// GenerateCompose produces the docker-compose.yml bytes for a
// configuration. fragment is the template's raw compose fragment, empty
// when the template ships none.
func GenerateCompose(cfg model.Configuration, fragment string) ([]byte, error) {
	if fragment != "" {
		return renameFragment(fragment, cfg.Name)
	}
	return synthesizeCompose(cfg)
}

// renameFragment parses a template's compose fragment and sets the
// top-level project name, leaving every other key untouched.
func renameFragment(fragment string, projectName string) ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(fragment), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template compose fragment: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("template compose fragment is empty")
	}

	doc["name"] = projectName

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize docker-compose.yml: %w", err)
	}
	return out, nil
}

// synthesizeCompose builds a single-service compose file from the
// Configuration when the template ships no fragment.
func synthesizeCompose(cfg model.Configuration) ([]byte, error) {
	service := cfg.ComposeService
	if service == "" {
		service = "app"
	}

	svc := composeService{
		Image: cfg.Image,
		// The workspace bind mount and idle command follow the standard
		// devcontainer compose convention.
		Volumes: []string{"..:/workspace:cached"},
		Command: "sleep infinity",
	}
	if cfg.Build != nil {
		ctx := cfg.Build.Context
		if ctx == "" {
			ctx = "."
		}
		svc.Build = &composeBuild{Context: ctx, Dockerfile: cfg.Build.Dockerfile}
		svc.Image = ""
	}

	// Ports sorted for deterministic output; the devcontainer.json keeps
	// the caller's order, compose does not need to.
	ports := append([]int(nil), cfg.ForwardPorts...)
	sort.Ints(ports)
	for _, p := range ports {
		svc.Ports = append(svc.Ports, fmt.Sprintf("%d:%d", p, p))
	}

	if len(cfg.ContainerEnv) > 0 {
		svc.Environment = cfg.ContainerEnv
	}

	doc := composeFile{
		Name:     cfg.Name,
		Services: map[string]composeService{service: svc},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize docker-compose.yml: %w", err)
	}
	return out, nil
}
