// config.go maps between the internal model.Configuration and the public
// devcontainer.json shape (https://containers.dev/implementors/json_reference/).
//
// The two shapes differ deliberately: the internal Configuration keeps
// typed fields (Mount structs, string option maps) that make merge and
// validation code straightforward, while the wire shape follows the
// devcontainer specification exactly (mount strings, typed option values,
// customizations.vscode.extensions nesting).
package devcontainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/devforge-io/devforge/internal/model"
	"github.com/tidwall/jsonc"
)

// rawConfig is the devcontainer.json wire shape. Fields we do not model
// are dropped on parse; generated files only ever contain these fields.
type rawConfig struct {
	Name string `json:"name"`

	Image string           `json:"image,omitempty"`
	Build *model.BuildSpec `json:"build,omitempty"`

	// DockerComposeFile can be a single string or an array of strings in
	// hand-written files; generated output always uses the single-string
	// form. interface{} handles both during deserialization.
	DockerComposeFile interface{} `json:"dockerComposeFile,omitempty"`
	Service           string      `json:"service,omitempty"`

	// Features maps feature references to option objects. Option values
	// are typed on the wire (booleans stay booleans).
	Features map[string]map[string]interface{} `json:"features,omitempty"`

	// ForwardPorts entries are integers in generated output, but
	// hand-written files may contain strings. Kept loose for parsing;
	// non-integer entries surface as validation errors, never silently
	// dropped.
	ForwardPorts []interface{} `json:"forwardPorts,omitempty"`

	PostCreateCommand string            `json:"postCreateCommand,omitempty"`
	ContainerEnv      map[string]string `json:"containerEnv,omitempty"`
	RemoteEnv         map[string]string `json:"remoteEnv,omitempty"`
	Mounts            []string          `json:"mounts,omitempty"`
	RunArgs           []string          `json:"runArgs,omitempty"`
	WorkspaceFolder   string            `json:"workspaceFolder,omitempty"`

	Customizations *rawCustomizations `json:"customizations,omitempty"`
}

// rawCustomizations nests editor-specific settings per the devcontainer spec.
type rawCustomizations struct {
	VSCode rawVSCode `json:"vscode"`
}

// rawVSCode holds the VS Code extension recommendations.
type rawVSCode struct {
	Extensions []string `json:"extensions,omitempty"`
}

// ToJSON serializes a Configuration to devcontainer.json bytes with
// 2-space indentation and a trailing newline. Map keys serialize in
// sorted order (encoding/json guarantee), so output is deterministic.
func ToJSON(cfg model.Configuration) ([]byte, error) {
	raw := rawConfig{
		Name:              cfg.Name,
		Image:             cfg.Image,
		Build:             cfg.Build,
		Service:           cfg.ComposeService,
		PostCreateCommand: cfg.PostCreateCommand,
		ContainerEnv:      cfg.ContainerEnv,
		RemoteEnv:         cfg.RemoteEnv,
		RunArgs:           cfg.RunArgs,
		WorkspaceFolder:   cfg.WorkspaceFolder,
	}

	if cfg.ComposeFile != "" {
		raw.DockerComposeFile = cfg.ComposeFile
	}

	if len(cfg.Features) > 0 {
		raw.Features = make(map[string]map[string]interface{}, len(cfg.Features))
		for id, opts := range cfg.Features {
			wire := make(map[string]interface{}, len(opts))
			for k, v := range opts {
				wire[k] = optionToWire(v)
			}
			raw.Features[id] = wire
		}
	}

	for _, p := range cfg.ForwardPorts {
		raw.ForwardPorts = append(raw.ForwardPorts, p)
	}

	for _, m := range cfg.Mounts {
		raw.Mounts = append(raw.Mounts, m.String())
	}

	if len(cfg.Extensions) > 0 {
		raw.Customizations = &rawCustomizations{
			VSCode: rawVSCode{Extensions: cfg.Extensions},
		}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize devcontainer.json: %w", err)
	}

	// Trailing newline for POSIX text-file tooling.
	return append(data, '\n'), nil
}

// Parse reads devcontainer.json bytes (JSONC accepted) into a
// Configuration. Structural problems that can be represented without
// aborting the parse — a non-integer forwardPorts entry, a malformed
// mount string — are returned as ValidationErrors alongside the partially
// populated Configuration, so the Validator can report them instead of
// the parser silently dropping data.
func Parse(data []byte) (model.Configuration, []ValidationError, error) {
	clean := jsonc.ToJSON(data)

	var raw rawConfig
	if err := json.Unmarshal(clean, &raw); err != nil {
		return model.Configuration{}, nil, fmt.Errorf("failed to parse devcontainer.json: %w", err)
	}

	var issues []ValidationError

	cfg := model.Configuration{
		Name:              raw.Name,
		Image:             raw.Image,
		Build:             raw.Build,
		ComposeService:    raw.Service,
		PostCreateCommand: raw.PostCreateCommand,
		ContainerEnv:      raw.ContainerEnv,
		RemoteEnv:         raw.RemoteEnv,
		RunArgs:           raw.RunArgs,
		WorkspaceFolder:   raw.WorkspaceFolder,
	}

	// dockerComposeFile: single string or array; generated files use the
	// single form, so the first array entry wins on parse.
	switch v := raw.DockerComposeFile.(type) {
	case string:
		cfg.ComposeFile = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				cfg.ComposeFile = s
				break
			}
		}
	}

	if len(raw.Features) > 0 {
		cfg.Features = make(map[string]map[string]string, len(raw.Features))
		for id, opts := range raw.Features {
			inner := make(map[string]string, len(opts))
			for k, v := range opts {
				inner[k] = optionFromWire(v)
			}
			cfg.Features[id] = inner
		}
	}

	for i, entry := range raw.ForwardPorts {
		switch v := entry.(type) {
		case float64:
			// JSON numbers decode to float64 behind interface{}.
			cfg.ForwardPorts = append(cfg.ForwardPorts, int(v))
		case string:
			p, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				issues = append(issues, ValidationError{
					Field:   fmt.Sprintf("forwardPorts[%d]", i),
					Message: fmt.Sprintf("entry %q is not an integer port", v),
				})
				continue
			}
			cfg.ForwardPorts = append(cfg.ForwardPorts, p)
		default:
			issues = append(issues, ValidationError{
				Field:   fmt.Sprintf("forwardPorts[%d]", i),
				Message: "entry is neither an integer nor a numeric string",
			})
		}
	}

	for i, s := range raw.Mounts {
		m, err := model.ParseMount(s)
		if err != nil {
			issues = append(issues, ValidationError{
				Field:   fmt.Sprintf("mounts[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		cfg.Mounts = append(cfg.Mounts, m)
	}

	if raw.Customizations != nil {
		cfg.Extensions = raw.Customizations.VSCode.Extensions
	}

	return cfg, issues, nil
}

// ParseFile reads and parses a devcontainer.json file from disk.
func ParseFile(path string) (model.Configuration, []ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Configuration{}, nil, model.WrapCLIError(
				model.ExitNotFound,
				fmt.Sprintf("devcontainer.json not found: %s", path),
				err,
			)
		}
		return model.Configuration{}, nil, fmt.Errorf("failed to read devcontainer.json: %w", err)
	}
	return Parse(data)
}

// FindConfig searches for devcontainer.json in the standard locations
// within a project directory, in the order the devcontainer specification
// defines:
//
//  1. <projectPath>/.devcontainer/devcontainer.json
//  2. <projectPath>/.devcontainer.json
//
// Returns the path of the first match, or a not-found CLIError.
func FindConfig(projectPath string) (string, error) {
	candidates := []string{
		filepath.Join(projectPath, ".devcontainer", "devcontainer.json"),
		filepath.Join(projectPath, ".devcontainer.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", model.NewCLIError(
		model.ExitNotFound,
		fmt.Sprintf("devcontainer.json not found in %s (searched .devcontainer/devcontainer.json and .devcontainer.json)", projectPath),
	)
}

// optionToWire converts an internal string option value to its typed wire
// form: "true"/"false" become booleans, everything else stays a string.
func optionToWire(v string) interface{} {
	switch v {
	case "true":
		return true
	case "false":
		return false
	default:
		return v
	}
}

// optionFromWire converts a wire option value back to the internal
// canonical string form. Inverse of optionToWire for the values that
// function emits, which is what the round-trip property requires.
func optionFromWire(v interface{}) string {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParsePortList parses a comma-separated port list from CLI input.
// Every invalid entry is reported (not just the first); valid entries are
// returned in input order.
func ParsePortList(s string) ([]int, []error) {
	var ports []int
	var errs []error
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid port %q: not an integer", part))
			continue
		}
		ports = append(ports, p)
	}
	return ports, errs
}
