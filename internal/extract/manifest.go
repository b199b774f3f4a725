// manifest.go parses the template manifest embedded in a package archive
// into the canonical Template entity. The manifest is JSONC like every
// other JSON input in the system.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/devforge-io/devforge/internal/model"
)

// ManifestFileName is the manifest every template package must embed.
const ManifestFileName = "devforge-template.json"

// Metadata key prefixes deriving environment variables on the Template.
// "env:<NAME>" carries a default value; "requiredEnv:<NAME>" carries the
// prompt text for a value the user must supply.
const (
	envKeyPrefix         = "env:"
	requiredEnvKeyPrefix = "requiredEnv:"
)

// rawManifest is the JSON shape of the template manifest.
type rawManifest struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Category          string            `json:"category,omitempty"`
	Image             string            `json:"image"`
	RequiredFeatures  []string          `json:"requiredFeatures,omitempty"`
	OptionalFeatures  []string          `json:"optionalFeatures,omitempty"`
	DefaultPorts      []int             `json:"defaultPorts,omitempty"`
	PostCreateCommand string            `json:"postCreateCommand,omitempty"`
	DefaultExtensions []string          `json:"defaultExtensions,omitempty"`
	RequiresCompose   bool              `json:"requiresCompose,omitempty"`
	ComposeFragment   string            `json:"composeFragment,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ParseManifest converts manifest bytes into a Template. The category
// falls back to the default bucket; environment variables are derived
// from the metadata map's env:/requiredEnv: keys.
func ParseManifest(data []byte) (model.Template, error) {
	var raw rawManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return model.Template{}, fmt.Errorf("malformed template manifest: %w", err)
	}
	if raw.ID == "" {
		return model.Template{}, fmt.Errorf("template manifest is missing id")
	}
	if raw.Image == "" {
		return model.Template{}, fmt.Errorf("template manifest %q is missing image", raw.ID)
	}

	name := raw.Name
	if name == "" {
		name = raw.ID
	}

	defaults, required := deriveEnvVars(raw.Metadata)

	return model.Template{
		ID:                raw.ID,
		Name:              name,
		Description:       raw.Description,
		Category:          model.ParseCategory(raw.Category),
		Image:             raw.Image,
		RequiredFeatures:  raw.RequiredFeatures,
		OptionalFeatures:  raw.OptionalFeatures,
		DefaultPorts:      raw.DefaultPorts,
		PostCreateCommand: raw.PostCreateCommand,
		DefaultEnvVars:    defaults,
		RequiredEnvVars:   required,
		DefaultExtensions: raw.DefaultExtensions,
		RequiresCompose:   raw.RequiresCompose,
		ComposeFragment:   raw.ComposeFragment,
	}, nil
}

// deriveEnvVars splits the manifest metadata map into default and
// required environment variables by key prefix. Keys with neither prefix
// are ignored here; they are free-form package metadata.
func deriveEnvVars(metadata map[string]string) (defaults map[string]string, required map[string]string) {
	for key, value := range metadata {
		switch {
		case strings.HasPrefix(key, envKeyPrefix):
			name := strings.TrimPrefix(key, envKeyPrefix)
			if name == "" {
				continue
			}
			if defaults == nil {
				defaults = make(map[string]string)
			}
			defaults[name] = value
		case strings.HasPrefix(key, requiredEnvKeyPrefix):
			name := strings.TrimPrefix(key, requiredEnvKeyPrefix)
			if name == "" {
				continue
			}
			if required == nil {
				required = make(map[string]string)
			}
			required[name] = value
		}
	}
	return defaults, required
}
