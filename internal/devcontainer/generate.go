// generate.go writes a validated Configuration to disk: the
// .devcontainer/devcontainer.json, an accompanying docker-compose.yml in
// compose mode, and a starter Dockerfile when the configuration carries a
// build spec whose Dockerfile does not exist yet.
//
// The generator is only called after Validator success, but it still
// re-parses its own output as a last line of defense against
// serialization-time inconsistencies the Validator could not foresee.
package devcontainer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devforge-io/devforge/internal/model"
)

// FileGenerationResult reports the outcome of WriteConfiguration.
type FileGenerationResult struct {
	// Success is true when every file was written and the re-parse check
	// passed.
	Success bool `json:"success"`

	// GeneratedFiles lists the files written, in write order, as paths
	// relative to the destination directory. Relative paths keep the
	// result interchangeable with extraction results, so a caller can
	// roll both back through the same cleanup path.
	GeneratedFiles []string `json:"generatedFiles,omitempty"`

	// ValidationErrors carries serialization-time inconsistencies found
	// by re-parsing the written devcontainer.json.
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// GenerateOptions adjusts WriteConfiguration behavior.
type GenerateOptions struct {
	// ComposeFragment is the template's raw compose fragment, emitted as
	// docker-compose.yml when the configuration references one. Empty
	// means synthesize from the configuration.
	ComposeFragment string
}

// WriteConfiguration serializes the configuration into destDir. Files:
//
//	<destDir>/.devcontainer/devcontainer.json   always
//	<destDir>/.devcontainer/docker-compose.yml  when cfg.ComposeFile is set
//	<destDir>/.devcontainer/<dockerfile>        when cfg.Build names a
//	                                            Dockerfile that does not exist
//
// The context is checked before each file write so cancellation cannot
// leave more files behind than already written; callers running under the
// extraction marker clean those up on retry.
func WriteConfiguration(ctx context.Context, cfg model.Configuration, destDir string, opts GenerateOptions) FileGenerationResult {
	devDir := filepath.Join(destDir, ".devcontainer")
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		return FileGenerationResult{
			ErrorMessage: fmt.Sprintf("destination not writable: %v", err),
		}
	}

	var result FileGenerationResult

	data, err := ToJSON(cfg)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	// Serialization-time consistency check: the written bytes must parse
	// back cleanly. Anything the parser flags here slipped past the
	// Validator and must block emission.
	if _, issues, parseErr := Parse(data); parseErr != nil || len(issues) > 0 {
		result.ValidationErrors = issues
		if parseErr != nil {
			result.ErrorMessage = parseErr.Error()
		} else {
			result.ErrorMessage = "generated devcontainer.json failed re-parse validation"
		}
		return result
	}

	jsonRel := filepath.Join(".devcontainer", "devcontainer.json")
	if err := writeFile(ctx, filepath.Join(destDir, jsonRel), data, 0o644); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}
	result.GeneratedFiles = append(result.GeneratedFiles, jsonRel)

	if cfg.ComposeFile != "" {
		composeData, err := GenerateCompose(cfg, opts.ComposeFragment)
		if err != nil {
			result.ErrorMessage = err.Error()
			return result
		}
		composeRel := filepath.Join(".devcontainer", cfg.ComposeFile)
		if err := writeFile(ctx, filepath.Join(destDir, composeRel), composeData, 0o644); err != nil {
			result.ErrorMessage = err.Error()
			return result
		}
		result.GeneratedFiles = append(result.GeneratedFiles, composeRel)
	}

	if cfg.Build != nil && cfg.Build.Dockerfile != "" {
		dockerfileRel := filepath.Join(".devcontainer", cfg.Build.Dockerfile)
		dockerfilePath := filepath.Join(destDir, dockerfileRel)
		if _, err := os.Stat(dockerfilePath); os.IsNotExist(err) {
			starter := starterDockerfile(cfg)
			if err := writeFile(ctx, dockerfilePath, []byte(starter), 0o644); err != nil {
				result.ErrorMessage = err.Error()
				return result
			}
			result.GeneratedFiles = append(result.GeneratedFiles, dockerfileRel)
		}
	}

	result.Success = true
	return result
}

// starterDockerfile produces a minimal Dockerfile for build-mode
// configurations whose Dockerfile does not exist yet.
func starterDockerfile(cfg model.Configuration) string {
	base := "mcr.microsoft.com/devcontainers/base:ubuntu-24.04"
	return fmt.Sprintf("FROM %s\n\n# Build steps for %s go here.\n", base, cfg.Name)
}

// writeFile writes one file after a cancellation check, creating parent
// directories as needed.
func writeFile(ctx context.Context, path string, data []byte, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return model.WrapCLIError(model.ExitUserCancelled, "file generation cancelled", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
