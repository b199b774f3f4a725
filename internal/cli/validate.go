package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devforge-io/devforge/internal/devcontainer"
	"github.com/devforge-io/devforge/internal/model"
)

// validateResult is the JSON output shape of the validate command.
type validateResult struct {
	Valid    bool                           `json:"valid"`
	Config   string                         `json:"config"`
	Errors   []devcontainer.ValidationError `json:"errors,omitempty"`
	Warnings []string                       `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command that checks an existing
// devcontainer configuration for structural problems.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate an existing devcontainer configuration",
		Long: `Validate the devcontainer configuration of a project directory
(default: current directory).

Looks for .devcontainer/devcontainer.json, then .devcontainer.json,
parses it (JSONC comments are allowed), and checks the structural
invariants: exactly one of image or build, valid forward ports, unique
mount targets, and compose consistency. All problems are reported in
one pass.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) == 1 {
				projectPath = args[0]
			}
			projectPath, err := filepath.Abs(projectPath)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid project path", err)
			}

			configPath, err := devcontainer.FindConfig(projectPath)
			if err != nil {
				return err
			}

			result := validateResult{Config: configPath}

			cfg, parseIssues, err := devcontainer.ParseFile(configPath)
			if err != nil {
				return model.WrapCLIError(model.ExitValidationFailed, "failed to parse configuration", err)
			}
			result.Errors = append(result.Errors, parseIssues...)

			// Feature references cannot be checked against a resolution
			// here, so the declared set is taken as the resolved set.
			validation := devcontainer.Validate(cfg, cfg.FeatureIDs(), false)
			result.Errors = append(result.Errors, validation.Errors...)
			result.Warnings = validation.Warnings
			result.Valid = len(result.Errors) == 0

			printValidateResult(result)
			if !result.Valid {
				return model.NewCLIError(model.ExitValidationFailed,
					fmt.Sprintf("%s is invalid (%d error(s))", configPath, len(result.Errors)))
			}
			return nil
		},
	}

	return cmd
}

func printValidateResult(result validateResult) {
	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	printWarnings(result.Warnings)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e.Error())
	}
	if result.Valid {
		fmt.Printf("%s is valid\n", result.Config)
	}
}
