package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devforge-io/devforge/internal/catalog"
	"github.com/devforge-io/devforge/internal/config"
	"github.com/devforge-io/devforge/internal/devcontainer"
	"github.com/devforge-io/devforge/internal/extract"
	"github.com/devforge-io/devforge/internal/model"
	"github.com/devforge-io/devforge/internal/resolver"
)

// initResult is the JSON output shape of the init command.
type initResult struct {
	Success        bool                           `json:"success"`
	Destination    string                         `json:"destination"`
	Template       string                         `json:"template"`
	Features       []string                       `json:"features,omitempty"`
	GeneratedFiles []string                       `json:"generatedFiles,omitempty"`
	Warnings       []string                       `json:"warnings,omitempty"`
	Conflicts      []model.Conflict               `json:"conflicts,omitempty"`
	Missing        []string                       `json:"missing,omitempty"`
	Validation     []devcontainer.ValidationError `json:"validationErrors,omitempty"`
}

// NewInitCommand creates the init command that scaffolds a devcontainer
// configuration into a destination directory.
func NewInitCommand() *cobra.Command {
	var (
		templateID     string
		packageRef     string
		featureList    string
		optionFlags    []string
		portList       string
		envFlags       []string
		extensionList  string
		postCreate     string
		composeMode    bool
		composeService string
		force          bool
		projectName    string
		projectDesc    string
		overlayPath    string
	)

	cmd := &cobra.Command{
		Use:   "init [destination]",
		Short: "Scaffold a devcontainer configuration",
		Long: `Scaffold a devcontainer configuration into the destination directory
(default: current directory).

The base comes from a built-in template (--template) or from a template
package archive (--package, a local .zip/.nupkg path or an HTTP URL).
Requested features (--features) are expanded through their dependencies,
checked for conflicts, merged with the template, validated, and written
as .devcontainer/devcontainer.json.

Examples:
  devforge init --template api --features git,node my-service
  devforge init --package ./templates/api-starter.1.2.0.nupkg --name my-service
  devforge init --template fullstack --env DATABASE_URL=postgres://db/app`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
			}
			applyConfigLogLevel(cfg.LogLevel)

			dest := "."
			if len(args) == 1 {
				dest = args[0]
			}
			dest, err = filepath.Abs(dest)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid destination path", err)
			}

			if projectName == "" {
				projectName = filepath.Base(dest)
			}
			if err := model.ValidateProjectName(projectName); err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid project name", err)
			}

			if templateID == "" {
				templateID = cfg.DefaultTemplate
			}
			if packageRef != "" && cmd.Flags().Changed("template") {
				return model.NewCLIError(model.ExitGeneralError, "--template and --package are mutually exclusive")
			}

			ports, portErrs := devcontainer.ParsePortList(portList)
			if len(portErrs) > 0 {
				msgs := make([]string, 0, len(portErrs))
				for _, pe := range portErrs {
					msgs = append(msgs, pe.Error())
				}
				return model.NewCLIError(model.ExitValidationFailed,
					"invalid --ports value: "+strings.Join(msgs, "; "))
			}

			envVars, err := parseKeyValueFlags(envFlags)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid --env value", err)
			}

			options, err := parseOptionFlags(optionFlags)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid --option value", err)
			}

			var overlay *model.Configuration
			if overlayPath != "" {
				parsed, issues, err := devcontainer.ParseFile(overlayPath)
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "failed to read custom settings", err)
				}
				if len(issues) > 0 {
					return model.NewCLIError(model.ExitValidationFailed,
						"custom settings file is invalid: "+issues[0].Error())
				}
				overlay = &parsed
			}

			result := initResult{Destination: dest}

			// The marker guards the destination for the whole operation:
			// package extraction and file generation both happen under it,
			// so a concurrent init against the same directory fails fast
			// instead of interleaving writes.
			guard, err := extract.AcquireGuard(dest, force)
			if err != nil {
				switch {
				case errors.Is(err, extract.ErrDestinationExists):
					return model.WrapCLIError(model.ExitDestinationExists,
						"destination already initialized (use --force to overwrite)", err)
				case errors.Is(err, extract.ErrInitInProgress):
					return model.WrapCLIError(model.ExitInitInProgress,
						"another initialization is in progress", err)
				default:
					return model.WrapCLIError(model.ExitGeneralError, "cannot initialize destination", err)
				}
			}
			defer guard.Release()

			cat := catalog.NewDefault()
			ctx := cmd.Context()

			// Option flags may name features by short name; expand them so
			// they match the resolved feature IDs.
			if len(options) > 0 {
				normalized := make(map[string]map[string]string, len(options))
				for name, kv := range options {
					if id, ok := cat.ExpandShortName(name); ok {
						name = id
					}
					normalized[name] = kv
				}
				options = normalized
			}

			// Resolve the base template: either a catalog entry or the
			// manifest of an extracted template package.
			var base model.Template
			var extractedFiles []string
			extractor := extract.NewExtractor(logger)

			if packageRef != "" {
				ref, err := parsePackageRef(packageRef)
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "invalid --package value", err)
				}
				unpack := extractor.Unpack(ctx, ref, dest, extract.Options{
					ProjectName:        projectName,
					ProjectDescription: projectDesc,
					Force:              force,
				})
				if !unpack.Success {
					if ctx.Err() != nil {
						extractor.Rollback(dest, unpack.ExtractedFiles)
						return model.NewCLIError(model.ExitUserCancelled, "initialization cancelled")
					}
					code := model.ExitSourceUnreachable
					if strings.Contains(unpack.ErrorMessage, "not found") {
						code = model.ExitNotFound
					}
					return model.NewCLIError(code, unpack.ErrorMessage)
				}
				extractedFiles = unpack.ExtractedFiles
				if unpack.Manifest == nil {
					extractor.Rollback(dest, extractedFiles)
					return model.NewCLIError(model.ExitValidationFailed,
						fmt.Sprintf("package %s does not contain a %s manifest", ref, extract.ManifestFileName))
				}
				base = *unpack.Manifest
			} else {
				found, ok := cat.Template(templateID)
				if !ok {
					return model.NewCLIError(model.ExitNotFound,
						fmt.Sprintf("unknown template %q (run 'devforge templates' to list available templates)", templateID))
				}
				base = found
			}
			result.Template = base.ID

			// Resolve features: template requirements plus user requests.
			requested := append([]string{}, base.RequiredFeatures...)
			requested = append(requested, splitCommaList(featureList)...)

			resolution := resolver.Resolve(cat, requested)
			result.Conflicts = resolution.Conflicts
			result.Missing = resolution.Missing
			result.Warnings = append(result.Warnings, resolution.Warnings...)

			if !resolution.Success {
				rollback(extractor, dest, extractedFiles)
				if len(resolution.Missing) > 0 {
					printInitResult(result)
					return model.NewCLIError(model.ExitNotFound,
						"unknown features: "+strings.Join(resolution.Missing, ", "))
				}
				printInitResult(result)
				return model.NewCLIError(model.ExitResolutionConflict,
					"feature resolution failed: "+describeConflicts(resolution.Conflicts))
			}

			selected := make([]devcontainer.SelectedFeature, 0, len(resolution.Resolved))
			for _, f := range resolution.Resolved {
				result.Features = append(result.Features, f.ID)
				selected = append(selected, devcontainer.SelectedFeature{
					Feature: f,
					Options: options[f.ID],
				})
			}

			// Recommended extensions follow the template's category; the
			// user's explicit requests come last so their order survives
			// deduplication.
			extensions := append([]string{}, cat.ExtensionsFor(base.Category)...)
			extensions = append(extensions, splitCommaList(extensionList)...)

			for key := range base.RequiredEnvVars {
				if _, ok := envVars[key]; !ok {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("required environment variable %s was not provided (set it with --env %s=...)", key, key))
				}
			}

			merged := devcontainer.Merge(base, devcontainer.MergeInput{
				Name:              projectName,
				Features:          selected,
				Extensions:        extensions,
				Ports:             ports,
				EnvVars:           envVars,
				PostCreateCommand: postCreate,
				Compose:           composeMode,
				ComposeService:    composeService,
				Overlay:           overlay,
			})

			validation := devcontainer.Validate(merged, result.Features, base.RequiresCompose)
			result.Warnings = append(result.Warnings, validation.Warnings...)
			if !validation.IsValid {
				rollback(extractor, dest, extractedFiles)
				result.Validation = validation.Errors
				printInitResult(result)
				return model.NewCLIError(model.ExitValidationFailed,
					"configuration is invalid: "+validation.Errors[0].Error())
			}

			gen := devcontainer.WriteConfiguration(ctx, merged, dest, devcontainer.GenerateOptions{
				ComposeFragment: base.ComposeFragment,
			})
			if !gen.Success {
				rollback(extractor, dest, append(extractedFiles, gen.GeneratedFiles...))
				if ctx.Err() != nil {
					return model.NewCLIError(model.ExitUserCancelled, "initialization cancelled")
				}
				result.Validation = gen.ValidationErrors
				printInitResult(result)
				return model.NewCLIError(model.ExitGeneralError, gen.ErrorMessage)
			}

			result.Success = true
			result.GeneratedFiles = append(extractedFiles, gen.GeneratedFiles...)
			printInitResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Base template ID from the built-in catalog")
	cmd.Flags().StringVarP(&packageRef, "package", "p", "", "Template package archive (local path or URL)")
	cmd.Flags().StringVarP(&featureList, "features", "f", "", "Comma-separated feature IDs or short names")
	cmd.Flags().StringArrayVar(&optionFlags, "option", nil, "Feature option override as feature:key=value (repeatable)")
	cmd.Flags().StringVar(&portList, "ports", "", "Comma-separated ports to forward")
	cmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "Container environment variable as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&extensionList, "extensions", "", "Comma-separated editor extension IDs")
	cmd.Flags().StringVar(&postCreate, "post-create", "", "Override the post-create command")
	cmd.Flags().BoolVar(&composeMode, "compose", false, "Generate a docker-compose based configuration")
	cmd.Flags().StringVar(&composeService, "compose-service", "", "Primary compose service name (default: app)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing devcontainer configuration")
	cmd.Flags().StringVarP(&projectName, "name", "n", "", "Project name (default: destination directory name)")
	cmd.Flags().StringVar(&projectDesc, "description", "", "Project description substituted into package files")
	cmd.Flags().StringVar(&overlayPath, "custom-settings", "", "devcontainer.json fragment applied with highest precedence")

	return cmd
}

// rollback removes files written so far. No-op on an empty list.
func rollback(e *extract.Extractor, dest string, files []string) {
	if len(files) > 0 {
		e.Rollback(dest, files)
	}
}

// parsePackageRef classifies a --package value as a URL or a local path.
func parsePackageRef(value string) (extract.PackageRef, error) {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return extract.PackageRef{URL: value}, nil
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return extract.PackageRef{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return extract.PackageRef{}, fmt.Errorf("package file not found: %s", value)
	}
	return extract.PackageRef{Path: abs}, nil
}

// parseKeyValueFlags parses repeated KEY=VALUE flags into a map.
func parseKeyValueFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not in KEY=VALUE form", f)
		}
		out[key] = value
	}
	return out, nil
}

// parseOptionFlags parses repeated feature:key=value flags into a
// per-feature option map keyed by the feature name as given. Short names
// are expanded to full IDs by the caller once the catalog is available.
func parseOptionFlags(flags []string) (map[string]map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]string)
	for _, f := range flags {
		feature, rest, ok := strings.Cut(f, ":")
		if !ok || feature == "" {
			return nil, fmt.Errorf("%q is not in feature:key=value form", f)
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not in feature:key=value form", f)
		}
		if out[feature] == nil {
			out[feature] = make(map[string]string)
		}
		out[feature][key] = value
	}
	return out, nil
}

// splitCommaList splits a comma-separated flag value, trimming whitespace
// and dropping empty entries.
func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// describeConflicts formats blocking conflicts for an error message.
func describeConflicts(conflicts []model.Conflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Severity.Blocking() {
			parts = append(parts, c.Reason)
		}
	}
	return strings.Join(parts, "; ")
}

// printInitResult writes the init outcome to stdout in the selected
// format. Warnings always go to stderr in text mode.
func printInitResult(result initResult) {
	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	printWarnings(result.Warnings)
	if !result.Success {
		return
	}

	fmt.Printf("Initialized devcontainer configuration in %s\n", result.Destination)
	fmt.Printf("  Template: %s\n", result.Template)
	if len(result.Features) > 0 {
		fmt.Printf("  Features: %s\n", strings.Join(result.Features, ", "))
	}
	for _, f := range result.GeneratedFiles {
		fmt.Printf("  Wrote %s\n", f)
	}
}
