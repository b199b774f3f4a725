// data.go holds the static built-in catalog entries: the features,
// templates, and extension packs available without any discovery source.
//
// Entries are returned as fresh slices from functions (not package-level
// vars) so no caller can mutate the catalog's backing data.
package catalog

import "github.com/devforge-io/devforge/internal/model"

// builtinFeatures returns the feature definitions shipped with the binary.
// IDs follow the "devforge/<name>@<major>" convention.
func builtinFeatures() []model.Feature {
	return []model.Feature{
		{
			ID:       "devforge/git@1",
			Name:     "Git",
			Category: model.CategoryTool,
			Options: map[string]model.FeatureOption{
				"version": {Type: "string", Default: "latest"},
			},
		},
		{
			ID:           "devforge/github-cli@1",
			Name:         "GitHub CLI",
			Category:     model.CategoryTool,
			Dependencies: []string{"devforge/git@1"},
		},
		{
			ID:       "devforge/dotnet@1",
			Name:     ".NET SDK",
			Category: model.CategoryRuntime,
			Options: map[string]model.FeatureOption{
				"version": {Type: "enum", Default: "8.0", Enum: []string{"6.0", "7.0", "8.0"}},
			},
		},
		{
			ID:       "devforge/node@1",
			Name:     "Node.js",
			Category: model.CategoryRuntime,
			Options: map[string]model.FeatureOption{
				"version":             {Type: "string", Default: "20"},
				"installYarn":         {Type: "boolean", Default: "false"},
				"nodeGypDependencies": {Type: "boolean", Default: "true"},
			},
		},
		{
			ID:       "devforge/python@1",
			Name:     "Python",
			Category: model.CategoryRuntime,
			Options: map[string]model.FeatureOption{
				"version": {Type: "string", Default: "3.12"},
			},
		},
		{
			ID:       "devforge/go@1",
			Name:     "Go",
			Category: model.CategoryRuntime,
			Options: map[string]model.FeatureOption{
				"version": {Type: "string", Default: "latest"},
			},
		},
		{
			ID:       "devforge/docker-cli@1",
			Name:     "Docker CLI (docker-outside-of-docker)",
			Category: model.CategoryTool,
			// docker-in-docker and docker-outside-of-docker cannot coexist:
			// both claim /var/run/docker.sock inside the container.
			ConflictsWith: []string{"devforge/docker-in-docker@1"},
		},
		{
			ID:            "devforge/docker-in-docker@1",
			Name:          "Docker in Docker",
			Category:      model.CategoryTool,
			ConflictsWith: []string{"devforge/docker-cli@1"},
		},
		{
			ID:           "devforge/terraform@1",
			Name:         "Terraform",
			Category:     model.CategoryCloud,
			Dependencies: []string{"devforge/git@1"},
		},
		{
			ID:       "devforge/kubectl@1",
			Name:     "kubectl + Helm",
			Category: model.CategoryCloud,
		},
		{
			ID:       "devforge/aws-cli@1",
			Name:     "AWS CLI",
			Category: model.CategoryCloud,
		},
		{
			ID:       "devforge/azure-cli@1",
			Name:     "Azure CLI",
			Category: model.CategoryCloud,
		},
		{
			ID:       "devforge/postgres-client@1",
			Name:     "PostgreSQL client",
			Category: model.CategoryDatabase,
		},
		{
			ID:       "devforge/redis-client@1",
			Name:     "Redis client",
			Category: model.CategoryDatabase,
		},
		{
			ID:         "devforge/nvm@1",
			Name:       "Node Version Manager",
			Category:   model.CategoryRuntime,
			Deprecated: true,
			// Superseded by devforge/node@1's version option.
			ConflictsWith:    []string{"devforge/node@1"},
			ConflictSeverity: model.SeverityWarning,
		},
	}
}

// builtinTemplates returns the template definitions shipped with the binary.
func builtinTemplates() []model.Template {
	return []model.Template{
		{
			ID:                "api",
			Name:              "REST API",
			Description:       "HTTP API service with a database client",
			Category:          model.CategoryRuntime,
			Image:             "mcr.microsoft.com/devcontainers/base:ubuntu-24.04",
			RequiredFeatures:  []string{"devforge/git@1"},
			OptionalFeatures:  []string{"devforge/postgres-client@1", "devforge/redis-client@1"},
			DefaultPorts:      []int{8080},
			PostCreateCommand: "make setup",
			DefaultEnvVars:    map[string]string{"ASPNETCORE_ENVIRONMENT": "Development"},
			DefaultExtensions: []string{"humao.rest-client"},
		},
		{
			ID:                "webapp",
			Name:              "Web Application",
			Description:       "Node-based web application with a dev server",
			Category:          model.CategoryRuntime,
			Image:             "mcr.microsoft.com/devcontainers/typescript-node:20",
			RequiredFeatures:  []string{"devforge/git@1", "devforge/node@1"},
			DefaultPorts:      []int{3000},
			PostCreateCommand: "npm install",
			DefaultEnvVars:    map[string]string{"NODE_ENV": "development"},
			DefaultExtensions: []string{"dbaeumer.vscode-eslint", "esbenp.prettier-vscode"},
		},
		{
			ID:               "cli",
			Name:             "CLI Tool",
			Description:      "Command line tool project, no exposed ports",
			Category:         model.CategoryTool,
			Image:            "mcr.microsoft.com/devcontainers/base:ubuntu-24.04",
			RequiredFeatures: []string{"devforge/git@1"},
		},
		{
			ID:               "library",
			Name:             "Library",
			Description:      "Reusable library project with test tooling",
			Category:         model.CategoryTool,
			Image:            "mcr.microsoft.com/devcontainers/base:ubuntu-24.04",
			RequiredFeatures: []string{"devforge/git@1"},
		},
		{
			ID:                "fullstack",
			Name:              "Full-Stack with Database",
			Description:       "App plus database via docker-compose",
			Category:          model.CategoryDatabase,
			Image:             "mcr.microsoft.com/devcontainers/typescript-node:20",
			RequiredFeatures:  []string{"devforge/git@1", "devforge/node@1"},
			OptionalFeatures:  []string{"devforge/postgres-client@1"},
			DefaultPorts:      []int{3000, 5432},
			PostCreateCommand: "npm install",
			RequiredEnvVars:   map[string]string{"POSTGRES_PASSWORD": "Password for the bundled PostgreSQL service"},
			RequiresCompose:   true,
			ComposeFragment: `services:
  app:
    image: mcr.microsoft.com/devcontainers/typescript-node:20
    volumes:
      - ..:/workspace:cached
    command: sleep infinity
  db:
    image: postgres:16
    restart: unless-stopped
    environment:
      POSTGRES_PASSWORD: ${POSTGRES_PASSWORD}
    ports:
      - "5432:5432"
`,
		},
		{
			ID:                "ml",
			Name:              "Machine Learning",
			Description:       "Python data science environment with Jupyter",
			Category:          model.CategoryRuntime,
			Image:             "mcr.microsoft.com/devcontainers/python:3.12",
			RequiredFeatures:  []string{"devforge/git@1", "devforge/python@1"},
			DefaultPorts:      []int{8888},
			PostCreateCommand: "pip install -r requirements.txt",
			DefaultExtensions: []string{"ms-toolsai.jupyter"},
		},
	}
}

// builtinExtensionPacks returns the per-category editor extension
// recommendations merged into generated configurations.
func builtinExtensionPacks() map[model.Category][]string {
	return map[model.Category][]string{
		model.CategoryRuntime: {
			"editorconfig.editorconfig",
		},
		model.CategoryTool: {
			"editorconfig.editorconfig",
		},
		model.CategoryDatabase: {
			"editorconfig.editorconfig",
			"mtxr.sqltools",
		},
		model.CategoryCloud: {
			"editorconfig.editorconfig",
			"hashicorp.terraform",
		},
		model.CategoryOther: {
			"editorconfig.editorconfig",
		},
	}
}
