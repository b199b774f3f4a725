package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devforge-io/devforge/internal/catalog"
	"github.com/devforge-io/devforge/internal/config"
	"github.com/devforge-io/devforge/internal/discovery"
	"github.com/devforge-io/devforge/internal/model"
)

// templatesResult is the JSON output shape of the templates command.
type templatesResult struct {
	Templates []model.Template        `json:"templates"`
	Packages  []model.PackageSummary  `json:"packages,omitempty"`
	Errors    []discovery.SourceError `json:"sourceErrors,omitempty"`
}

// NewTemplatesCommand creates the templates command that lists available
// templates from the built-in catalog and configured package sources.
func NewTemplatesCommand() *cobra.Command {
	var (
		search  string
		tag     string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List available devcontainer templates",
		Long: `List devcontainer templates from the built-in catalog and, when
configured, template packages from local and remote sources.

Sources come from the config file (remote_feeds and local_sources).
Results from remote feeds are cached; --refresh discards the cached
entries before querying. Unreachable sources are reported as warnings
and do not hide results from the sources that answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
			}
			applyConfigLogLevel(cfg.LogLevel)
			if tag == "" {
				tag = cfg.DiscoveryTag
			}

			cat := catalog.NewDefault()
			var result templatesResult
			if search != "" {
				result.Templates = cat.SearchTemplates(search)
			} else {
				result.Templates = cat.Templates()
			}

			sources := cfg.Sources()
			if len(sources) > 0 {
				svc := discovery.NewService(discovery.NewMemoryCache(cfg.CacheTTL, nil), logger)
				if refresh {
					for _, src := range sources {
						svc.Refresh(src)
					}
				}

				var errs []discovery.SourceError
				if search != "" {
					result.Packages, errs = svc.Search(cmd.Context(), sources, search)
				} else {
					result.Packages, errs = svc.Discover(cmd.Context(), sources, tag)
				}
				result.Errors = errs
			}

			printTemplatesResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter templates and packages by a search term")
	cmd.Flags().StringVar(&tag, "tag", "", "Discovery tag for remote feeds (default from config)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the discovery cache")

	return cmd
}

func printTemplatesResult(result templatesResult) {
	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", e.Error())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDESCRIPTION")
	for _, t := range result.Templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Description)
	}
	w.Flush()

	if len(result.Packages) > 0 {
		fmt.Println()
		fmt.Println("Template packages:")
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERSION\tSOURCE\tDESCRIPTION")
		for _, p := range result.Packages {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Version, p.Source, firstLine(p.Description))
		}
		w.Flush()
	}
}

// firstLine truncates a description to its first line for table display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
