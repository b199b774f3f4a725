package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devforge-io/devforge/internal/catalog"
	"github.com/devforge-io/devforge/internal/model"
)

// NewFeaturesCommand creates the features command that lists the features
// available for use with 'devforge init --features'.
func NewFeaturesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "features",
		Short: "List available devcontainer features",
		Long: `List the features that can be added to a devcontainer configuration.

Features are referenced by short name (e.g. "node") or by full ID
(e.g. "devforge/node@1"). Selecting a feature pulls in its declared
dependencies automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.NewDefault()

			var features []model.Feature
			if category != "" {
				parsed := model.ParseCategory(category)
				// ParseCategory folds unknowns into "other"; an explicit
				// filter for a bogus category should fail instead.
				if parsed == model.CategoryOther && !strings.EqualFold(category, string(model.CategoryOther)) {
					return model.NewCLIError(model.ExitNotFound,
						fmt.Sprintf("unknown category %q (valid: runtime, tool, database, cloud, other)", category))
				}
				features = cat.FeaturesByCategory(parsed)
			} else {
				features = cat.Features()
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(features, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDEPENDS ON\tCONFLICTS WITH")
			for _, f := range features {
				name := f.Name
				if f.Deprecated {
					name += " (deprecated)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					f.ID, name, f.Category,
					strings.Join(f.Dependencies, ", "),
					strings.Join(f.ConflictsWith, ", "))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category (runtime, tool, database, cloud, other)")

	return cmd
}
