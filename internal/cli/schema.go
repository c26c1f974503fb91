package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ghindexer/internal/flags"
	"ghindexer/internal/model"
)

var schemaOpts struct {
	kind       string
	collection string
	force      bool
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create an empty collection for a kind",
	Long: `Create a collection with the schema of a kind. Sync commands create their
collections on demand; use this to prepare one ahead of time or, with
--force, to drop and recreate it.`,
	Example: `  ghindexer schema --kind repos
  ghindexer schema --kind issues --collection gh_issues_acme_widgets --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseKind(schemaOpts.kind)
		if err != nil {
			return err
		}
		return runSession(cmd, false, func(ctx context.Context, s *session) error {
			name := schemaOpts.collection
			if name == "" {
				if kind != model.KindRepos {
					return fmt.Errorf("--%s is required for kind %s", flags.FlagCollection, kind)
				}
				name = s.cfg.Index.Collections.Repos
			}
			if err := s.engine.CreateCollection(ctx, name, kind, schemaOpts.force); err != nil {
				return err
			}
			s.logger.Info("created collection", "collection", name, "kind", kind)
			return nil
		})
	},
}

func init() {
	f := schemaCmd.Flags()
	f.StringVar(&schemaOpts.kind, flags.FlagKind, string(model.KindRepos), "Kind: repos|issues|labels|milestones|prs|projects")
	f.StringVar(&schemaOpts.collection, flags.FlagCollection, "", "Collection name (default: the repositories collection for --kind repos)")
	f.BoolVar(&schemaOpts.force, flags.FlagForce, false, "Drop the collection first if it exists")
	rootCmd.AddCommand(schemaCmd)
}
