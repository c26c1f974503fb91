package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ghindexer/internal/engine"
	"ghindexer/internal/flags"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Discover repositories and write repositories.yml",
	Long: `Discover repositories and upsert them into the repositories collection.

Newly discovered repositories start inactive; repositories already indexed
keep their active flag. After the run, repositories.yml in the config
directory lists every indexed repository with its flag. Edit it and run
` + "`ghindexer repos apply`" + ` to choose what the other commands index.

Discovery modes (--grab):
	affiliated  every organization you belong to, then your own repositories
	org         the repositories of --org
	repo        the single repository --repo (always activated)`,
	Example: `  ghindexer repos
  ghindexer repos --grab org --org acme --force
  ghindexer repos --grab repo --org acme --repo widgets
  ghindexer repos --grab repo --repo https://github.com/acme/widgets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, true, func(ctx context.Context, s *session) error {
			if err := s.cfg.ValidateGrab(); err != nil {
				return err
			}
			return s.engine.SyncRepos(ctx, engine.RepoOptions{
				Grab:  s.cfg.Sync.Grab,
				Org:   s.cfg.Sync.Org,
				Repo:  s.cfg.Sync.Repo,
				Force: s.cfg.Sync.Force,
			})
		})
	},
}

var reposApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Copy the active flags of repositories.yml into the index",
	Long: `Read repositories.yml and update the active flag of every indexed
repository it lists. Does not contact GitHub.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, false, func(ctx context.Context, s *session) error {
			return s.engine.ApplyRepoConfig(ctx)
		})
	},
}

func init() {
	f := reposCmd.Flags()
	f.StringVar(&cfg.Sync.Grab, flags.FlagGrab, cfg.Sync.Grab,
		fmt.Sprintf("Discovery mode: %s|%s|%s", engine.GrabAffiliated, engine.GrabOrg, engine.GrabRepo))
	f.StringVar(&cfg.Sync.Org, flags.FlagOrg, "", "Organization name or URL (for --grab org and --grab repo)")
	f.StringVar(&cfg.Sync.Repo, flags.FlagRepo, "", "Repository name, ORG/REPO or URL (for --grab repo)")
	f.BoolVar(&cfg.Sync.Force, flags.FlagForce, false, "Mark every discovered repository active")

	reposCmd.AddCommand(reposApplyCmd)
	rootCmd.AddCommand(reposCmd)
}
