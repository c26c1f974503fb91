package cli

import (
	"context"

	"github.com/spf13/cobra"

	"ghindexer/internal/flags"
	"ghindexer/internal/model"
)

// kindCommand describes one child-kind sync command.
type kindCommand struct {
	kind    model.Kind
	use     string
	aliases []string
	short   string
	long    string
}

var kindCommands = []kindCommand{
	{
		kind:  model.KindIssues,
		use:   "issues",
		short: "Incrementally index the issues of every active repository",
		long: `Index the issues of every active repository, one collection per
repository. Only issues updated since the newest indexed one are fetched.`,
	},
	{
		kind:    model.KindPullRequests,
		use:     "prs",
		aliases: []string{"pullrequests", "pulls"},
		short:   "Incrementally index the pull requests of every active repository",
		long: `Index the pull requests of every active repository, one collection per
repository. Only pull requests updated since the newest indexed one are
fetched.`,
	},
	{
		kind:  model.KindMilestones,
		use:   "milestones",
		short: "Incrementally index the milestones of every active repository",
	},
	{
		kind:  model.KindLabels,
		use:   "labels",
		short: "Index the labels of every active repository",
		long: `Index the labels of every active repository. Labels carry no reliable
update order, so each repository's collection is replaced on every run.`,
	},
	{
		kind:  model.KindProjects,
		use:   "projects",
		short: "Incrementally index classic projects of repositories and their organizations",
		long: `Index the classic projects of every active repository and of each
organization owning one, one collection per organization.`,
	},
}

func newKindCmd(k kindCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:     k.use,
		Aliases: k.aliases,
		Short:   k.short,
		Long:    k.long,
		Example: "  ghindexer " + k.use + "\n  ghindexer " + k.use + " --include 'acme/*' --exclude '*-archive'",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, true, func(ctx context.Context, s *session) error {
				return s.engine.SyncKind(ctx, k.kind, s.cfg.Sync.Include, s.cfg.Sync.Exclude)
			})
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&cfg.Sync.Include, flags.FlagInclude, nil,
		"Only repositories matching these patterns (repeatable; comma-separated accepted; ORG/REPO when the pattern has '/')")
	f.StringSliceVar(&cfg.Sync.Exclude, flags.FlagExclude, nil,
		"Skip repositories matching these patterns (repeatable; comma-separated accepted)")
	return cmd
}

func init() {
	for _, k := range kindCommands {
		rootCmd.AddCommand(newKindCmd(k))
	}
}
