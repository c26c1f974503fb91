package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ghindexer/internal/config"
	"ghindexer/internal/engine"
	"ghindexer/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	// cfg holds the runtime-only settings bound to flags. File-backed
	// settings are loaded per command (see loadConfig).
	cfg = config.New()

	configDirFlag string
	overrides     struct {
		token, login, endpoint string
		backend, dsn           string
		maxNodes               int
	}
)

var rootCmd = &cobra.Command{
	Use:   "ghindexer",
	Short: "Mirror GitHub repositories, issues, pull requests and more into a local search index",
	Long: `ghindexer mirrors GitHub data into a local search index and keeps it up to
date incrementally: repeated runs only fetch what changed since the last run.

Workflow:
	1. ghindexer repos            discover repositories (all inactive at first)
	2. edit repositories.yml      set the repositories to index to true
	3. ghindexer repos apply      copy the flags into the index
	4. ghindexer issues           (or labels, milestones, prs, projects)

Examples:
	# Show available commands and global flags
	ghindexer --help

	# Index every repository of an organization, all active
	ghindexer repos --grab org --org acme --force
	ghindexer issues

	# Stream machine-readable events to stdout
	ghindexer prs --emit ndjson

	# Print build info
	ghindexer version

Configuration:
	Settings live in <config dir>/config.yml, created with defaults on first
	run. The config dir is --config-dir, else $GHINDEXER_CONFIG_DIR, else the
	user config directory. Global flags override file values.

Exit codes:
	0 = success
	1 = usage, configuration or unexpected error
	2 = precondition failure (no active repositories, missing repositories.yml,
	    missing GitHub token)
	3 = GitHub kept failing: more than 3 consecutive errors in one walk`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call and full error details)")
	pf.StringVar(&configDirFlag, flags.FlagConfigDir, "", "Configuration directory (default: $GHINDEXER_CONFIG_DIR or <user config dir>/ghindexer)")
	pf.StringVar(&overrides.token, flags.FlagToken, "", "GitHub token (default: config file, GITHUB_TOKEN, then `gh auth token`)")
	pf.StringVar(&overrides.login, flags.FlagLogin, "", "GitHub login of the token owner, used to name the viewer's audit trail")
	pf.StringVar(&overrides.endpoint, flags.FlagEndpoint, "", "GitHub Enterprise Server REST base URL, e.g. https://ghe.example.com/api/v3/")
	pf.StringVar(&overrides.backend, flags.FlagIndexBackend, "", "Index backend: sqlite|postgres (default from config: sqlite)")
	pf.StringVar(&overrides.dsn, flags.FlagIndexDSN, "", "Index location: sqlite file path or postgres connection string")
	pf.IntVar(&overrides.maxNodes, flags.FlagMaxNodes, 0, "Largest page requested from GitHub, 1..100 (default from config: 30)")

	pf.StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit lifecycle events to stdout: json|ndjson (repeatable; comma-separated accepted)")
	pf.StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown run report to this path")
	pf.BoolVar(&cfg.Output.NoColor, flags.FlagNoColor, false, "Disable colored output")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the command line and exits with the code of its outcome.
// Ctrl-C cancels the run; chunks already upserted stay.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := engine.ExitCode(err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(code)
}
