package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// the messages that point users at a flag.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Sync.Org, flags.FlagOrg, "", "...")
//	arg := "--" + flags.FlagOrg
const (
	// Global
	FlagConfigDir    = "config-dir"
	FlagVerbose      = "verbose"
	FlagToken        = "token"
	FlagLogin        = "login"
	FlagEndpoint     = "endpoint"
	FlagIndexBackend = "index-backend"
	FlagIndexDSN     = "index-dsn"
	FlagMaxNodes     = "max-nodes"

	// Repository discovery
	FlagGrab  = "grab"
	FlagOrg   = "org"
	FlagRepo  = "repo"
	FlagForce = "force"

	// Child kinds
	FlagInclude = "include"
	FlagExclude = "exclude"

	// Schema and search
	FlagKind       = "kind"
	FlagCollection = "collection"
	FlagLimit      = "limit"

	// Output
	FlagEmit    = "emit"
	FlagReport  = "report"
	FlagNoColor = "no-color"
)
