package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ghindexer/internal/config"
	"ghindexer/internal/engine"
	"ghindexer/internal/fetcher"
	"ghindexer/internal/flags"
	gh "ghindexer/internal/github"
	"ghindexer/internal/index"
	"ghindexer/internal/output"
	"ghindexer/internal/quota"
)

// session is everything one command needs: the merged config, the index,
// the output sinks and, for commands that talk to GitHub, the client.
type session struct {
	dir    string
	cfg    *config.Config
	logger *slog.Logger
	store  index.Store
	out    *output.Manager
	client *gh.Client
	engine *engine.Engine
}

// loadConfig reads config.yml from the resolved config directory and lays
// the flags the user actually set on top of it.
func loadConfig(cmd *cobra.Command) (dir string, merged *config.Config, created bool, err error) {
	dir, err = config.ResolveDir(configDirFlag)
	if err != nil {
		return "", nil, false, err
	}
	merged, created, err = config.Load(dir)
	if err != nil {
		return "", nil, false, err
	}
	applyOverrides(cmd, merged)
	if err := merged.Validate(); err != nil {
		return "", nil, false, err
	}
	return dir, merged, created, nil
}

func applyOverrides(cmd *cobra.Command, merged *config.Config) {
	fl := cmd.Flags()
	if fl.Changed(flags.FlagToken) {
		merged.GitHub.Token = overrides.token
	}
	if fl.Changed(flags.FlagLogin) {
		merged.GitHub.Login = overrides.login
	}
	if fl.Changed(flags.FlagEndpoint) {
		merged.GitHub.Endpoint = overrides.endpoint
	}
	if fl.Changed(flags.FlagIndexBackend) {
		merged.Index.Backend = overrides.backend
	}
	if fl.Changed(flags.FlagIndexDSN) {
		merged.Index.DSN = overrides.dsn
	}
	if fl.Changed(flags.FlagMaxNodes) {
		merged.Fetch.MaxNodes = overrides.maxNodes
	}
	merged.Sync = cfg.Sync
	merged.Output = cfg.Output
	merged.Runtime = cfg.Runtime
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession prepares a command run. withGitHub also resolves a token and
// builds the GitHub client; commands that only touch the index skip it.
func openSession(ctx context.Context, cmd *cobra.Command, withGitHub bool) (*session, error) {

	dir, merged, created, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if merged.Output.NoColor {
		color.NoColor = true
	}

	s := &session{dir: dir, cfg: merged, logger: newLogger(os.Stderr, merged.Runtime.Verbose)}
	if created {
		s.logger.Info("created default configuration", "path", filepath.Join(dir, config.FileName))
	}

	s.store, err = index.Open(ctx, merged.Index.Backend, merged.IndexDSN(dir))
	if err != nil {
		return nil, err
	}

	if withGitHub {
		if err := s.connect(ctx); err != nil {
			_ = s.store.Close()
			return nil, err
		}
	}

	s.out, err = newOutputManager(cmd, merged.Output)
	if err != nil {
		_ = s.store.Close()
		return nil, err
	}

	var src engine.Source
	if s.client != nil {
		src = fetcher.New(s.client)
	}
	e := engine.New(merged, dir, s.store, src)
	e.Governor = quota.NewGovernor(quota.WithBuffer(merged.Fetch.QuotaBuffer), quota.WithLogger(s.logger))
	e.Output = s.out
	e.Logger = s.logger
	e.Stdout = cmd.OutOrStdout()
	if len(merged.Output.Emit) > 0 {
		// stdout carries the event stream.
		e.Stdout = cmd.ErrOrStderr()
	}
	s.engine = e
	return s, nil
}

func (s *session) connect(ctx context.Context) error {
	host, err := endpointHost(s.cfg.GitHub.Endpoint)
	if err != nil {
		return err
	}
	token, source, err := gh.ResolveAuthToken(ctx, s.cfg.GitHub.Token, host)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: GitHub auth token is required; set --%s, github.token in %s, GITHUB_TOKEN, or run `gh auth login`",
			engine.ErrPrecondition, flags.FlagToken, config.FileName)
	}
	s.logger.Debug("resolved GitHub token", "source", string(source), "host", host)

	s.client, err = gh.NewClient(ctx, token,
		gh.WithVerbose(s.cfg.Runtime.Verbose, os.Stderr),
		gh.WithEndpoint(s.cfg.GitHub.Endpoint),
	)
	return err
}

// endpointHost is the host a token is looked up for: github.com unless a
// GitHub Enterprise Server endpoint is configured.
func endpointHost(endpoint string) (string, error) {
	if endpoint == "" {
		return "github.com", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid --%s value %q: %w", flags.FlagEndpoint, endpoint, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "api.github.com" {
		return "github.com", nil
	}
	return host, nil
}

func newOutputManager(cmd *cobra.Command, o config.Output) (*output.Manager, error) {
	m := output.NewManager(output.NewRunID())

	stderr := cmd.ErrOrStderr()
	if err := m.AddSink(output.NewConsoleSink(stderr, !o.NoColor && !color.NoColor)); err != nil {
		return nil, err
	}
	for _, format := range o.Emit {
		sink, err := output.NewEmitSink(cmd.OutOrStdout(), strings.ToLower(strings.TrimSpace(format)))
		if err != nil {
			return nil, err
		}
		if err := m.AddSink(sink); err != nil {
			return nil, err
		}
	}
	if o.Report != "" {
		sink, err := output.NewReportSink(o.Report)
		if err != nil {
			return nil, err
		}
		if err := m.AddSink(sink); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.out != nil {
		if err := s.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing output: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index: %w", err))
		}
	}
	return errors.Join(errs...)
}

// runSession opens a session, runs fn, and closes the session. A run error
// wins over a close error.
func runSession(cmd *cobra.Command, withGitHub bool, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, cmd, withGitHub)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}
