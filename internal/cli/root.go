package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/stackforge/internal/branding"
	"github.com/agentx-labs/stackforge/internal/config"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/log"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// Flags shared by both binaries.
var (
	configFile string
	sourceDir  string
	logLevel   string
	logFormat  string
	workers    int
	dryRun     bool
	noInstall  bool
)

// flagKeys maps shared flags onto config keys. A flag only overrides the
// config file and environment when it is set on the command line.
var flagKeys = map[string]string{
	"source-dir": config.KeySourceDir,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"workers":    config.KeyWorkers,
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Config file (default: "+config.FilePath()+")")
	f.StringVar(&sourceDir, "source-dir", "", "Directory holding templates/ and standards/ (default: "+config.DefaultSourceDir()+")")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	f.IntVar(&workers, "workers", 0, "Concurrent operations per phase (0 = number of CPUs)")
	f.BoolVar(&dryRun, "dry-run", false, "Print the plan without touching the filesystem")
	f.BoolVar(&noInstall, "no-install", false, "Skip dependency installation")

	cmd.Version = buildVersion
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
}

// setBuildInfo records ldflags values on both commands.
func setBuildInfo(version, commit, date string) {
	buildVersion, buildCommit, buildDate = version, commit, date
	for _, cmd := range []*cobra.Command{createCmd, setupCmd} {
		cmd.Version = version
		cmd.SetVersionTemplate(versionLine(cmd.Name()) + "\n")
	}
}

func versionLine(name string) string {
	return fmt.Sprintf("%s (%s) version %s (commit: %s, built: %s)",
		name, branding.ProductName(), buildVersion, buildCommit, buildDate)
}

// longHelp prefixes a command's help text with the product line.
func longHelp(body string) string {
	return branding.DisplayName() + ": " + branding.Description() + ".\n\n" + body
}

// loadSettings reads config file, environment and flags, in increasing
// precedence, and returns the settings with a logger built from them.
func loadSettings(cmd *cobra.Command) (*config.Settings, *slog.Logger, error) {
	v := config.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, nil, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	s, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(log.Config{Level: s.LogLevel, Format: s.LogFormat, Output: cmd.ErrOrStderr()})
	logger.Debug("settings loaded",
		"config", v.ConfigFileUsed(),
		"source_dir", s.SourceDir,
		"workers", s.Workers,
		"package_manager", s.PackageManager,
	)
	return s, logger, nil
}

// execute runs cmd and prints a returned error on stderr. Validation and
// security errors are raised before anything is written, so the message
// says nothing changed.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) error {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errs.PreMutation(err) {
		fmt.Fprintln(stderr, "Nothing was changed.")
	}
	return err
}

// ExecuteCreate runs the create-project command with build info injected
// via ldflags.
func ExecuteCreate(ctx context.Context, version, commit, date string) error {
	setBuildInfo(version, commit, date)
	return execute(ctx, createCmd, createCmd.ErrOrStderr())
}

// ExecuteSetup runs the setup-standards command with build info injected
// via ldflags.
func ExecuteSetup(ctx context.Context, version, commit, date string) error {
	setBuildInfo(version, commit, date)
	return execute(ctx, setupCmd, setupCmd.ErrOrStderr())
}
