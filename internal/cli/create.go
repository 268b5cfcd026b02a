package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/stackforge/internal/branding"
	"github.com/agentx-labs/stackforge/internal/config"
	"github.com/agentx-labs/stackforge/internal/manifest"
	"github.com/agentx-labs/stackforge/internal/process"
	"github.com/agentx-labs/stackforge/internal/scaffold"
	"github.com/agentx-labs/stackforge/internal/templates"
)

var (
	createTemplate  string
	createParentDir string
	createNoGit     bool
)

var createCmd = &cobra.Command{
	Use:   branding.CreateCommand() + " <project-name>",
	Short: "Create a new project from a template",
	Long: longHelp(`Create a new project directory with the standard layout, the standards
corpus under docs/standards, generated config files, installed dependencies
and an initial git commit.

Every step is recorded; if any step fails, everything already created is
undone in reverse order and the parent directory is left as it was.

Examples:
  create-project demo-app
  create-project api-server --template service --dir ~/work
  create-project demo-app --dry-run`),
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	addCommonFlags(createCmd)
	f := createCmd.Flags()
	f.StringVarP(&createTemplate, "template", "t", manifest.DefaultName, "Template under <source-dir>/templates")
	f.StringVar(&createParentDir, "dir", ".", "Parent directory of the new project")
	f.BoolVar(&createNoGit, "no-git", false, "Skip git init and the initial commit")
}

// createOptions turns settings and flags into planner options.
func createOptions(s *config.Settings) scaffold.Options {
	git := s.GitEnabled && !createNoGit
	return scaffold.Options{
		CopyThreshold:  s.CopyThreshold,
		Install:        !noInstall,
		PackageManager: s.PackageManager,
		InstallTimeout: s.InstallTimeout,
		Git:            git,
		GitTimeout:     s.GitTimeout,
		GitIdentity:    s.GitIdentity,
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	spec, err := scaffold.NewProjectSpec(args[0], createParentDir, s.SourceDir, createTemplate)
	if err != nil {
		return err
	}
	logger.Info("creating project", "name", spec.Name, "target", spec.TargetDir, "template", spec.Template.Name)

	opts := createOptions(s)
	runner := &process.ExecRunner{Logger: logger}
	if !dryRun {
		if err := scaffold.CheckRequirements(ctx, spec, opts, runner); err != nil {
			return err
		}
	}

	renderer, err := templates.NewRenderer(templates.NewCache())
	if err != nil {
		return err
	}
	phases, err := scaffold.NewPlanner(renderer, runner).Plan(spec, opts)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "Would create %s from template %q\n\n", spec.TargetDir, spec.Template.Name)
	}
	res, err := runPlan(ctx, out, phases, s.Workers, dryRun, logger)
	if err != nil || res == nil {
		return err
	}

	writeSuccess(out, res, fmt.Sprintf("Created %s in %s", spec.Name, spec.TargetDir))
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  cd %s\n", spec.TargetDir)
	if !opts.Install {
		fmt.Fprintf(out, "  %s install\n", s.PackageManager)
	}
	return nil
}
