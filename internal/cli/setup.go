package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/stackforge/internal/branding"
	"github.com/agentx-labs/stackforge/internal/config"
	"github.com/agentx-labs/stackforge/internal/process"
	"github.com/agentx-labs/stackforge/internal/standards"
	"github.com/agentx-labs/stackforge/internal/templates"
)

var setupRollback bool

var setupCmd = &cobra.Command{
	Use:   branding.SetupCommand() + " [target-directory]",
	Short: "Add the coding standards to an existing project",
	Long: longHelp(`Retrofit an existing Node project with the standards corpus under
docs/standards, the shared lint, format and editor configuration, and the
baseline dev dependencies. Files that already exist are never overwritten.

With --rollback, every retrofitted file whose content is unchanged is
removed again, along with standards directories left empty. Edited files
and installed dependencies are kept.

Examples:
  setup-standards
  setup-standards ../legacy-app --no-install
  setup-standards --rollback`),
	Args: cobra.MaximumNArgs(1),
	RunE: runSetup,
}

func init() {
	addCommonFlags(setupCmd)
	setupCmd.Flags().BoolVar(&setupRollback, "rollback", false, "Remove the standards added by a previous run")
}

func setupOptions(s *config.Settings) standards.Options {
	return standards.Options{
		CopyThreshold:  s.CopyThreshold,
		Install:        !noInstall,
		PackageManager: s.PackageManager,
		InstallTimeout: s.InstallTimeout,
	}
}

func runSetup(cmd *cobra.Command, args []string) error {
	s, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	proj, err := standards.Inspect(target)
	if err != nil {
		return err
	}
	logger.Info("inspected project", "dir", proj.Dir, "name", proj.Name, "rollback", setupRollback)

	renderer, err := templates.NewRenderer(templates.NewCache())
	if err != nil {
		return err
	}
	planner := standards.NewPlanner(renderer, &process.ExecRunner{Logger: logger})

	var plan *standards.Plan
	headline := "Standards added to " + proj.Dir
	if setupRollback {
		plan, err = planner.Retract(proj, s.SourceDir)
		headline = "Standards removed from " + proj.Dir
	} else {
		opts := setupOptions(s)
		if !dryRun {
			if err := standards.CheckTools(opts); err != nil {
				return err
			}
		}
		plan, err = planner.Retrofit(proj, s.SourceDir, opts)
	}
	if err != nil {
		return err
	}

	writeKept(out, plan.Kept, setupRollback)
	if len(plan.Phases) == 0 {
		fmt.Fprintln(out, "Nothing to do.")
		return nil
	}
	res, err := runPlan(ctx, out, plan.Phases, s.Workers, dryRun, logger)
	if err != nil || res == nil {
		return err
	}
	writeSuccess(out, res, headline)
	return nil
}

// writeKept lists the files a plan leaves untouched.
func writeKept(w io.Writer, kept []string, retract bool) {
	if len(kept) == 0 {
		return
	}
	reason := "already present, left unchanged"
	if retract {
		reason = "modified since setup, kept"
	}
	fmt.Fprintf(w, "%d files %s:\n", len(kept), reason)
	for _, k := range kept {
		fmt.Fprintf(w, "  %s\n", k)
	}
	fmt.Fprintln(w)
}
