package standards

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx-labs/stackforge/internal/engine"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/process"
	"github.com/agentx-labs/stackforge/internal/templates"
)

const originalPackageJSON = `{"name":"shop","version":"1.0.0"}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "standards", "coding.md"), "# Coding\n")
	writeFile(t, filepath.Join(src, "standards", "api", "errors.md"), "# Errors\n")
	return src
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), originalPackageJSON)
	writeFile(t, filepath.Join(dir, ".prettierrc"), "{\"semi\": false}\n")
	return dir
}

func newPlanner(t *testing.T, runner process.Runner) *Planner {
	t.Helper()
	r, err := templates.NewRenderer(templates.NewCache())
	require.NoError(t, err)
	return NewPlanner(r, runner)
}

// installer mimics npm adding dev dependencies.
func installer(fail bool) func(context.Context, process.Command) (int, error) {
	return func(_ context.Context, cmd process.Command) (int, error) {
		writeErr := os.WriteFile(filepath.Join(cmd.Dir, "package.json"), []byte(`{"name":"shop","devDependencies":{}}`), 0o644)
		_ = os.WriteFile(filepath.Join(cmd.Dir, "package-lock.json"), []byte("{}"), 0o644)
		_ = os.MkdirAll(filepath.Join(cmd.Dir, "node_modules", "eslint"), 0o755)
		if writeErr != nil {
			return 1, writeErr
		}
		if fail {
			return 1, &errs.ProcessError{Argv: cmd.Argv(), ExitCode: 1}
		}
		return 0, nil
	}
}

func run(t *testing.T, plan *Plan) *engine.Result {
	t.Helper()
	return engine.NewExecutor(4, nil, nil).Run(context.Background(), plan.Phases)
}

func TestInspect(t *testing.T) {
	dir := newProject(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)
	assert.Equal(t, "shop", proj.Name)

	_, err = Inspect(t.TempDir())
	assert.ErrorIs(t, err, ErrNoManifest)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = Inspect(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestInspectFallsBackToDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "legacy-app")
	writeFile(t, filepath.Join(dir, "package.json"), `{"name":"@acme/legacy"}`)
	proj, err := Inspect(dir)
	require.NoError(t, err)
	assert.Equal(t, "legacy-app", proj.Name)
}

func TestRetrofitNeverOverwrites(t *testing.T) {
	dir := newProject(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)

	fake := &process.Fake{RunFunc: installer(false)}
	plan, err := newPlanner(t, fake).Retrofit(proj, newSource(t), Options{Install: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".prettierrc"}, plan.Kept)

	res := run(t, plan)
	require.NoError(t, res.Err)

	prettier, err := os.ReadFile(filepath.Join(dir, ".prettierrc"))
	require.NoError(t, err)
	assert.Equal(t, "{\"semi\": false}\n", string(prettier))
	assert.FileExists(t, filepath.Join(dir, ".eslintrc.json"))
	assert.FileExists(t, filepath.Join(dir, ".editorconfig"))
	assert.FileExists(t, filepath.Join(dir, ".env.example"))
	assert.FileExists(t, filepath.Join(dir, "docs", "standards", "api", "errors.md"))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"install", "--no-audit", "--no-fund", "--save-dev"}, calls[0].Args)
	assert.Contains(t, calls[0].UserArgs, "eslint@^9")
}

func TestRetrofitRollbackRestoresPackageJSON(t *testing.T) {
	dir := newProject(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)

	fake := &process.Fake{RunFunc: installer(true)}
	plan, err := newPlanner(t, fake).Retrofit(proj, newSource(t), Options{Install: true})
	require.NoError(t, err)

	res := run(t, plan)
	require.Error(t, res.Err)
	assert.False(t, res.Rollback.Partial())

	pkg, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, originalPackageJSON, string(pkg))
	assert.NoFileExists(t, filepath.Join(dir, "package-lock.json"))
	assert.NoDirExists(t, filepath.Join(dir, "node_modules"))
	assert.NoDirExists(t, filepath.Join(dir, "docs"))
	assert.NoFileExists(t, filepath.Join(dir, ".eslintrc.json"))
	assert.FileExists(t, filepath.Join(dir, ".prettierrc"))
}

func TestRetrofitKeepsPreexistingDocsDir(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "docs", "adr", "0001.md"), "# ADR\n")
	proj, err := Inspect(dir)
	require.NoError(t, err)

	plan, err := newPlanner(t, &process.Fake{}).Retrofit(proj, newSource(t), Options{})
	require.NoError(t, err)
	plan.Phases = append(plan.Phases, engine.Phase{Name: "boom", Ops: []engine.Operation{failOp{}}})

	res := run(t, plan)
	require.Error(t, res.Err)
	assert.FileExists(t, filepath.Join(dir, "docs", "adr", "0001.md"))
	assert.NoDirExists(t, filepath.Join(dir, "docs", "standards"))
}

func TestRetractRemovesOnlyUnmodified(t *testing.T) {
	dir := newProject(t)
	src := newSource(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)
	planner := newPlanner(t, &process.Fake{})

	plan, err := planner.Retrofit(proj, src, Options{})
	require.NoError(t, err)
	require.NoError(t, run(t, plan).Err)

	// The user edits one corpus file and one generated file.
	writeFile(t, filepath.Join(dir, "docs", "standards", "api", "errors.md"), "# Errors (ours)\n")
	writeFile(t, filepath.Join(dir, ".editorconfig"), "root = true\n")

	retract, err := planner.Retract(proj, src)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs/standards/api/errors.md", ".editorconfig", ".prettierrc"}, retract.Kept)

	res := run(t, retract)
	require.NoError(t, res.Err)

	assert.NoFileExists(t, filepath.Join(dir, "docs", "standards", "coding.md"))
	assert.NoFileExists(t, filepath.Join(dir, ".eslintrc.json"))
	assert.NoFileExists(t, filepath.Join(dir, ".env.example"))
	assert.FileExists(t, filepath.Join(dir, "docs", "standards", "api", "errors.md"))
	assert.FileExists(t, filepath.Join(dir, ".editorconfig"))
	assert.FileExists(t, filepath.Join(dir, ".prettierrc"), "pre-existing file differs, so it is kept")
	assert.FileExists(t, filepath.Join(dir, "package.json"))
}

func TestRetractPrunesEmptyDirectories(t *testing.T) {
	dir := newProject(t)
	src := newSource(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)
	planner := newPlanner(t, &process.Fake{})

	plan, err := planner.Retrofit(proj, src, Options{})
	require.NoError(t, err)
	require.NoError(t, run(t, plan).Err)

	retract, err := planner.Retract(proj, src)
	require.NoError(t, err)
	var names []string
	for _, ph := range retract.Phases {
		names = append(names, ph.Name)
	}
	assert.Equal(t, []string{"remove files", "remove directories (depth 3)", "remove directories (depth 2)"}, names)

	require.NoError(t, run(t, retract).Err)
	assert.NoDirExists(t, filepath.Join(dir, "docs", "standards"))
	assert.DirExists(t, filepath.Join(dir, "docs"), "docs/ itself is left in place")
}

func TestRetractRollbackRestoresFiles(t *testing.T) {
	dir := newProject(t)
	src := newSource(t)
	proj, err := Inspect(dir)
	require.NoError(t, err)
	planner := newPlanner(t, &process.Fake{})

	plan, err := planner.Retrofit(proj, src, Options{})
	require.NoError(t, err)
	require.NoError(t, run(t, plan).Err)

	retract, err := planner.Retract(proj, src)
	require.NoError(t, err)
	retract.Phases = append(retract.Phases, engine.Phase{Name: "boom", Ops: []engine.Operation{failOp{}}})

	res := run(t, retract)
	require.Error(t, res.Err)
	assert.False(t, res.Rollback.Partial())
	assert.FileExists(t, filepath.Join(dir, "docs", "standards", "api", "errors.md"))
	assert.FileExists(t, filepath.Join(dir, ".eslintrc.json"))
}

func TestCheckTools(t *testing.T) {
	missing := func(string) error { return errors.New("not found") }
	assert.NoError(t, CheckTools(Options{LookPath: missing}))
	assert.Error(t, CheckTools(Options{Install: true, LookPath: missing}))

	var asked string
	require.NoError(t, CheckTools(Options{Install: true, PackageManager: process.Yarn, LookPath: func(n string) error {
		asked = n
		return nil
	}}))
	assert.Equal(t, "yarn", asked)
}

type failOp struct{}

func (failOp) Kind() engine.Kind           { return engine.WriteFile }
func (failOp) Describe() string            { return "injected failure" }
func (failOp) Apply(context.Context) error { return errors.New("injected") }
func (failOp) Undo(context.Context) error  { return nil }
