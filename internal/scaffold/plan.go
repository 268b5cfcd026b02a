package scaffold

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/agentx-labs/stackforge/internal/branding"
	"github.com/agentx-labs/stackforge/internal/copier"
	"github.com/agentx-labs/stackforge/internal/engine"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/pathguard"
	"github.com/agentx-labs/stackforge/internal/platform"
	"github.com/agentx-labs/stackforge/internal/process"
	"github.com/agentx-labs/stackforge/internal/templates"
)

// Layout is the directory tree every new project gets.
var Layout = []string{
	"src/components",
	"src/pages",
	"src/services",
	"src/utils",
	"src/hooks",
	"src/styles",
	"tests/unit",
	"tests/integration",
	DocsDir,
	"public",
}

// Options controls the optional parts of a plan.
type Options struct {
	CopyThreshold  int64
	Install        bool
	PackageManager process.PackageManager
	InstallTimeout time.Duration
	Git            bool
	GitTimeout     time.Duration
	GitIdentity    process.Identity
	CommitMessage  string
	// LookPath reports whether a tool is installed. Nil uses process.Available.
	LookPath func(name string) error
}

func (o Options) withDefaults() Options {
	if o.CopyThreshold <= 0 {
		o.CopyThreshold = copier.DefaultThreshold
	}
	if o.PackageManager == "" {
		o.PackageManager = process.NPM
	}
	if o.InstallTimeout <= 0 {
		o.InstallTimeout = process.DefaultInstallTimeout
	}
	if o.GitTimeout <= 0 {
		o.GitTimeout = process.DefaultGitTimeout
	}
	if o.CommitMessage == "" {
		o.CommitMessage = branding.CommitMessage()
	}
	if o.LookPath == nil {
		o.LookPath = process.Available
	}
	return o
}

// Planner builds create-project plans.
type Planner struct {
	renderer *templates.Renderer
	runner   process.Runner
}

// NewPlanner returns a Planner rendering through r and running tools with
// runner.
func NewPlanner(r *templates.Renderer, runner process.Runner) *Planner {
	return &Planner{renderer: r, runner: runner}
}

// source is where a planned file's bytes come from.
type source struct {
	key  string // generated file key, or "" for a copy
	from string // absolute source path for a copy
	what string // for collision messages
}

// Plan returns the phases that create spec.TargetDir. Every path is
// confined to the target, every file destination is unique, and every
// command is validated before this returns.
func (p *Planner) Plan(spec *ProjectSpec, opts Options) ([]engine.Phase, error) {
	opts = opts.withDefaults()
	g, err := pathguard.New(spec.TargetDir)
	if err != nil {
		return nil, err
	}

	files, dirs, err := p.collect(spec)
	if err != nil {
		return nil, err
	}

	phases := []engine.Phase{{Name: "project root", Ops: []engine.Operation{engine.NewCreateRoot(g)}}}

	dirPhases, err := dirPhases(g, dirs)
	if err != nil {
		return nil, err
	}
	phases = append(phases, dirPhases...)

	fileOps, err := p.fileOps(g, spec, files, opts)
	if err != nil {
		return nil, err
	}
	phases = append(phases, engine.Phase{Name: "files", Ops: fileOps})

	if opts.Install {
		installs, err := p.installPhases(g, spec, opts)
		if err != nil {
			return nil, err
		}
		phases = append(phases, installs...)
	}
	if opts.Git {
		gitPhases, err := p.gitPhases(g, opts)
		if err != nil {
			return nil, err
		}
		phases = append(phases, gitPhases...)
	}
	return phases, nil
}

// collect gathers every destination file and directory. Two sources for
// the same destination is a validation error.
func (p *Planner) collect(spec *ProjectSpec) (map[string]source, map[string]bool, error) {
	files := map[string]source{}
	dirs := map[string]bool{}

	add := func(rel string, s source) error {
		rel = path.Clean(rel)
		if prev, ok := files[rel]; ok {
			return errs.Validation("template", spec.Template.Name,
				fmt.Sprintf("%s is produced by both %s and %s", rel, prev.what, s.what))
		}
		if dirs[rel] {
			return errs.Validation("template", spec.Template.Name, fmt.Sprintf("%s is both a file and a directory", rel))
		}
		files[rel] = s
		for _, d := range Ancestors(path.Dir(rel)) {
			dirs[d] = true
		}
		return nil
	}
	addDir := func(rel string) error {
		for _, d := range Ancestors(rel) {
			if _, ok := files[d]; ok {
				return errs.Validation("template", spec.Template.Name, fmt.Sprintf("%s is both a file and a directory", d))
			}
			dirs[d] = true
		}
		return nil
	}

	for _, d := range Layout {
		if err := addDir(d); err != nil {
			return nil, nil, err
		}
	}
	for _, f := range templates.Generated {
		if err := add(f.Path, source{key: f.Key, what: "generated " + f.Path}); err != nil {
			return nil, nil, err
		}
	}

	corpus, corpusDirs, err := Corpus(spec.SourceDir)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range corpusDirs {
		if err := addDir(path.Join(DocsDir, d)); err != nil {
			return nil, nil, err
		}
	}
	for _, f := range corpus {
		if err := add(path.Join(DocsDir, f.Rel), source{from: f.Src, what: "standards/" + f.Rel}); err != nil {
			return nil, nil, err
		}
	}

	tmpl := spec.Template
	for _, d := range tmpl.Directories {
		if err := addDir(d); err != nil {
			return nil, nil, err
		}
	}
	for _, f := range tmpl.Files {
		if tmpl.IsBuiltin() {
			break
		}
		src, err := pathguard.Resolve(tmpl.Dir, f)
		if err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			return nil, nil, errs.Validation("template file", f, fmt.Sprintf("not a regular file in %s", tmpl.Dir))
		}
		if err := add(f, source{from: src, what: "template file " + f}); err != nil {
			return nil, nil, err
		}
	}
	return files, dirs, nil
}

// dirPhases creates directories one depth level per phase, so every
// parent exists before its children are created.
func dirPhases(g *pathguard.Guard, dirs map[string]bool) ([]engine.Phase, error) {
	byDepth := map[int][]string{}
	maxDepth := 0
	for d := range dirs {
		n := Depth(d)
		byDepth[n] = append(byDepth[n], d)
		maxDepth = max(maxDepth, n)
	}

	var phases []engine.Phase
	for depth := 1; depth <= maxDepth; depth++ {
		level := byDepth[depth]
		if len(level) == 0 {
			continue
		}
		sort.Strings(level)
		ops := make([]engine.Operation, 0, len(level))
		for _, d := range level {
			op, err := engine.NewCreateDir(g, d)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		phases = append(phases, engine.Phase{Name: fmt.Sprintf("directories (depth %d)", depth), Ops: ops})
	}
	return phases, nil
}

func (p *Planner) fileOps(g *pathguard.Guard, spec *ProjectSpec, files map[string]source, opts Options) ([]engine.Operation, error) {
	data := templates.Data{
		Name:        spec.Name,
		Description: spec.Template.Description,
		Version:     "0.1.0",
		Scripts:     spec.Template.Scripts,
		Year:        time.Now().Year(),
	}

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	ops := make([]engine.Operation, 0, len(rels))
	for _, rel := range rels {
		s := files[rel]
		var (
			op  engine.Operation
			err error
		)
		if s.key != "" {
			op, err = engine.NewWriteFile(g, rel, p.renderer.Producer(s.key, data), platform.FilePerm)
		} else {
			op, err = engine.NewCopyFile(g, s.from, rel, opts.CopyThreshold)
		}
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (p *Planner) installPhases(g *pathguard.Guard, spec *ProjectSpec, opts Options) ([]engine.Phase, error) {
	var phases []engine.Phase
	groups := []struct {
		name string
		deps []string
		dev  bool
	}{
		{"dependencies", spec.Template.Dependencies, false},
		{"dev dependencies", spec.Template.AllDevDependencies(), true},
	}
	for _, grp := range groups {
		if len(grp.deps) == 0 {
			continue
		}
		op, err := InstallOp(g, p.runner, opts.PackageManager, grp.deps, grp.dev, opts.InstallTimeout)
		if err != nil {
			return nil, err
		}
		phases = append(phases, engine.Phase{Name: grp.name, Ops: []engine.Operation{op}})
	}
	return phases, nil
}

// InstallOp builds an install operation whose undo restores package.json
// and the lock file and removes node_modules if the install created it.
func InstallOp(g *pathguard.Guard, runner process.Runner, pm process.PackageManager, deps []string, dev bool, timeout time.Duration) (engine.Operation, error) {
	if pm == "" {
		pm = process.NPM
	}
	cmd, err := process.Install(pm, g.Root(), deps, dev, timeout)
	if err != nil {
		return nil, err
	}
	snap, err := engine.NewSnapshot(g, []string{"package.json", pm.LockFile()}, []string{"node_modules"})
	if err != nil {
		return nil, err
	}
	kind := "dependencies"
	if dev {
		kind = "dev dependencies"
	}
	return engine.NewSpawn(engine.Spawn{
		Description: fmt.Sprintf("install %d %s with %s", len(deps), kind, pm),
		Runner:      runner,
		Command:     cmd,
		Prepare:     snap.Capture,
		Compensate:  snap.Restore,
	})
}

func (p *Planner) gitPhases(g *pathguard.Guard, opts Options) ([]engine.Phase, error) {
	snap, err := engine.NewSnapshot(g, nil, []string{".git"})
	if err != nil {
		return nil, err
	}
	root := g.Root()
	specs := []struct {
		phase string
		spawn engine.Spawn
	}{
		{"git init", engine.Spawn{
			Command:    process.GitInit(root, opts.GitTimeout),
			Prepare:    snap.Capture,
			Compensate: snap.Restore,
		}},
		{"git add", engine.Spawn{Command: process.GitAddAll(root, opts.GitTimeout)}},
		{"git commit", engine.Spawn{
			Description: "commit initial scaffold",
			Command:     process.GitCommit(root, opts.CommitMessage, opts.GitIdentity, opts.GitTimeout),
		}},
	}

	phases := make([]engine.Phase, 0, len(specs))
	for _, s := range specs {
		s.spawn.Runner = p.runner
		op, err := engine.NewSpawn(s.spawn)
		if err != nil {
			return nil, err
		}
		phases = append(phases, engine.Phase{Name: s.phase, Ops: []engine.Operation{op}})
	}
	return phases, nil
}

// CheckRequirements verifies, before anything is written, that the tools
// the plan will run are installed and that the template's version
// requirements hold.
func CheckRequirements(ctx context.Context, spec *ProjectSpec, opts Options, runner process.Runner) error {
	opts = opts.withDefaults()
	if opts.Install {
		if err := opts.LookPath(string(opts.PackageManager)); err != nil {
			return fmt.Errorf("dependency install needs %s (use --no-install to skip): %w", opts.PackageManager, err)
		}
	}
	if opts.Git {
		if err := opts.LookPath("git"); err != nil {
			return fmt.Errorf("repository setup needs git (use --no-git to skip): %w", err)
		}
	}

	tools := make([]string, 0, len(spec.Template.Requires))
	for tool := range spec.Template.Requires {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		if err := opts.LookPath(tool); err != nil {
			return fmt.Errorf("template %s requires %s: %w", spec.Template.Name, tool, err)
		}
		if err := process.CheckVersion(ctx, runner, tool, spec.Template.Requires[tool]); err != nil {
			return err
		}
	}
	return nil
}
