package standards

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentx-labs/stackforge/internal/copier"
	"github.com/agentx-labs/stackforge/internal/engine"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/manifest"
	"github.com/agentx-labs/stackforge/internal/pathguard"
	"github.com/agentx-labs/stackforge/internal/platform"
	"github.com/agentx-labs/stackforge/internal/process"
	"github.com/agentx-labs/stackforge/internal/scaffold"
	"github.com/agentx-labs/stackforge/internal/templates"
)

// Options controls a retrofit.
type Options struct {
	CopyThreshold  int64
	Install        bool
	PackageManager process.PackageManager
	InstallTimeout time.Duration
	// LookPath reports whether a tool is installed. Nil uses process.Available.
	LookPath func(name string) error
}

// Plan is a retrofit or retraction ready to run.
type Plan struct {
	Phases []engine.Phase
	// Kept lists project-relative paths left untouched because they already
	// existed (retrofit) or were modified (retraction).
	Kept []string
}

// Planner builds setup-standards plans.
type Planner struct {
	renderer *templates.Renderer
	runner   process.Runner
}

// NewPlanner returns a Planner rendering through r and installing with
// runner.
func NewPlanner(r *templates.Renderer, runner process.Runner) *Planner {
	return &Planner{renderer: r, runner: runner}
}

// artifact is one file a retrofit may write.
type artifact struct {
	rel  string
	key  string // generated file key, or ""
	from string // corpus source path when key is ""
}

func (p *Planner) artifacts(sourceDir string) ([]artifact, []string, error) {
	corpus, corpusDirs, err := scaffold.Corpus(sourceDir)
	if err != nil {
		return nil, nil, err
	}
	dirs := scaffold.Ancestors(scaffold.DocsDir)
	for _, d := range corpusDirs {
		dirs = append(dirs, path.Join(scaffold.DocsDir, d))
	}

	var arts []artifact
	for _, f := range corpus {
		arts = append(arts, artifact{rel: path.Join(scaffold.DocsDir, f.Rel), from: f.Src})
	}
	for _, key := range templates.StandardsKeys {
		f, ok := templates.Lookup(key)
		if !ok {
			return nil, nil, fmt.Errorf("unknown generated file %q", key)
		}
		arts = append(arts, artifact{rel: f.Path, key: key})
	}
	return arts, dirs, nil
}

func (p *Planner) data(proj *Project) templates.Data {
	return templates.Data{Name: proj.Name, Version: "0.1.0", Year: time.Now().Year()}
}

// Retrofit plans the creation of every absent artifact and, when
// opts.Install is set, the dev dependency install.
func (p *Planner) Retrofit(proj *Project, sourceDir string, opts Options) (*Plan, error) {
	if opts.CopyThreshold <= 0 {
		opts.CopyThreshold = copier.DefaultThreshold
	}
	g, err := pathguard.New(proj.Dir)
	if err != nil {
		return nil, err
	}
	arts, dirs, err := p.artifacts(sourceDir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	var fileOps []engine.Operation
	for _, a := range arts {
		dst, err := g.Resolve(a.rel)
		if err != nil {
			return nil, err
		}
		if _, err := os.Lstat(dst); err == nil {
			plan.Kept = append(plan.Kept, a.rel)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.IO("stat", dst, err)
		}

		var op engine.Operation
		if a.key != "" {
			op, err = engine.NewWriteFile(g, a.rel, p.renderer.Producer(a.key, p.data(proj)), platform.FilePerm)
		} else {
			op, err = engine.NewCopyFile(g, a.from, a.rel, opts.CopyThreshold)
		}
		if err != nil {
			return nil, err
		}
		fileOps = append(fileOps, op)
	}

	byDepth := map[int][]string{}
	maxDepth := 0
	for _, d := range dirs {
		n := scaffold.Depth(d)
		byDepth[n] = append(byDepth[n], d)
		maxDepth = max(maxDepth, n)
	}
	for depth := 1; depth <= maxDepth; depth++ {
		level := byDepth[depth]
		if len(level) == 0 {
			continue
		}
		sort.Strings(level)
		var ops []engine.Operation
		for _, d := range level {
			op, err := engine.NewCreateDir(g, d)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		plan.Phases = append(plan.Phases, engine.Phase{Name: fmt.Sprintf("directories (depth %d)", depth), Ops: ops})
	}
	if len(fileOps) > 0 {
		plan.Phases = append(plan.Phases, engine.Phase{Name: "files", Ops: fileOps})
	}

	if opts.Install {
		tmpl, err := manifest.Load(sourceDir, manifest.DefaultName)
		if err != nil {
			return nil, err
		}
		op, err := scaffold.InstallOp(g, p.runner, opts.PackageManager, tmpl.AllDevDependencies(), true, opts.InstallTimeout)
		if err != nil {
			return nil, err
		}
		plan.Phases = append(plan.Phases, engine.Phase{Name: "dev dependencies", Ops: []engine.Operation{op}})
	}
	return plan, nil
}

// CheckTools verifies the package manager is installed when the plan
// installs dependencies.
func CheckTools(opts Options) error {
	if !opts.Install {
		return nil
	}
	look := opts.LookPath
	if look == nil {
		look = process.Available
	}
	pm := opts.PackageManager
	if pm == "" {
		pm = process.NPM
	}
	if err := look(string(pm)); err != nil {
		return fmt.Errorf("dependency install needs %s (use --no-install to skip): %w", pm, err)
	}
	return nil
}

// Retract plans the removal of every artifact whose content is still
// exactly what a retrofit writes, followed by the standards directories
// that end up empty. Modified files are listed in Kept. Installed
// dependencies are left alone.
func (p *Planner) Retract(proj *Project, sourceDir string) (*Plan, error) {
	g, err := pathguard.New(proj.Dir)
	if err != nil {
		return nil, err
	}
	arts, dirs, err := p.artifacts(sourceDir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	removed := map[string]bool{}
	var fileOps []engine.Operation
	for _, a := range arts {
		dst, err := g.Resolve(a.rel)
		if err != nil {
			return nil, err
		}
		current, err := os.ReadFile(dst)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errs.IO("read", dst, err)
		}

		var want []byte
		if a.key != "" {
			want, err = p.renderer.Render(a.key, p.data(proj))
		} else {
			want, err = os.ReadFile(a.from)
		}
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(current, want) {
			plan.Kept = append(plan.Kept, a.rel)
			continue
		}

		op, err := engine.NewRemoveFile(g, a.rel, want)
		if err != nil {
			return nil, err
		}
		fileOps = append(fileOps, op)
		removed[a.rel] = true
	}
	if len(fileOps) > 0 {
		plan.Phases = append(plan.Phases, engine.Phase{Name: "remove files", Ops: fileOps})
	}

	// Deepest first, so a parent is judged after its children.
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := scaffold.Depth(dirs[i]), scaffold.Depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	byDepth := map[int][]engine.Operation{}
	var depths []int
	for _, d := range dirs {
		if d != scaffold.DocsDir && !strings.HasPrefix(d, scaffold.DocsDir+"/") {
			continue
		}
		empty, err := emptyAfter(filepath.Join(proj.Dir, filepath.FromSlash(d)), d, removed)
		if err != nil {
			return nil, err
		}
		if !empty {
			continue
		}
		op, err := engine.NewRemoveDir(g, d)
		if err != nil {
			return nil, err
		}
		n := scaffold.Depth(d)
		if _, ok := byDepth[n]; !ok {
			depths = append(depths, n)
		}
		byDepth[n] = append(byDepth[n], op)
		removed[d] = true
	}
	for _, n := range depths {
		plan.Phases = append(plan.Phases, engine.Phase{Name: fmt.Sprintf("remove directories (depth %d)", n), Ops: byDepth[n]})
	}
	return plan, nil
}

// emptyAfter reports whether dir exists and holds nothing but entries
// already planned for removal.
func emptyAfter(dir, rel string, removed map[string]bool) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.IO("read", dir, err)
	}
	for _, e := range entries {
		if !removed[path.Join(rel, e.Name())] {
			return false, nil
		}
	}
	return true, nil
}
