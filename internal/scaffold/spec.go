package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/manifest"
	"github.com/agentx-labs/stackforge/internal/pathguard"
	"github.com/agentx-labs/stackforge/internal/platform"
	"github.com/agentx-labs/stackforge/internal/validate"
)

// ErrCollision is returned when the target directory already exists. It is
// always joined with a *errs.ValidationError.
var ErrCollision = errors.New("target directory already exists")

// ProjectSpec is the validated input of one create-project run. It is built
// once and never modified.
type ProjectSpec struct {
	Name      string
	TargetDir string
	SourceDir string
	Template  *manifest.TemplateManifest
}

// NewProjectSpec validates name, confines the target to parentDir, loads
// the template and checks the corpus exists. Nothing is written.
func NewProjectSpec(name, parentDir, sourceDir, templateName string) (*ProjectSpec, error) {
	name, err := validate.Name(name)
	if err != nil {
		return nil, err
	}

	parent, err := filepath.Abs(parentDir)
	if err != nil {
		return nil, errs.Validation("directory", parentDir, err.Error())
	}
	info, err := os.Stat(parent)
	if err != nil {
		return nil, errs.Validation("directory", parent, "does not exist")
	}
	if !info.IsDir() {
		return nil, errs.Validation("directory", parent, "is not a directory")
	}

	target, err := pathguard.Resolve(parent, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(target); err == nil {
		return nil, collision(name, target)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.IO("stat", target, err)
	}
	if err := platform.CheckWritable(parent); err != nil {
		return nil, errs.Validation("directory", parent, "is not writable").
			WithSuggestion("Choose another location with --dir")
	}

	source, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, errs.Validation("source directory", sourceDir, err.Error())
	}
	if _, _, err := Corpus(source); err != nil {
		return nil, err
	}
	tmpl, err := manifest.Load(source, templateName)
	if err != nil {
		return nil, err
	}

	return &ProjectSpec{Name: name, TargetDir: target, SourceDir: source, Template: tmpl}, nil
}

func collision(name, target string) error {
	v := errs.Validation("name", name, fmt.Sprintf("%s already exists", target)).
		WithSuggestion("Choose a different project name or remove the existing directory")
	return fmt.Errorf("%w: %w", ErrCollision, v)
}
