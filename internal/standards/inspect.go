package standards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/platform"
	"github.com/agentx-labs/stackforge/internal/validate"
)

// ErrNoManifest is returned when the target has no package.json. It is
// always joined with a *errs.ValidationError.
var ErrNoManifest = errors.New("package.json not found")

// Project is an existing project to retrofit.
type Project struct {
	Dir  string
	Name string
}

// Inspect checks that dir is a writable project directory with a
// package.json and reads the project name from it.
func Inspect(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errs.Validation("target directory", dir, err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Validation("target directory", abs, "does not exist")
	}
	if !info.IsDir() {
		return nil, errs.Validation("target directory", abs, "is not a directory")
	}

	data, err := os.ReadFile(filepath.Join(abs, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		v := errs.Validation("target directory", abs, "has no package.json").
			WithSuggestion("Run setup-standards from the root of a Node project")
		return nil, fmt.Errorf("%w: %w", ErrNoManifest, v)
	}
	if err != nil {
		return nil, errs.IO("read", filepath.Join(abs, "package.json"), err)
	}

	if err := platform.CheckWritable(abs); err != nil {
		return nil, errs.Validation("target directory", abs, fmt.Sprintf("is not writable: %v", err))
	}

	return &Project{Dir: abs, Name: projectName(data, abs)}, nil
}

// projectName returns package.json's name when it passes the name rules,
// otherwise the directory name.
func projectName(pkg []byte, dir string) string {
	var meta struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(pkg, &meta) == nil && meta.Name != "" {
		if _, err := validate.Name(meta.Name); err == nil {
			return meta.Name
		}
	}
	return filepath.Base(dir)
}
