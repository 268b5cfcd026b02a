package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/pathguard"
	"github.com/agentx-labs/stackforge/internal/validate"
)

// FileName is the manifest file inside a template directory.
const FileName = "template.yaml"

// TemplatesDir is the directory under the source dir holding templates.
const TemplatesDir = "templates"

// Parse validates data against the schema, decodes it, and checks the
// fields the schema cannot express. source names the manifest in errors.
func Parse(data []byte, source string) (*TemplateManifest, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, errs.Validation("template", source, err.Error())
	}
	if !result.Valid {
		e := errs.Validation("template", source, "manifest does not match the template schema")
		for _, issue := range result.Issues {
			e.WithSuggestion(issue.String())
		}
		return nil, e
	}

	var m TemplateManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errs.Validation("template", source, fmt.Sprintf("decoding manifest: %v", err))
	}
	if err := check(&m, source); err != nil {
		return nil, err
	}
	return &m, nil
}

// check applies the semantic rules: semver version, allow-listed
// dependencies, parseable tool constraints, and relative paths that stay
// inside the project.
func check(m *TemplateManifest, source string) error {
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(m.Version, "v")); err != nil {
		return errs.Validation("template version", m.Version, fmt.Sprintf("%s: not a semantic version", source))
	}
	for _, list := range [][]string{m.Dependencies, m.DevDependencies} {
		for _, d := range list {
			if err := validate.Dependency(d); err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
		}
	}
	for tool, constraint := range m.Requires {
		if err := validate.Arg(tool); err != nil {
			return fmt.Errorf("%s: requires: %w", source, err)
		}
		if _, err := semver.NewConstraint(constraint); err != nil {
			return errs.Validation("requires", tool+" "+constraint, fmt.Sprintf("%s: not a version constraint", source))
		}
	}
	for _, list := range [][]string{m.Directories, m.Files} {
		for _, p := range list {
			if err := checkRelative(p); err != nil {
				return errs.Validation("template path", p, fmt.Sprintf("%s: %s", source, err))
			}
		}
	}
	return nil
}

func checkRelative(p string) error {
	if strings.Contains(p, `\`) {
		return errors.New("use forward slashes")
	}
	if path.IsAbs(p) || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return errors.New("must be relative")
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must stay inside the project")
	}
	return nil
}

// Load reads <sourceDir>/templates/<name>/template.yaml. The built-in
// default is returned for "default" when no such directory exists.
func Load(sourceDir, name string) (*TemplateManifest, error) {
	if name == "" {
		name = DefaultName
	}
	if _, err := validate.Name(name); err != nil {
		return nil, err
	}

	dir, err := pathguard.Resolve(sourceDir, path.Join(TemplatesDir, name))
	if err != nil {
		return nil, err
	}
	file := filepath.Join(dir, FileName)

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && name == DefaultName:
		if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, errs.Validation("template", name, fmt.Sprintf("%s is missing", file))
	case errors.Is(err, fs.ErrNotExist):
		e := errs.Validation("template", name, "no such template")
		if names, _ := List(sourceDir); len(names) > 0 {
			e.WithSuggestion("Available templates: " + strings.Join(names, ", "))
		}
		return nil, e
	default:
		return nil, errs.IO("read", file, err)
	}

	m, err := Parse(data, file)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, errs.Validation("template", name, fmt.Sprintf("%s declares name %q", file, m.Name))
	}
	m.Dir = dir
	return m, nil
}

// List returns the names of the templates under sourceDir, sorted. The
// built-in default is always included.
func List(sourceDir string) ([]string, error) {
	names := map[string]bool{DefaultName: true}
	entries, err := os.ReadDir(filepath.Join(sourceDir, TemplatesDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.IO("read", filepath.Join(sourceDir, TemplatesDir), err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(sourceDir, TemplatesDir, e.Name(), FileName)); err == nil {
			names[e.Name()] = true
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func depName(spec string) string {
	name, _ := validate.SplitDependency(spec)
	return name
}
