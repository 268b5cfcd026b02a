package manifest

// TemplateManifest describes a project template: what it adds on top of the
// standard layout and what it needs to be installed.
type TemplateManifest struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version" json:"version"`
	// Directories are extra directories created in the project.
	Directories []string `yaml:"directories,omitempty" json:"directories,omitempty"`
	// Files are payload files copied from the template directory, keeping
	// their relative path.
	Files           []string          `yaml:"files,omitempty" json:"files,omitempty"`
	Dependencies    []string          `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DevDependencies []string          `yaml:"devDependencies,omitempty" json:"devDependencies,omitempty"`
	Requires        map[string]string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Scripts         map[string]string `yaml:"scripts,omitempty" json:"scripts,omitempty"`

	// Dir is the directory the manifest was loaded from. Empty for the
	// built-in default.
	Dir string `yaml:"-" json:"-"`
}

// DefaultName is the template used when --template is not given.
const DefaultName = "default"

// BaselineDevDependencies are installed by every template and by
// setup-standards.
var BaselineDevDependencies = []string{"eslint@^9", "prettier@^3", "eslint-config-prettier@^9"}

// Default returns the built-in template used when the source directory has
// no templates/default.
func Default() *TemplateManifest {
	return &TemplateManifest{
		Name:            DefaultName,
		Description:     "Baseline project with linting and formatting standards",
		Version:         "1.0.0",
		DevDependencies: append([]string(nil), BaselineDevDependencies...),
		Scripts: map[string]string{
			"lint":   "eslint .",
			"format": "prettier --write .",
			"test":   "echo \"no tests yet\"",
		},
	}
}

// IsBuiltin reports whether m did not come from a file.
func (m *TemplateManifest) IsBuiltin() bool { return m.Dir == "" }

// AllDevDependencies returns the baseline dev dependencies followed by the
// template's own, without duplicates by package name. A template entry for
// a baseline package replaces the baseline range.
func (m *TemplateManifest) AllDevDependencies() []string {
	return mergeDeps(BaselineDevDependencies, m.DevDependencies)
}

func mergeDeps(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	index := map[string]int{}
	for _, list := range [][]string{base, extra} {
		for _, d := range list {
			name := depName(d)
			if i, ok := index[name]; ok {
				out[i] = d
				continue
			}
			index[name] = len(out)
			out = append(out, d)
		}
	}
	return out
}
