package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed files/*.tmpl
var filesFS embed.FS

// File is one generated file of a scaffolded project.
type File struct {
	Key      string // logical name, e.g. "eslintrc"
	Path     string // destination relative to the project root
	template string
	// Static files do not depend on Data and are cached once per process.
	Static bool
}

// Generated lists every file the renderer knows, in the order they are
// written into a new project.
var Generated = []File{
	{Key: "eslintrc", Path: ".eslintrc.json", template: "eslintrc.json.tmpl", Static: true},
	{Key: "prettierrc", Path: ".prettierrc", template: "prettierrc.tmpl", Static: true},
	{Key: "editorconfig", Path: ".editorconfig", template: "editorconfig.tmpl", Static: true},
	{Key: "env", Path: ".env.example", template: "env.example.tmpl"},
	{Key: "gitignore", Path: ".gitignore", template: "gitignore.tmpl", Static: true},
	{Key: "package", Path: "package.json", template: "package.json.tmpl"},
	{Key: "readme", Path: "README.md", template: "readme.md.tmpl"},
}

// StandardsKeys are the files setup-standards retrofits into an existing
// project.
var StandardsKeys = []string{"eslintrc", "prettierrc", "editorconfig", "env"}

// Lookup returns the File registered under key.
func Lookup(key string) (File, bool) {
	for _, f := range Generated {
		if f.Key == key {
			return f, true
		}
	}
	return File{}, false
}

// Data holds the variables available to the templates.
type Data struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Scripts     map[string]string `json:"scripts"`
	Year        int               `json:"year"`
}

// Renderer renders generated files through a shared Cache.
type Renderer struct {
	cache *Cache
	tmpl  *template.Template
}

// NewRenderer parses the embedded templates once.
func NewRenderer(cache *Cache) (*Renderer, error) {
	if cache == nil {
		return nil, fmt.Errorf("nil template cache")
	}
	tmpl, err := template.New("files").Funcs(template.FuncMap{
		"json": toJSON,
	}).ParseFS(filesFS, "files/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing embedded templates: %w", err)
	}
	return &Renderer{cache: cache, tmpl: tmpl}, nil
}

// Render returns the content of the file registered under key.
func (r *Renderer) Render(key string, data Data) ([]byte, error) {
	f, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("unknown generated file %q", key)
	}
	cacheKey := f.Key
	if !f.Static {
		fp, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("fingerprinting template data: %w", err)
		}
		cacheKey += "\x00" + string(fp)
	}
	return r.cache.Get(cacheKey, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, f.template, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", f.template, err)
		}
		return buf.Bytes(), nil
	})
}

// Producer defers Render until the returned function is called, which lets
// write operations render inside the worker pool.
func (r *Renderer) Producer(key string, data Data) func() ([]byte, error) {
	return func() ([]byte, error) { return r.Render(key, data) }
}

func toJSON(v any) (string, error) {
	if m, ok := v.(map[string]string); ok && m == nil {
		v = map[string]string{}
	}
	b, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
