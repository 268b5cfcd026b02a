package pathguard

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/stackforge/internal/errs"
)

// Guard resolves candidates against a fixed root.
type Guard struct {
	root      string // as given, absolute and clean
	canonical string // symlinks resolved
}

// New creates a Guard rooted at base, which must be absolute.
func New(base string) (*Guard, error) {
	if !filepath.IsAbs(base) {
		return nil, errs.Security(base, "root must be an absolute path")
	}
	clean := filepath.Clean(base)
	canonical, err := Canonicalize(clean)
	if err != nil {
		return nil, errs.IO("resolve", clean, err)
	}
	return &Guard{root: clean, canonical: canonical}, nil
}

// Root returns the root the guard was created with.
func (g *Guard) Root() string { return g.root }

// Resolve returns the canonical absolute path of candidate, which must be
// relative and must stay within the root. An empty candidate or "." means
// the root itself.
func (g *Guard) Resolve(candidate string) (string, error) {
	if strings.ContainsRune(candidate, 0) {
		return "", errs.Security(candidate, "path contains a NUL byte")
	}
	if filepath.IsAbs(candidate) || filepath.VolumeName(candidate) != "" || strings.HasPrefix(candidate, "/") || strings.HasPrefix(candidate, `\`) {
		return "", errs.Security(candidate, "absolute path where a relative path was expected")
	}

	joined := filepath.Join(g.canonical, filepath.FromSlash(candidate))
	resolved, err := Canonicalize(joined)
	if err != nil {
		return "", errs.IO("resolve", joined, err)
	}
	if !Within(g.canonical, resolved) {
		return "", errs.Security(candidate, "resolves outside "+g.root)
	}
	return resolved, nil
}

// Resolve confines candidate to base in one call.
func Resolve(base, candidate string) (string, error) {
	g, err := New(base)
	if err != nil {
		return "", err
	}
	return g.Resolve(candidate)
}

// Within reports whether path is root or one of its descendants. Both
// arguments must already be canonical.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) {
		return false
	}
	relSl := filepath.ToSlash(rel)
	return relSl != ".." && !strings.HasPrefix(relSl, "../")
}

// Canonicalize cleans an absolute path and resolves the symlinks of its
// deepest existing ancestor. Missing trailing components are appended
// unchanged.
func Canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	existing := path
	var rest []string
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = append(rest, filepath.Base(existing))
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	for i := len(rest) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, rest[i])
	}
	return resolved, nil
}
