package scaffold

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/agentx-labs/stackforge/internal/errs"
)

// CorpusDir is the standards corpus under the source directory, and
// DocsDir is where it lands in a project.
const (
	CorpusDir = "standards"
	DocsDir   = "docs/standards"
)

// excludedNames are never copied out of the corpus or a template.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// CorpusFile is one regular file of the corpus.
type CorpusFile struct {
	Src  string // absolute source path
	Rel  string // slash-separated path relative to the corpus root
	Size int64
}

// Corpus lists the regular files and directories under
// <sourceDir>/standards, sorted. Symlinks and excluded names are skipped.
func Corpus(sourceDir string) (files []CorpusFile, dirs []string, err error) {
	root := filepath.Join(sourceDir, CorpusDir)
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, errs.Validation("source directory", sourceDir, "has no "+CorpusDir+"/ directory").
				WithSuggestion("Point --source-dir at a directory containing " + CorpusDir + "/")
		}
		return nil, nil, errs.IO("stat", root, err)
	}
	if !info.IsDir() {
		return nil, nil, errs.Validation("source directory", sourceDir, CorpusDir+" is not a directory")
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if excludedNames[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			return nil
		case d.IsDir():
			dirs = append(dirs, rel)
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			files = append(files, CorpusFile{Src: p, Rel: rel, Size: fi.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, nil, errs.IO("walk", root, err)
	}

	sort.Strings(dirs)
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, dirs, nil
}

// Ancestors returns rel and each of its parent directories, shortest
// first, e.g. "a/b/c" -> ["a", "a/b", "a/b/c"].
func Ancestors(rel string) []string {
	rel = path.Clean(rel)
	if rel == "." || rel == "" {
		return nil
	}
	parent := Ancestors(path.Dir(rel))
	return append(parent, rel)
}

// Depth returns the number of path elements in rel.
func Depth(rel string) int {
	return len(Ancestors(rel))
}
