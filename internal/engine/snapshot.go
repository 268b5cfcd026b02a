package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/pathguard"
)

// Snapshot remembers the state of a few paths before an external command
// touches them, so the command's effects on those paths can be reversed.
// Files are restored byte for byte (or removed if they did not exist);
// directories that did not exist are removed with their content.
type Snapshot struct {
	mu       sync.Mutex
	files    []string
	dirs     []string
	saved    map[string]savedFile
	existed  map[string]bool
	captured bool
}

type savedFile struct {
	data    []byte
	perm    os.FileMode
	present bool
}

// NewSnapshot confines every path to the guard's root.
func NewSnapshot(g *pathguard.Guard, files, dirs []string) (*Snapshot, error) {
	s := &Snapshot{saved: map[string]savedFile{}, existed: map[string]bool{}}
	for _, rel := range files {
		p, err := g.Resolve(rel)
		if err != nil {
			return nil, err
		}
		s.files = append(s.files, p)
	}
	for _, rel := range dirs {
		p, err := g.Resolve(rel)
		if err != nil {
			return nil, err
		}
		s.dirs = append(s.dirs, p)
	}
	return s, nil
}

// Capture records the current state. It has the signature of Spawn.Prepare.
func (s *Snapshot) Capture(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.files {
		data, err := os.ReadFile(p)
		switch {
		case err == nil:
			info, serr := os.Stat(p)
			if serr != nil {
				return errs.IO("stat", p, serr)
			}
			s.saved[p] = savedFile{data: data, perm: info.Mode().Perm(), present: true}
		case errors.Is(err, fs.ErrNotExist):
			s.saved[p] = savedFile{}
		default:
			return errs.IO("read", p, err)
		}
	}
	for _, p := range s.dirs {
		_, err := os.Lstat(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.IO("stat", p, err)
		}
		s.existed[p] = err == nil
	}
	s.captured = true
	return nil
}

// Restore puts the captured state back. It has the signature of
// Spawn.Compensate. Every path is attempted; errors are joined.
func (s *Snapshot) Restore(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.captured {
		return nil
	}
	var all []error
	for _, p := range s.files {
		f := s.saved[p]
		if !f.present {
			if err := removeIfExists(p); err != nil {
				all = append(all, err)
			}
			continue
		}
		if err := os.WriteFile(p, f.data, f.perm); err != nil {
			all = append(all, errs.IO("restore", p, err))
		}
	}
	for _, p := range s.dirs {
		if s.existed[p] {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			all = append(all, errs.IO("remove", p, err))
		}
	}
	return errors.Join(all...)
}
