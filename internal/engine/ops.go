package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/agentx-labs/stackforge/internal/copier"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/pathguard"
	"github.com/agentx-labs/stackforge/internal/platform"
	"github.com/agentx-labs/stackforge/internal/process"
)

// Kind identifies what an operation does.
type Kind int

const (
	CreateDir Kind = iota
	WriteFile
	CopyFile
	SpawnProcess
	RemoveFile
	RemoveDir
)

func (k Kind) String() string {
	switch k {
	case CreateDir:
		return "create-dir"
	case WriteFile:
		return "write-file"
	case CopyFile:
		return "copy-file"
	case SpawnProcess:
		return "spawn-process"
	case RemoveFile:
		return "remove-file"
	case RemoveDir:
		return "remove-dir"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Operation is one reversible step of a plan.
//
// Apply either completes fully or leaves nothing behind. Undo reverses a
// completed Apply as far as it safely can; it is only called on operations
// whose Apply succeeded.
type Operation interface {
	Kind() Kind
	Describe() string
	Apply(ctx context.Context) error
	Undo(ctx context.Context) error
}

// ─── CreateDir ───────────────────────────────────────────────────────

type createDirOp struct {
	path      string
	rel       string
	exclusive bool
	created   bool
}

// NewCreateDir creates rel under the guard's root. Its parent must exist
// when the operation runs. A directory that is already there is accepted
// and left alone on undo.
func NewCreateDir(g *pathguard.Guard, rel string) (Operation, error) {
	path, err := g.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return &createDirOp{path: path, rel: rel}, nil
}

// NewCreateRoot creates the guard's root itself, which must not exist.
func NewCreateRoot(g *pathguard.Guard) Operation {
	return &createDirOp{path: g.Root(), rel: g.Root(), exclusive: true}
}

func (o *createDirOp) Kind() Kind       { return CreateDir }
func (o *createDirOp) Describe() string { return "mkdir " + o.rel }

func (o *createDirOp) Apply(context.Context) error {
	err := os.Mkdir(o.path, platform.DirPerm)
	if err == nil {
		o.created = true
		return nil
	}
	if errors.Is(err, fs.ErrExist) && !o.exclusive {
		info, statErr := os.Lstat(o.path)
		if statErr == nil && info.IsDir() {
			return nil
		}
	}
	return errs.IO("mkdir", o.path, err)
}

// Undo removes the directory only if this run created it and it is empty.
func (o *createDirOp) Undo(context.Context) error {
	if !o.created {
		return nil
	}
	if err := os.Remove(o.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.IO("rmdir", o.path, err)
	}
	return nil
}

// ─── WriteFile ───────────────────────────────────────────────────────

type writeFileOp struct {
	path    string
	rel     string
	produce func() ([]byte, error)
	perm    os.FileMode
	written bool
}

// NewWriteFile writes the bytes returned by produce to rel, which must not
// exist. produce runs inside Apply, so rendering happens on the worker.
func NewWriteFile(g *pathguard.Guard, rel string, produce func() ([]byte, error), perm os.FileMode) (Operation, error) {
	path, err := g.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if produce == nil {
		return nil, fmt.Errorf("write %s: nil content producer", rel)
	}
	return &writeFileOp{path: path, rel: rel, produce: produce, perm: perm}, nil
}

func (o *writeFileOp) Kind() Kind       { return WriteFile }
func (o *writeFileOp) Describe() string { return "write " + o.rel }

func (o *writeFileOp) Apply(context.Context) error {
	data, err := o.produce()
	if err != nil {
		return fmt.Errorf("rendering %s: %w", o.rel, err)
	}
	if err := copier.WriteFile(o.path, data, o.perm); err != nil {
		return err
	}
	o.written = true
	return nil
}

func (o *writeFileOp) Undo(context.Context) error {
	if !o.written {
		return nil
	}
	return removeIfExists(o.path)
}

// ─── CopyFile ────────────────────────────────────────────────────────

type copyFileOp struct {
	src       string
	dst       string
	rel       string
	threshold int64
	stats     copier.Stats
	copied    bool
}

// NewCopyFile copies the regular file src to rel under the guard's root.
// src must already have been confined by the caller.
func NewCopyFile(g *pathguard.Guard, src, rel string, threshold int64) (Operation, error) {
	dst, err := g.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = copier.DefaultThreshold
	}
	return &copyFileOp{src: src, dst: dst, rel: rel, threshold: threshold}, nil
}

func (o *copyFileOp) Kind() Kind       { return CopyFile }
func (o *copyFileOp) Describe() string { return "copy " + o.rel }

func (o *copyFileOp) Apply(context.Context) error {
	stats, err := copier.Copy(o.src, o.dst, o.threshold)
	if err != nil {
		return err
	}
	o.stats = stats
	o.copied = true
	return nil
}

func (o *copyFileOp) Undo(context.Context) error {
	if !o.copied {
		return nil
	}
	return removeIfExists(o.dst)
}

// Stats returns the copy statistics once Apply has succeeded.
func (o *copyFileOp) Stats() copier.Stats { return o.stats }

// ─── SpawnProcess ────────────────────────────────────────────────────

// Spawn configures a SpawnProcess operation.
type Spawn struct {
	// Description overrides the default "run <argv>" text.
	Description string
	Runner      process.Runner
	Command     process.Command
	// Prepare runs before the command, e.g. to snapshot files the command
	// will modify. A Prepare error fails the operation without running it.
	Prepare func(ctx context.Context) error
	// Compensate reverses the command's effects. It is used by Undo and,
	// when the command itself fails, immediately by Apply. Nil means the
	// command has nothing to undo.
	Compensate func(ctx context.Context) error
}

type spawnOp struct {
	Spawn
}

// NewSpawn builds a SpawnProcess operation. The command is validated here so
// a disallowed argument fails the plan before anything runs.
func NewSpawn(s Spawn) (Operation, error) {
	if s.Runner == nil {
		return nil, fmt.Errorf("spawn %s: nil runner", s.Command.Path)
	}
	if err := s.Command.Validate(); err != nil {
		return nil, err
	}
	return &spawnOp{Spawn: s}, nil
}

func (o *spawnOp) Kind() Kind { return SpawnProcess }

func (o *spawnOp) Describe() string {
	if o.Description != "" {
		return o.Description
	}
	return "run " + o.Command.String()
}

func (o *spawnOp) Apply(ctx context.Context) error {
	if o.Prepare != nil {
		if err := o.Prepare(ctx); err != nil {
			return fmt.Errorf("preparing %s: %w", o.Command.Path, err)
		}
	}
	_, err := o.Runner.Run(ctx, o.Command)
	if err == nil {
		return nil
	}
	// A failed op never reaches the rollback log, so clean up here.
	if o.Compensate != nil {
		if cerr := o.Compensate(context.WithoutCancel(ctx)); cerr != nil {
			return errors.Join(err, fmt.Errorf("compensating %s: %w", o.Command.Path, cerr))
		}
	}
	return err
}

func (o *spawnOp) Undo(ctx context.Context) error {
	if o.Compensate == nil {
		return nil
	}
	return o.Compensate(ctx)
}

// ─── RemoveFile / RemoveDir ──────────────────────────────────────────

type removeFileOp struct {
	path    string
	rel     string
	expect  []byte
	saved   []byte
	perm    os.FileMode
	removed bool
}

// NewRemoveFile deletes rel, keeping its content so Undo can put it back.
// When expect is non-nil the file is only removed if its content still
// equals expect.
func NewRemoveFile(g *pathguard.Guard, rel string, expect []byte) (Operation, error) {
	path, err := g.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return &removeFileOp{path: path, rel: rel, expect: expect}, nil
}

func (o *removeFileOp) Kind() Kind       { return RemoveFile }
func (o *removeFileOp) Describe() string { return "remove " + o.rel }

func (o *removeFileOp) Apply(context.Context) error {
	info, err := os.Lstat(o.path)
	if err != nil {
		return errs.IO("stat", o.path, err)
	}
	if !info.Mode().IsRegular() {
		return errs.IO("remove", o.path, fmt.Errorf("not a regular file"))
	}
	data, err := os.ReadFile(o.path)
	if err != nil {
		return errs.IO("read", o.path, err)
	}
	if o.expect != nil && !bytes.Equal(data, o.expect) {
		return errs.IO("remove", o.path, fmt.Errorf("content changed since the plan was built"))
	}
	if err := os.Remove(o.path); err != nil {
		return errs.IO("remove", o.path, err)
	}
	o.saved, o.perm, o.removed = data, info.Mode().Perm(), true
	return nil
}

func (o *removeFileOp) Undo(context.Context) error {
	if !o.removed {
		return nil
	}
	return copier.WriteFile(o.path, o.saved, o.perm)
}

type removeDirOp struct {
	path    string
	rel     string
	perm    os.FileMode
	removed bool
}

// NewRemoveDir deletes the directory rel if it is empty when the operation
// runs.
func NewRemoveDir(g *pathguard.Guard, rel string) (Operation, error) {
	path, err := g.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return &removeDirOp{path: path, rel: rel}, nil
}

func (o *removeDirOp) Kind() Kind       { return RemoveDir }
func (o *removeDirOp) Describe() string { return "rmdir " + o.rel }

func (o *removeDirOp) Apply(context.Context) error {
	info, err := os.Lstat(o.path)
	if err != nil {
		return errs.IO("stat", o.path, err)
	}
	if !info.IsDir() {
		return errs.IO("rmdir", o.path, fmt.Errorf("not a directory"))
	}
	if err := os.Remove(o.path); err != nil {
		return errs.IO("rmdir", o.path, err)
	}
	o.perm, o.removed = info.Mode().Perm(), true
	return nil
}

func (o *removeDirOp) Undo(context.Context) error {
	if !o.removed {
		return nil
	}
	if err := os.Mkdir(o.path, o.perm); err != nil && !errors.Is(err, fs.ErrExist) {
		return errs.IO("mkdir", o.path, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.IO("remove", path, err)
	}
	return nil
}
