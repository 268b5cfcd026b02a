package copier

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/platform"
)

const (
	// DefaultThreshold is the largest file copied with a single read.
	DefaultThreshold int64 = 1 << 20

	// ChunkSize is the streaming buffer size.
	ChunkSize = 32 << 10
)

// Strategy records how a file was copied.
type Strategy int

const (
	Buffered Strategy = iota
	Streamed
)

func (s Strategy) String() string {
	if s == Streamed {
		return "streamed"
	}
	return "buffered"
}

// Stats describes a completed copy.
type Stats struct {
	Bytes    int64
	Strategy Strategy
	Duration time.Duration
}

// Copy copies the regular file src to dst, which must not exist. The source
// permission bits are preserved.
func Copy(src, dst string, threshold int64) (Stats, error) {
	start := time.Now()
	info, err := os.Stat(src)
	if err != nil {
		return Stats{}, errs.IO("stat", src, err)
	}
	if !info.Mode().IsRegular() {
		return Stats{}, errs.IO("copy", src, fmt.Errorf("not a regular file"))
	}

	stats := Stats{Strategy: Buffered}
	if info.Size() > threshold {
		stats.Strategy = Streamed
	}

	err = writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) (int64, error) {
		if stats.Strategy == Buffered {
			data, err := os.ReadFile(src)
			if err != nil {
				return 0, err
			}
			n, err := w.Write(data)
			return int64(n), err
		}
		in, err := os.Open(src)
		if err != nil {
			return 0, err
		}
		defer in.Close()
		buf := make([]byte, ChunkSize)
		// Hide ReadFrom/WriteTo so the copy goes through buf.
		return io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{in}, buf)
	}, func(n int64) error {
		if n != info.Size() {
			return fmt.Errorf("source changed during copy: wrote %d of %d bytes", n, info.Size())
		}
		stats.Bytes = n
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// WriteFile atomically creates dst with data. dst must not exist.
func WriteFile(dst string, data []byte, perm os.FileMode) error {
	return writeAtomic(dst, perm, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	}, nil)
}

// writeAtomic stages content in a temp file next to dst and links it into
// place. fill produces the content; verify, when set, checks the byte count
// before the file becomes visible.
func writeAtomic(dst string, perm os.FileMode, fill func(io.Writer) (int64, error), verify func(int64) error) error {
	if _, err := os.Lstat(dst); err == nil {
		return errs.IO("create", dst, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return errs.IO("stat", dst, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return errs.IO("create", dst, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	n, err := fill(tmp)
	if err != nil {
		return errs.IO("write", dst, err)
	}
	if verify != nil {
		if err := verify(n); err != nil {
			return errs.IO("write", dst, err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return errs.IO("sync", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO("close", dst, err)
	}
	if err := platform.Chmod(tmpName, perm); err != nil {
		return errs.IO("chmod", dst, err)
	}
	if err := publish(tmpName, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

// publish moves tmp to dst without replacing an existing dst. A hard link
// fails atomically when dst exists; filesystems without hard links fall
// back to a checked rename.
func publish(tmp, dst string) error {
	err := os.Link(tmp, dst)
	if err == nil {
		os.Remove(tmp)
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return errs.IO("create", dst, fs.ErrExist)
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		return errs.IO("create", dst, fs.ErrExist)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return errs.IO("rename", dst, err)
	}
	return nil
}
