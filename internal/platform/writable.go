package platform

import (
	"fmt"
	"os"
)

// CheckWritable verifies that new entries can be created in dir without
// writing anything. It returns an *os.PathError, so
// errors.Is(err, os.ErrPermission) works for callers.
func CheckWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := canWrite(dir, info); err != nil {
		return &os.PathError{Op: "access", Path: dir, Err: err}
	}
	return nil
}
