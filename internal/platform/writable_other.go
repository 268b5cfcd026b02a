//go:build !unix

package platform

import "os"

// canWrite treats a directory without the owner write bit as read-only.
func canWrite(_ string, info os.FileInfo) error {
	if info.Mode().Perm()&0o200 == 0 {
		return os.ErrPermission
	}
	return nil
}
