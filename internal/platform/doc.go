// Package platform smooths over operating-system differences in permission
// handling. On Unix it applies mode bits directly; on Windows, which has no
// Unix permission bits, the calls become no-ops or mode-bit checks.
package platform
