// Package copier writes files atomically. Content is staged in a temp file
// inside the destination directory and moved into place only after it has
// been fully written and synced, so a destination is either complete or
// absent. Existing destinations are never replaced.
//
// Copy picks a strategy by size: sources at or below the threshold are read
// into memory in one go, larger ones are streamed through a fixed-size
// buffer so peak memory does not grow with the file.
package copier
