// Package pathguard confines filesystem targets to an authorized root.
//
// Paths are compared after canonicalization: the candidate is joined to the
// base, cleaned, and the symlinks of its deepest existing ancestor are
// resolved, so neither ".." segments nor a symlinked directory can lead a
// write outside the root. Leaves that do not exist yet are allowed.
package pathguard
