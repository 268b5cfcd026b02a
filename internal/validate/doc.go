// Package validate holds the pure input gates that run before any
// filesystem mutation: project names and dependency specifiers.
package validate
