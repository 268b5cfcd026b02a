// Package errs defines the error taxonomy shared by both CLIs: validation
// and security errors raised before any filesystem mutation, and IO and
// process errors raised while phases run. Every error type supports
// errors.Is/errors.As through Unwrap, and Classify maps any error to its
// category for the final report.
package errs
