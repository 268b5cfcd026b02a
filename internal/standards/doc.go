// Package standards plans the setup-standards retrofit of an existing
// project: the documentation corpus under docs/standards, the lint and
// format config files the project does not have yet, and the dev
// dependencies that enforce them. It also plans the reverse, removing a
// previous retrofit's artifacts that were never modified.
//
// Existing files are never overwritten or removed unless their content is
// byte-identical to what the retrofit would write.
package standards
