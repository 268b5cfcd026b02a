// Package templates produces the generated configuration files of a
// scaffolded project (.eslintrc.json, .env.example, package.json, ...).
//
// Rendering goes through a Cache shared by every operation of a run, so a
// file requested by several concurrent operations is rendered exactly once.
// The Cache is an explicit value created at process start and passed to
// whoever needs it; there is no package-level state.
package templates
