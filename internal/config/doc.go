// Package config resolves run settings from ~/.stackforge/config.yaml,
// STACKFORGE_* environment variables and command-line flags, in increasing
// order of precedence. Flags are bound onto the same viper instance by the
// cli package.
package config
