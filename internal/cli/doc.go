// Package cli defines the Cobra commands behind the create-project and
// setup-standards binaries. Commands only parse flags, load settings and
// format results; planning and execution live in the scaffold, standards
// and engine packages.
package cli
