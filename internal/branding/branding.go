// Package branding provides compile-time identity values for the CLIs.
//
// branding.yaml sits next to this file and is baked into both binaries with
// //go:embed, so a fork can rename the product without touching code.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	ProductName   string `yaml:"product_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	HomeDir       string `yaml:"home_dir"`
	EnvPrefix     string `yaml:"env_prefix"`
	CreateCommand string `yaml:"create_command"`
	SetupCommand  string `yaml:"setup_command"`
	CommitMessage string `yaml:"commit_message"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			ProductName:   "stackforge",
			DisplayName:   "Stackforge",
			Description:   "Atomic project scaffolding with rollback",
			HomeDir:       ".stackforge",
			EnvPrefix:     "STACKFORGE",
			CreateCommand: "create-project",
			SetupCommand:  "setup-standards",
			CommitMessage: "chore: initial project scaffold",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// ProductName returns the lowercase product identifier (e.g., "stackforge").
func ProductName() string { load(); return defaults.ProductName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".stackforge").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "STACKFORGE").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// CreateCommand returns the binary name of the project creator.
func CreateCommand() string { load(); return defaults.CreateCommand }

// SetupCommand returns the binary name of the standards retrofitter.
func SetupCommand() string { load(); return defaults.SetupCommand }

// CommitMessage is the fixed message used for the initial commit. It never
// contains user input.
func CommitMessage() string { load(); return defaults.CommitMessage }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("CONFIG") → "STACKFORGE_CONFIG".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
