package process

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/validate"
)

// DefaultInstallTimeout bounds a dependency install.
const DefaultInstallTimeout = 5 * time.Minute

// PackageManager names a supported Node package manager.
type PackageManager string

const (
	NPM  PackageManager = "npm"
	PNPM PackageManager = "pnpm"
	Yarn PackageManager = "yarn"
)

// ParsePackageManager accepts npm, pnpm or yarn. Empty means npm.
func ParsePackageManager(s string) (PackageManager, error) {
	switch pm := PackageManager(strings.ToLower(strings.TrimSpace(s))); pm {
	case "":
		return NPM, nil
	case NPM, PNPM, Yarn:
		return pm, nil
	default:
		return "", errs.Validation("install.package_manager", s, "must be one of npm, pnpm, yarn")
	}
}

// LockFile is the lock file the package manager writes next to package.json.
func (pm PackageManager) LockFile() string {
	switch pm {
	case PNPM:
		return "pnpm-lock.yaml"
	case Yarn:
		return "yarn.lock"
	default:
		return "package-lock.json"
	}
}

// Install returns the command adding deps to the project in dir. Every
// dependency is validated before the command is built.
func Install(pm PackageManager, dir string, deps []string, dev bool, timeout time.Duration) (Command, error) {
	if len(deps) == 0 {
		return Command{}, fmt.Errorf("install: no dependencies given")
	}
	for _, d := range deps {
		if err := validate.Dependency(d); err != nil {
			return Command{}, err
		}
	}

	var args []string
	switch pm {
	case NPM, "":
		pm = NPM
		args = []string{"install", "--no-audit", "--no-fund"}
		if dev {
			args = append(args, "--save-dev")
		} else {
			args = append(args, "--save")
		}
	case PNPM:
		args = []string{"add"}
		if dev {
			args = append(args, "-D")
		}
	case Yarn:
		args = []string{"add"}
		if dev {
			args = append(args, "--dev")
		}
	default:
		return Command{}, errs.Validation("install.package_manager", string(pm), "must be one of npm, pnpm, yarn")
	}

	return Command{
		Path:     string(pm),
		Args:     args,
		UserArgs: append([]string(nil), deps...),
		Dir:      dir,
		Timeout:  timeout,
	}, nil
}
