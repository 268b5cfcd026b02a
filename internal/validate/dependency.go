package validate

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/agentx-labs/stackforge/internal/errs"
)

// ArgPattern is the allow-list applied to every user- or config-derived
// argument handed to an external command.
var ArgPattern = regexp.MustCompile(`^[A-Za-z0-9._@/^~-]+$`)

// distTag matches registry tags such as "latest" or "next".
var distTag = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// Arg checks a single untrusted command argument against ArgPattern. A
// leading '-' is refused so the value can never be read as a flag.
func Arg(arg string) error {
	switch {
	case arg == "":
		return errs.Security(arg, "empty argument")
	case strings.HasPrefix(arg, "-"):
		return errs.Security(arg, "argument must not start with '-'")
	case !ArgPattern.MatchString(arg):
		return errs.Security(arg, "argument contains characters outside [A-Za-z0-9._@/^~-]")
	}
	return nil
}

// Dependency validates a "name[@range]" specifier such as "react@^18.2.0"
// or "@types/node@~20". The range must be a semver constraint or a
// dist-tag.
func Dependency(spec string) error {
	if err := Arg(spec); err != nil {
		return err
	}
	if strings.HasSuffix(spec, "@") {
		return errs.Security(spec, "empty version range")
	}
	name, rng := SplitDependency(spec)
	if name == "" || strings.HasSuffix(name, "/") || strings.Contains(name, "..") {
		return errs.Security(spec, "malformed package name")
	}
	if strings.HasPrefix(name, "@") && strings.Count(name, "/") != 1 {
		return errs.Security(spec, "scoped package names need exactly one '/'")
	}
	if !strings.HasPrefix(name, "@") && strings.Contains(name, "/") {
		return errs.Security(spec, "unscoped package names must not contain '/'")
	}
	if rng == "" {
		return nil
	}
	if _, err := semver.NewConstraint(rng); err == nil {
		return nil
	}
	if distTag.MatchString(rng) {
		return nil
	}
	return errs.Security(spec, "version range is neither a semver constraint nor a dist-tag")
}

// SplitDependency separates the package name from its version range. The
// leading '@' of a scoped name is not a separator.
func SplitDependency(spec string) (name, rng string) {
	search := spec
	offset := 0
	if strings.HasPrefix(spec, "@") {
		search = spec[1:]
		offset = 1
	}
	i := strings.LastIndex(search, "@")
	if i < 0 {
		return spec, ""
	}
	return spec[:i+offset], spec[i+offset+1:]
}
