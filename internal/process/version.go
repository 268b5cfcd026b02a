package process

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/agentx-labs/stackforge/internal/errs"
)

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.-]+)?)`)

// ParseToolVersion extracts the first version number from a tool's
// --version output, e.g. "git version 2.43.0" or "v20.11.1".
func ParseToolVersion(output string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("no version number in %q", strings.TrimSpace(output))
	}
	return semver.NewVersion(m[1])
}

// CheckVersion runs `<tool> --version` and checks the result against
// constraint (e.g. ">=18").
func CheckVersion(ctx context.Context, r Runner, tool, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errs.Validation("requires", tool+" "+constraint, "not a valid version constraint")
	}
	out, err := r.Output(ctx, Command{Path: tool, Args: []string{"--version"}, Timeout: 30 * time.Second})
	if err != nil {
		return fmt.Errorf("checking %s version: %w", tool, err)
	}
	v, err := ParseToolVersion(string(out))
	if err != nil {
		return fmt.Errorf("checking %s version: %w", tool, err)
	}
	if !c.Check(v) {
		return errs.Validation("requires", tool, fmt.Sprintf("found version %s, need %s", v, constraint)).
			WithSuggestion(fmt.Sprintf("Install %s %s and retry", tool, constraint))
	}
	return nil
}
