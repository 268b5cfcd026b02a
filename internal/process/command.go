package process

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/validate"
)

// Command is one external invocation.
type Command struct {
	// Path is the executable name, resolved on PATH.
	Path string
	// Args are fixed arguments chosen by the program.
	Args []string
	// UserArgs follow Args and must each satisfy validate.Arg.
	UserArgs []string
	// Dir is the working directory.
	Dir string
	// Env entries (KEY=VALUE) override the inherited environment.
	Env []string
	// Timeout bounds the call. Zero means no limit beyond the context.
	Timeout time.Duration
}

// Argv returns the full argument vector, executable first.
func (c Command) Argv() []string {
	argv := make([]string, 0, 1+len(c.Args)+len(c.UserArgs))
	argv = append(argv, c.Path)
	argv = append(argv, c.Args...)
	return append(argv, c.UserArgs...)
}

func (c Command) String() string { return strings.Join(c.Argv(), " ") }

// Validate checks the command before it can reach the OS.
func (c Command) Validate() error {
	if c.Path == "" {
		return errs.Security("", "empty executable name")
	}
	if strings.ContainsAny(c.Path, "/\\ ") {
		return errs.Security(c.Path, "executable must be a bare name resolved on PATH")
	}
	for _, a := range c.UserArgs {
		if err := validate.Arg(a); err != nil {
			return fmt.Errorf("%s: %w", c.Path, err)
		}
	}
	for _, kv := range c.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return errs.Security(kv, "environment entry must be KEY=VALUE")
		}
	}
	return nil
}

// mergeEnv overlays extra KEY=VALUE pairs onto base.
func mergeEnv(base, extra []string) []string {
	env := append([]string(nil), base...)
	for _, kv := range extra {
		key, value, _ := strings.Cut(kv, "=")
		env = setEnv(env, key, value)
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
