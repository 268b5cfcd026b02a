package validate

import (
	"errors"
	"testing"

	"github.com/agentx-labs/stackforge/internal/errs"
)

func TestDependency(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"react", false},
		{"react@^18.2.0", false},
		{"eslint@~8.57", false},
		{"@types/node", false},
		{"@types/node@20.x", false},
		{"prettier@latest", false},
		{"lodash.merge@4.6.2", false},
		{"foo; rm -rf /", true},
		{"$(whoami)", true},
		{"foo`id`", true},
		{"--registry=evil", true},
		{"-D", true},
		{"react@", true},
		{"@scope", true},
		{"@a/b/c", true},
		{"a/b", true},
		{"../escape", true},
		{"react@>=1.0", true},
		{"react@^", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := Dependency(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dependency(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrSecurity) {
				t.Errorf("expected a security error, got %T", err)
			}
		})
	}
}

func TestSplitDependency(t *testing.T) {
	tests := []struct {
		spec, name, rng string
	}{
		{"react", "react", ""},
		{"react@18", "react", "18"},
		{"@types/node", "@types/node", ""},
		{"@types/node@^20.1.0", "@types/node", "^20.1.0"},
	}
	for _, tt := range tests {
		name, rng := SplitDependency(tt.spec)
		if name != tt.name || rng != tt.rng {
			t.Errorf("SplitDependency(%q) = (%q, %q), want (%q, %q)", tt.spec, name, rng, tt.name, tt.rng)
		}
	}
}

func TestArg(t *testing.T) {
	for _, ok := range []string{"install", "@scope/pkg", "pkg@^1.2.3", "a~b"} {
		if err := Arg(ok); err != nil {
			t.Errorf("Arg(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "-rf", "a b", "a;b", "a|b", "a\nb", "a>b"} {
		if err := Arg(bad); err == nil {
			t.Errorf("Arg(%q) expected error", bad)
		}
	}
}
