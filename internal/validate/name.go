package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agentx-labs/stackforge/internal/errs"
	"golang.org/x/text/cases"
)

// MaxNameLength matches the npm package name limit.
const MaxNameLength = 214

// forbiddenChars may not appear anywhere in a name.
const forbiddenChars = `<>:"|?*;\&$(){}[]!`

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

var folder = cases.Fold()

// Name validates a proposed project name and returns it unchanged on
// success. The returned error is always an *errs.ValidationError.
func Name(candidate string) (string, error) {
	if reason := nameProblem(candidate); reason != "" {
		return "", errs.Validation("name", candidate, reason).
			WithSuggestion("Use letters, digits, '-' and '_' (e.g. my-app)")
	}
	return candidate, nil
}

func nameProblem(s string) string {
	if s == "" {
		return "must not be empty"
	}
	if len(s) > MaxNameLength {
		return fmt.Sprintf("must be at most %d characters, got %d", MaxNameLength, len(s))
	}
	if !utf8.ValidString(s) {
		return "must be valid UTF-8"
	}
	if reason := literalProblem(s); reason != "" {
		return reason
	}
	if reason := encodedProblem(s); reason != "" {
		return reason
	}
	return ""
}

// literalProblem checks the rules that apply to the raw characters.
func literalProblem(s string) string {
	if strings.TrimSpace(s) != s {
		return "must not start or end with whitespace"
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "must not contain control characters"
		}
	}
	if strings.ContainsAny(s, `/\`) {
		return "must not contain path separators"
	}
	if i := strings.IndexAny(s, forbiddenChars); i >= 0 {
		return fmt.Sprintf("must not contain %q", string(s[i]))
	}
	if s == ".." || strings.Contains(s, "..") {
		return "must not contain '..'"
	}
	if strings.HasPrefix(s, ".") {
		return "must not start with '.'"
	}
	if isReserved(s) {
		return "is a reserved system device name"
	}
	return ""
}

// isReserved reports whether s names a Windows device, with or without an
// extension ("con", "CON", "con.txt").
func isReserved(s string) bool {
	stem, _, _ := strings.Cut(s, ".")
	return reservedNames[folder.String(stem)]
}
