package validate

import (
	"fmt"
	"net/url"
	"strings"
)

// maxDecodeRounds bounds repeated unescaping of nested encodings such as
// %252e. Each round strictly shortens the string, so this is generous.
const maxDecodeRounds = 8

// encodedProblem rejects any name carrying a '%'. A '%' that does not start
// a %XX escape is malformed. When an escape decodes to something the literal
// rules forbid, the reason says so; double and triple encodings are
// unwrapped first.
func encodedProblem(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return ""
	}
	if !wellFormed(s) {
		return "contains a malformed percent-encoded sequence"
	}
	decoded := s
	for i := 0; i < maxDecodeRounds && hasEscape(decoded); i++ {
		next, err := url.PathUnescape(decoded)
		if err != nil {
			return "contains a malformed percent-encoded sequence"
		}
		decoded = next
	}
	if reason := literalProblem(decoded); reason != "" {
		return fmt.Sprintf("contains a percent-encoded sequence that decodes to a disallowed value (%s)", reason)
	}
	return "must not contain percent-encoded sequences"
}

// wellFormed reports whether every '%' in s is followed by two hex digits.
func wellFormed(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func hasEscape(s string) bool {
	for i := strings.IndexByte(s, '%'); i >= 0; {
		if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			return true
		}
		next := strings.IndexByte(s[i+1:], '%')
		if next < 0 {
			return false
		}
		i += next + 1
	}
	return false
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
