package judge

import "strings"

// Verify compares program output against the expected output. Only leading
// and trailing whitespace is stripped before the comparison, so a trailing
// newline never fails a testcase while internal whitespace and line content
// must match exactly.
func Verify(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}
