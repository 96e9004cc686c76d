package params

import (
	"regexp"
	"strconv"
	"strings"
)

// leadingReal matches the numeric prefix a C-style atof would consume.
var leadingReal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseReal converts an operator payload to a float. Surrounding whitespace
// is ignored and trailing garbage after a numeric prefix is dropped
// ("12.5cm" is 12.5). A payload with no numeric prefix yields 0.
//
// The literal spellings NaN and Inf are accepted, so a bad gain can still
// reach the loop; the command clamp absorbs it.
func ParseReal(payload string) float64 {
	s := strings.TrimSpace(payload)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	m := leadingReal.FindString(s)
	if m == "" {
		return 0
	}
	// An out-of-range exponent still yields ±Inf alongside the error.
	v, _ := strconv.ParseFloat(m, 64)
	return v
}
