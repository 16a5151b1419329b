package common

import (
	"fmt"
	"strconv"
	"strings"
)

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// NormalizeMonth converts "1".."12" (with or without a leading zero) into the
// two-digit "MM" form.
func NormalizeMonth(value string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 || n > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d", n), true
}
