package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey trims and NFC-normalizes an item key or order number so that
// visually identical keys collide under the store's uniqueness constraint.
func NormalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
