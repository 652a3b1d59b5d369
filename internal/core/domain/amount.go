package domain

import "strings"

// Amount is a value in the minor unit of an asset. Value is a decimal string
// of a non-negative integer, e.g. "1000" with scale 2 is 10.00.
type Amount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale uint8  `json:"assetScale"`
}

// IsMinorUnits reports whether s is a non-negative integer in decimal
// notation with no sign, fraction or exponent.
func IsMinorUnits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsPositiveMinorUnits reports whether s is a valid minor-unit value greater
// than zero.
func IsPositiveMinorUnits(s string) bool {
	return IsMinorUnits(s) && strings.TrimLeft(s, "0") != ""
}

// CanonicalMinorUnits strips leading zeros ("007" -> "7", "000" -> "0").
// The input must satisfy IsMinorUnits.
func CanonicalMinorUnits(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
