package model

import "strings"

// NormalizeSKU trims, upper-cases and replaces inner spaces with dashes.
func NormalizeSKU(sku string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(sku)), " ", "-")
}

func NormalizeLocation(loc string) string {
	return strings.ToUpper(strings.TrimSpace(loc))
}
