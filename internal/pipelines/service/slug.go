package service

import "strings"

// Slugify converts a display name to its URL form. The transform is
// deliberately lossless so legacy board links can be mapped back to the
// display name: only spaces are substituted, casing and every other
// character are preserved. Slugs are a routing convenience, never an
// identity key.
func Slugify(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// Unslugify reverses Slugify.
func Unslugify(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}
