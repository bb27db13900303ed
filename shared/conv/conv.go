// Package conv has pointer helpers for optional struct fields, mainly
// store filters and wire DTOs.
package conv

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
