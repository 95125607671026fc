// Package storage hosts remote object store providers. The provider is
// chosen by configuration; all implementations satisfy crawler.BlobStore.
package storage

import "strings"

// ContentTypeFor guesses the MIME type for an asset filename. The source
// site only serves a handful of formats.
func ContentTypeFor(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
