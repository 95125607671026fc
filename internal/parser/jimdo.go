// Package parser interprets the source site's markup into structured
// records. All selectors track third-party Jimdo templates and are
// inherently site-specific.
package parser

import "regexp"

// Jimdo serves gallery images through a Cloudflare resizing proxy:
//
//	https://image.jimcdn.com/cdn-cgi/image/width=2048,.../app/cms/storage/...
//
// Stripping the transform segment yields the full-resolution original.
var cdnSegment = regexp.MustCompile(`/cdn-cgi/image/[^/]*`)

// ResolveFullResolution rewrites a CDN-resized image URL to its
// full-resolution source. URLs without a transform segment pass through.
func ResolveFullResolution(url string) string {
	return cdnSegment.ReplaceAllString(url, "")
}
