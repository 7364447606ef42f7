// Package inline resolves image references inside an HTML email body against
// uploaded files and rewrites the body to use content-identifier (cid:) URIs,
// so recipients' clients render the images from inline attachments instead of
// fetching them over the network.
//
// The scan is textual pattern matching, not a DOM parse. That is deliberate:
// it is all this narrow task needs, with the known limitation that nested or
// unusually quoted attributes may not match.
package inline

import (
	"path"
	"regexp"
	"strings"
)

// ImageRef is a distinct image reference found in an HTML body.
type ImageRef struct {
	// Reference is the raw src/url text exactly as it appears in the HTML.
	Reference string

	// Filename is the final path segment of the reference with any query
	// string stripped.
	Filename string
}

var (
	imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
	cssURLPattern = regexp.MustCompile(`(?i)background-image\s*:\s*url\(\s*["']?([^"')]+?)["']?\s*\)`)
)

// skippedPrefixes are reference schemes that are already resolvable by the
// recipient's client and therefore never map to a local upload.
var skippedPrefixes = []string{"data:", "http://", "https://", "//"}

// ExtractRefs scans an HTML body for image references in <img src> attributes
// and CSS background-image declarations. References beginning with a data URI
// scheme or an absolute URL are skipped. The result is deduplicated by raw
// reference text and ordered by first occurrence. Malformed or partial HTML
// never fails; it simply yields no matches.
func ExtractRefs(html string) []ImageRef {
	seen := make(map[string]bool)
	var refs []ImageRef

	collect := func(pattern *regexp.Regexp) {
		for _, m := range pattern.FindAllStringSubmatch(html, -1) {
			ref := strings.TrimSpace(m[1])
			if ref == "" || seen[ref] || isSkipped(ref) {
				continue
			}
			seen[ref] = true
			refs = append(refs, ImageRef{
				Reference: ref,
				Filename:  refFilename(ref),
			})
		}
	}

	collect(imgSrcPattern)
	collect(cssURLPattern)

	return refs
}

func isSkipped(ref string) bool {
	lower := strings.ToLower(ref)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// refFilename derives the filename of a reference: the final path segment
// with any trailing query string removed.
func refFilename(ref string) string {
	if i := strings.Index(ref, "?"); i >= 0 {
		ref = ref[:i]
	}
	return path.Base(ref)
}
