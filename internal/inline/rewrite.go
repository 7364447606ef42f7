package inline

import "regexp"

// Rewrite replaces every occurrence of each matched reference with its
// cid: URI, in both <img src> attributes and CSS url() arguments. Unmatched
// references are left untouched, and an empty match list returns the input
// unchanged.
func Rewrite(html string, matched []MatchedImage) string {
	for _, m := range matched {
		ref := regexp.QuoteMeta(m.Reference)
		cid := "cid:" + m.ContentID

		srcCtx := regexp.MustCompile(`((?i:src)\s*=\s*["']?)` + ref + `(["']?)`)
		html = srcCtx.ReplaceAllString(html, "${1}"+cid+"${2}")

		urlCtx := regexp.MustCompile(`((?i:url)\(\s*["']?)` + ref + `(["']?\s*\))`)
		html = urlCtx.ReplaceAllString(html, "${1}"+cid+"${2}")
	}
	return html
}
