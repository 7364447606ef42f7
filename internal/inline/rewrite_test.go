package inline

import (
	"strings"
	"testing"
)

func TestRewrite_EmptyMatchListIsIdentity(t *testing.T) {
	t.Parallel()

	html := `<img src="logo.png"><div style="background-image:url('x.jpg')"></div>`
	if got := Rewrite(html, nil); got != html {
		t.Errorf("Rewrite with no matches changed the input:\ngot  %q\nwant %q", got, html)
	}
}

func TestRewrite_ReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	html := `<img src="logo.png">
		<div style="background-image: url('logo.png')"></div>
		<img src='logo.png'>`

	matched := []MatchedImage{{Reference: "logo.png", ContentID: "img1.abc@bulk-mailer"}}

	got := Rewrite(html, matched)
	if strings.Contains(got, `"logo.png"`) || strings.Contains(got, `'logo.png'`) {
		t.Errorf("original reference still present: %q", got)
	}
	if n := strings.Count(got, "cid:img1.abc@bulk-mailer"); n != 3 {
		t.Errorf("cid occurrences: got %d, want 3", n)
	}
}

func TestRewrite_LeavesUnmatchedUntouched(t *testing.T) {
	t.Parallel()

	html := `<img src="missing.png"><img src="logo.png">`
	matched := []MatchedImage{{Reference: "logo.png", ContentID: "cid1"}}

	got := Rewrite(html, matched)
	if !strings.Contains(got, `src="missing.png"`) {
		t.Errorf("unmatched reference was modified: %q", got)
	}
	if !strings.Contains(got, `src="cid:cid1"`) {
		t.Errorf("matched reference was not rewritten: %q", got)
	}
}

func TestRewrite_EscapesRegexMetaInReference(t *testing.T) {
	t.Parallel()

	// The reference contains regex metacharacters; they must be matched
	// literally and must not bleed into the sibling reference.
	html := `<img src="a(1).png"><img src="a1.png">`
	matched := []MatchedImage{{Reference: "a(1).png", ContentID: "cid-meta"}}

	got := Rewrite(html, matched)
	if !strings.Contains(got, `src="cid:cid-meta"`) {
		t.Errorf("metacharacter reference not rewritten: %q", got)
	}
	if !strings.Contains(got, `src="a1.png"`) {
		t.Errorf("unrelated reference was modified: %q", got)
	}
}

func TestRewrite_CSSContext(t *testing.T) {
	t.Parallel()

	html := `<div style="background-image: url(images/banner.jpg)"></div>`
	matched := []MatchedImage{{Reference: "images/banner.jpg", ContentID: "cid-banner"}}

	got := Rewrite(html, matched)
	if !strings.Contains(got, "url(cid:cid-banner)") {
		t.Errorf("css url not rewritten: %q", got)
	}
}

func TestRewrite_TwoDistinctReferences(t *testing.T) {
	t.Parallel()

	html := `<img src="logo.png"><div style="background-image:url('images/banner.jpg')"></div>`
	matched := []MatchedImage{
		{Reference: "logo.png", ContentID: "cid-a"},
		{Reference: "images/banner.jpg", ContentID: "cid-b"},
	}

	got := Rewrite(html, matched)
	if !strings.Contains(got, "cid:cid-a") || !strings.Contains(got, "cid:cid-b") {
		t.Errorf("expected two distinct cid references, got %q", got)
	}
}
