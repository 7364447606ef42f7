package inline

import (
	"strings"
	"testing"
)

func TestMatch_ExactCaseInsensitive(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{{Reference: "logo.png", Filename: "logo.png"}}
	uploads := []Upload{{Name: "Logo.PNG", Path: "/tmp/logo"}}

	matched, unmatched := Match(refs, uploads)
	if len(matched) != 1 {
		t.Fatalf("matched: got %d, want 1", len(matched))
	}
	if len(unmatched) != 0 {
		t.Errorf("unmatched: got %d, want 0", len(unmatched))
	}
	if matched[0].Source.Name != "Logo.PNG" {
		t.Errorf("Source.Name: got %q, want %q", matched[0].Source.Name, "Logo.PNG")
	}
	if matched[0].ContentID == "" {
		t.Error("ContentID should not be empty")
	}
}

func TestMatch_StemFallback(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{{Reference: "banner.png", Filename: "banner.png"}}
	uploads := []Upload{
		{Name: "other.gif", Path: "/tmp/other"},
		{Name: "banner.jpeg", Path: "/tmp/banner"},
	}

	matched, unmatched := Match(refs, uploads)
	if len(matched) != 1 {
		t.Fatalf("matched: got %d, want 1", len(matched))
	}
	if len(unmatched) != 0 {
		t.Errorf("unmatched: got %d, want 0", len(unmatched))
	}
	if matched[0].Source.Name != "banner.jpeg" {
		t.Errorf("Source.Name: got %q, want %q", matched[0].Source.Name, "banner.jpeg")
	}
}

func TestMatch_StemFallbackRegistrationOrder(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{{Reference: "pic.bmp", Filename: "pic.bmp"}}
	uploads := []Upload{
		{Name: "pic.png", Path: "/tmp/first"},
		{Name: "pic.jpg", Path: "/tmp/second"},
	}

	matched, _ := Match(refs, uploads)
	if len(matched) != 1 {
		t.Fatalf("matched: got %d, want 1", len(matched))
	}
	if matched[0].Source.Path != "/tmp/first" {
		t.Errorf("Source.Path: got %q, want first-registered upload", matched[0].Source.Path)
	}
}

func TestMatch_DuplicateUploadNamesFirstWins(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{{Reference: "a.png", Filename: "a.png"}}
	uploads := []Upload{
		{Name: "a.png", Path: "/tmp/one"},
		{Name: "A.PNG", Path: "/tmp/two"},
	}

	matched, _ := Match(refs, uploads)
	if len(matched) != 1 {
		t.Fatalf("matched: got %d, want 1", len(matched))
	}
	if matched[0].Source.Path != "/tmp/one" {
		t.Errorf("Source.Path: got %q, want %q", matched[0].Source.Path, "/tmp/one")
	}
}

func TestMatch_UnmatchedReported(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{
		{Reference: "missing.png", Filename: "missing.png"},
		{Reference: "logo.png", Filename: "logo.png"},
	}
	uploads := []Upload{{Name: "logo.png", Path: "/tmp/logo"}}

	matched, unmatched := Match(refs, uploads)
	if len(matched) != 1 {
		t.Fatalf("matched: got %d, want 1", len(matched))
	}
	if len(unmatched) != 1 {
		t.Fatalf("unmatched: got %d, want 1", len(unmatched))
	}
	if unmatched[0].Reference != "missing.png" {
		t.Errorf("unmatched[0]: got %q, want %q", unmatched[0].Reference, "missing.png")
	}
}

func TestMatch_ContentIDsUnique(t *testing.T) {
	t.Parallel()

	refs := []ImageRef{
		{Reference: "a.png", Filename: "a.png"},
		{Reference: "b.png", Filename: "b.png"},
	}
	uploads := []Upload{
		{Name: "a.png", Path: "/tmp/a"},
		{Name: "b.png", Path: "/tmp/b"},
	}

	matched, _ := Match(refs, uploads)
	if len(matched) != 2 {
		t.Fatalf("matched: got %d, want 2", len(matched))
	}
	if matched[0].ContentID == matched[1].ContentID {
		t.Errorf("content IDs collide: %q", matched[0].ContentID)
	}
	for _, m := range matched {
		if strings.ContainsAny(m.ContentID, " <>") {
			t.Errorf("ContentID %q contains characters invalid in a cid URI", m.ContentID)
		}
	}
}
