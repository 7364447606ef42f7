package inline

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload is a file received from the upload layer, persisted to a temporary
// path. The upload layer owns the file's lifecycle; this package only reads
// from it.
type Upload struct {
	Name string
	Path string
	Size int64
}

// MatchedImage pairs an extracted reference with the upload that will back it
// as an inline attachment, under a content identifier unique to this match.
type MatchedImage struct {
	Reference string
	Filename  string
	Source    Upload
	ContentID string
}

// Match resolves extracted references against uploaded candidate files by
// filename, case-insensitively. A reference whose exact filename is not
// uploaded falls back to matching by stem (filename without its last
// extension) in upload registration order. Duplicate upload filenames keep
// the first registration. Unmatched references are returned separately; they
// are not errors, the caller may warn about them and send anyway.
func Match(refs []ImageRef, uploads []Upload) (matched []MatchedImage, unmatched []ImageRef) {
	byName := make(map[string]Upload, len(uploads))
	names := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key := strings.ToLower(up.Name)
		if _, ok := byName[key]; ok {
			continue
		}
		byName[key] = up
		names = append(names, key)
	}

	seq := 0
	for _, ref := range refs {
		up, ok := lookup(ref.Filename, byName, names)
		if !ok {
			unmatched = append(unmatched, ref)
			continue
		}
		seq++
		matched = append(matched, MatchedImage{
			Reference: ref.Reference,
			Filename:  ref.Filename,
			Source:    up,
			ContentID: newContentID(seq),
		})
	}

	return matched, unmatched
}

func lookup(filename string, byName map[string]Upload, names []string) (Upload, bool) {
	key := strings.ToLower(filename)
	if up, ok := byName[key]; ok {
		return up, true
	}

	// Stem fallback: "logo.png" matches an upload named "logo.jpeg".
	stem := strings.TrimSuffix(key, path.Ext(key))
	if stem == "" {
		return Upload{}, false
	}
	for _, name := range names {
		if strings.TrimSuffix(name, path.Ext(name)) == stem {
			return byName[name], true
		}
	}
	return Upload{}, false
}

// newContentID builds a content identifier unique within one send and, thanks
// to the random component, across sends as well.
func newContentID(seq int) string {
	return fmt.Sprintf("img%d.%s@bulk-mailer", seq, uuid.NewString())
}
