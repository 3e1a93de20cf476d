// Package resolve turns raw wikilink text into resolved note
// identifiers and answers backlink queries over the collection.
package resolve

import (
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/note"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// idPrefix marks an explicit-identifier reference: [[ID:01H...]].
// The prefix is matched case-insensitively; the value is not.
const idPrefix = "id:"

// Links resolves every wikilink in body against notes and returns the
// matched identifiers, deduplicated, in first-seen order.
//
// Resolution rules:
//   - [[ID:<value>]] matches only a note whose identifier equals
//     <value> exactly; title matching is never applied to this form.
//   - [[Target]] matches by case-insensitive exact title; the first
//     note in collection order wins when titles are duplicated.
//   - Unresolvable references are dropped silently. A dangling
//     reference is valid authored text, not a fault.
func Links(body string, notes []note.Note) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[string]struct{}, len(notes))
	byTitle := make(map[string]string, len(notes))
	for _, n := range notes {
		byID[n.ID] = struct{}{}
		key := strings.ToLower(n.Title)
		if _, taken := byTitle[key]; !taken {
			byTitle[key] = n.ID
		}
	}

	seen := make(map[string]struct{}, len(matches))
	var out []string
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, m := range matches {
		target := m[1]
		// Aliases: [[Target|Alias]] resolves by Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		if len(target) > len(idPrefix) && strings.EqualFold(target[:len(idPrefix)], idPrefix) {
			id := target[len(idPrefix):]
			if _, ok := byID[id]; ok {
				add(id)
			}
			continue
		}

		if id, ok := byTitle[strings.ToLower(target)]; ok {
			add(id)
		}
	}
	return out
}

// Backlinks returns every note whose links contain id, in collection
// order. A linear scan is fine at the note counts this engine targets
// (low tens of thousands); the relation is derived on demand and never
// persisted, so it cannot drift from the link sets.
func Backlinks(id string, notes []note.Note) []note.Note {
	var out []note.Note
	for _, n := range notes {
		for _, l := range n.Links {
			if l == id {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
