// Package token normalizes free text into searchable terms. It is the
// shared front end of the search indexer and the recommendation
// engine's content-overlap scoring.
package token

import "strings"

// minTermLen is the shortest term kept in indexing contexts.
const minTermLen = 3

// stopWords are discarded in indexing contexts. Short function words
// carry no signal in a collection of short personal notes.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "been": {},
	"were": {}, "will": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "their": {}, "there": {}, "about": {}, "would": {},
	"could": {}, "should": {}, "into": {}, "than": {}, "then": {},
	"them": {}, "these": {}, "some": {}, "more": {}, "very": {},
	"just": {}, "also": {}, "over": {}, "only": {}, "other": {},
}

// Tokenize lower-cases text, strips every character outside
// [a-z0-9_#], and splits on whitespace. It is deterministic and
// idempotent: tokenizing already-normalized terms yields them back.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '#':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Fields(b.String())
}

// IndexTerms tokenizes text for indexing: terms shorter than three
// characters and stop words are discarded.
func IndexTerms(text string) []string {
	raw := Tokenize(text)
	out := raw[:0]
	for _, t := range raw {
		if len(t) < minTermLen {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TermSet returns the stop-word-filtered terms of text as a set, for
// Jaccard overlap computations.
func TermSet(text string) map[string]struct{} {
	terms := IndexTerms(text)
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
