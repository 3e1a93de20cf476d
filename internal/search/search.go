// Package search builds an in-memory inverted index over the note
// collection and answers scored queries against it.
//
// Exactly one scoring function is used everywhere: a simple additive
// bag-of-terms model. Per query term a candidate earns WeightTitle
// when its title contains the term, WeightTag for a tag match, and
// WeightBody for a body match. Short personal notes rarely saturate
// term frequency, so TF-IDF buys nothing here; the model stays
// deliberately flat.
package search

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/token"
)

// Weights are the per-field term-match scores. They are constants of
// the design surfaced as configuration, not tuning knobs the engine
// changes at runtime.
type Weights struct {
	Title int `yaml:"title"`
	Tag   int `yaml:"tag"`
	Body  int `yaml:"body"`
}

// DefaultWeights returns the canonical scoring weights.
func DefaultWeights() Weights {
	return Weights{Title: 20, Tag: 10, Body: 1}
}

// DefaultIndexTTL bounds how stale a cached index may get.
const DefaultIndexTTL = 30 * time.Second

// indexCacheKey is the cache key for the built index.
const indexCacheKey = "search:index"

// Result is one scored search hit.
type Result struct {
	Note  note.Note `json:"note"`
	Score int       `json:"score"`
}

// Index is an immutable inverted index over a collection snapshot.
// It is rebuilt wholesale and never patched, so concurrent readers
// either see a complete index or trigger a full rebuild.
type Index struct {
	weights Weights
	title   map[string][]string // term -> note ids, encounter order
	body    map[string][]string
	tag     map[string][]string
	notes   map[string]note.Note
	rank    map[string]int // note id -> collection position, for stable ties
}

// Build constructs the index from a collection snapshot. Title and
// body are tokenized separately; tags are indexed verbatim,
// lower-cased.
func Build(notes []note.Note, weights Weights) *Index {
	ix := &Index{
		weights: weights,
		title:   make(map[string][]string),
		body:    make(map[string][]string),
		tag:     make(map[string][]string),
		notes:   make(map[string]note.Note, len(notes)),
		rank:    make(map[string]int, len(notes)),
	}

	post := func(m map[string][]string, terms []string, id string) {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			m[t] = append(m[t], id)
		}
	}

	for i, n := range notes {
		post(ix.title, token.IndexTerms(n.Title), n.ID)
		post(ix.body, token.IndexTerms(n.Body), n.ID)
		tags := make([]string, len(n.Tags))
		for j, tag := range n.Tags {
			tags[j] = strings.ToLower(tag)
		}
		post(ix.tag, tags, n.ID)
		ix.notes[n.ID] = n
		ix.rank[n.ID] = i
	}
	return ix
}

// Search scores the query against the index. Candidates are the union
// of title, body, and tag matches across all query terms; notes
// matching no term are excluded. Ranking is descending score with
// ties kept in collection order.
func (ix *Index) Search(query string) []Result {
	// Queries keep short and stop-word terms on purpose: tags are
	// indexed verbatim, so a query for a tag like "go" must survive
	// tokenization. Such terms simply find nothing in the title and
	// body maps, which are built with the stricter IndexTerms.
	terms := token.Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[string]int)
	var order []string
	bump := func(id string, weight int) {
		if _, seen := scores[id]; !seen {
			order = append(order, id)
		}
		scores[id] += weight
	}

	for _, term := range terms {
		tagTerm := strings.TrimPrefix(term, "#")
		for _, id := range ix.title[term] {
			bump(id, ix.weights.Title)
		}
		for _, id := range ix.tag[tagTerm] {
			bump(id, ix.weights.Tag)
		}
		for _, id := range ix.body[term] {
			bump(id, ix.weights.Body)
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		if scores[id] <= 0 {
			continue
		}
		results = append(results, Result{Note: ix.notes[id], Score: scores[id]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return ix.rank[results[i].Note.ID] < ix.rank[results[j].Note.ID]
	})
	return results
}

// Indexer answers queries through the TTL cache, so repeated searches
// within the window reuse one built index. Staleness is bounded by
// the TTL; mutation does not invalidate eagerly.
type Indexer struct {
	cache   *cache.Manager
	ttl     time.Duration
	weights Weights
}

// NewIndexer creates an Indexer on the shared cache manager.
func NewIndexer(c *cache.Manager, ttl time.Duration, weights Weights) *Indexer {
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	return &Indexer{cache: c, ttl: ttl, weights: weights}
}

// Search builds (or reuses) the index for the given collection
// snapshot and runs the query.
func (s *Indexer) Search(query string, notes []note.Note) []Result {
	ix, _ := cache.Fetch(s.cache, indexCacheKey, s.ttl, func() (*Index, error) {
		return Build(notes, s.weights), nil
	})
	return ix.Search(query)
}

// Invalidate drops the cached index so the next query rebuilds. Used
// by callers that need read-your-writes, e.g. after a full import.
func (s *Indexer) Invalidate() {
	s.cache.Invalidate(indexCacheKey)
}
