// Package recommend scores pairwise relevance between notes using the
// link graph, shared tags, and content overlap. It powers both the
// "related notes" panel and cold-start trending suggestions.
package recommend

import (
	"sort"
	"time"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/token"
)

// Pairwise scoring terms. Constants of the design, exposed for
// configuration rather than read from the environment.
const (
	sharedTagScore    = 3.0
	directLinkScore   = 5.0
	mutualLinkBonus   = 3.0
	sharedTargetScore = 2.0
	jaccardWeight     = 10.0
	recencyMax        = 5.0
	recencyWindow     = 7 * 24 * time.Hour
	hubSmallBonus     = 2.0 // more than 5 outgoing links
	hubLargeBonus     = 3.0 // more than 10, replaces the small bonus
	hubSmallThreshold = 5
	hubLargeThreshold = 10
)

// General (cold-start) scoring terms.
const (
	generalLinkWeight     = 2.0
	generalBacklinkWeight = 3.0
	generalRecencyMax     = 5.0
	generalRecencyWindow  = 30 * 24 * time.Hour
)

const tagFreqCacheKey = "recommend:tagfreq"

// DefaultTagFreqTTL bounds staleness of the cached tag-frequency table.
const DefaultTagFreqTTL = 30 * time.Second

// Engine computes recommendation scores over collection snapshots.
// It owns no persistent state; everything it derives is rebuildable.
type Engine struct {
	cache *cache.Manager
	ttl   time.Duration
	now   func() time.Time
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithClock injects a clock so tests can pin the recency terms.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine on the shared cache manager.
func New(c *cache.Manager, ttl time.Duration, opts ...Option) *Engine {
	if ttl <= 0 {
		ttl = DefaultTagFreqTTL
	}
	e := &Engine{cache: c, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scored pairs a note with its relevance score for stable sorting.
type scored struct {
	note  note.Note
	score float64
	pos   int
}

// RelatedTo ranks every other note by relevance to the source note.
// Candidates with non-positive score are excluded, the source itself
// never appears, and the result is truncated to limit (limit <= 0
// means no truncation).
func (e *Engine) RelatedTo(noteID string, notes []note.Note, limit int) []note.Note {
	var src *note.Note
	for i := range notes {
		if notes[i].ID == noteID {
			src = &notes[i]
			break
		}
	}
	if src == nil {
		return nil
	}

	srcTags := toSet(src.Tags)
	srcLinks := toSet(src.Links)
	srcTerms := token.TermSet(src.Title + " " + src.Body)
	now := e.now()

	var candidates []scored
	for i, cand := range notes {
		if cand.ID == src.ID {
			continue
		}
		s := e.pairScore(*src, cand, srcTags, srcLinks, srcTerms, now)
		if s <= 0 {
			continue
		}
		candidates = append(candidates, scored{note: cand, score: s, pos: i})
	}

	sortScored(candidates)
	return truncate(candidates, limit)
}

// pairScore sums every relevance term between source and candidate.
func (e *Engine) pairScore(src, cand note.Note, srcTags, srcLinks map[string]struct{}, srcTerms map[string]struct{}, now time.Time) float64 {
	var score float64

	for _, t := range cand.Tags {
		if _, ok := srcTags[t]; ok {
			score += sharedTagScore
		}
	}

	_, srcToCand := srcLinks[cand.ID]
	candToSrc := false
	for _, l := range cand.Links {
		if l == src.ID {
			candToSrc = true
			break
		}
	}
	if srcToCand {
		score += directLinkScore
	}
	if candToSrc {
		score += directLinkScore
	}
	if srcToCand && candToSrc {
		score += mutualLinkBonus
	}

	for _, l := range cand.Links {
		if l == cand.ID || l == src.ID {
			continue
		}
		if _, ok := srcLinks[l]; ok {
			score += sharedTargetScore
		}
	}

	candTerms := token.TermSet(cand.Title + " " + cand.Body)
	score += jaccardWeight * jaccard(srcTerms, candTerms)

	// Recency: linear decay from +5 at "now" to 0 at the window edge,
	// measured at the average of the two update times.
	avgAge := now.Sub(midpoint(src.UpdatedAt, cand.UpdatedAt))
	if avgAge >= 0 && avgAge < recencyWindow {
		score += recencyMax * (1 - float64(avgAge)/float64(recencyWindow))
	}

	switch {
	case len(cand.Links) > hubLargeThreshold:
		score += hubLargeBonus
	case len(cand.Links) > hubSmallThreshold:
		score += hubSmallBonus
	}

	return score
}

// General ranks notes with no source context: connectivity, tag count,
// recency, and backlink count. Used for cold-start suggestions when no
// note is open.
func (e *Engine) General(notes []note.Note, limit int) []note.Note {
	backlinks := make(map[string]int)
	for _, n := range notes {
		for _, l := range n.Links {
			backlinks[l]++
		}
	}

	now := e.now()
	var candidates []scored
	for i, n := range notes {
		score := generalLinkWeight*float64(len(n.Links)) +
			float64(len(n.Tags)) +
			generalBacklinkWeight*float64(backlinks[n.ID])
		age := now.Sub(n.UpdatedAt)
		if age >= 0 && age < generalRecencyWindow {
			score += generalRecencyMax * (1 - float64(age)/float64(generalRecencyWindow))
		}
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{note: n, score: score, pos: i})
	}

	sortScored(candidates)
	return truncate(candidates, limit)
}

// TagFrequency returns tag -> note count over the collection, served
// through the TTL cache alongside the search index.
func (e *Engine) TagFrequency(notes []note.Note) map[string]int {
	freq, _ := cache.Fetch(e.cache, tagFreqCacheKey, e.ttl, func() (map[string]int, error) {
		out := make(map[string]int)
		for _, n := range notes {
			for _, t := range n.Tags {
				out[t]++
			}
		}
		return out, nil
	})
	return freq
}

// InvalidateTagFrequency drops the cached table.
func (e *Engine) InvalidateTagFrequency() {
	e.cache.Invalidate(tagFreqCacheKey)
}

// jaccard is |intersection| / |union|; 0 when either set is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2)
}

func sortScored(s []scored) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].pos < s[j].pos
	})
}

func truncate(s []scored, limit int) []note.Note {
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	out := make([]note.Note, len(s))
	for i, c := range s {
		out[i] = c.note
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
