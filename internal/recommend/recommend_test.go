package recommend

import (
	"testing"
	"time"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/note"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return New(cache.New(), time.Minute, WithClock(func() time.Time { return fixedNow }))
}

// old returns an update time far outside every recency window.
func old() time.Time { return fixedNow.Add(-90 * 24 * time.Hour) }

func TestRelatedTo_ExcludesSelfAndUnrelated(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Title: "Source", Tags: []string{"go"}, UpdatedAt: old()},
		{ID: "rel", Title: "Related", Tags: []string{"go"}, UpdatedAt: old()},
		{ID: "far", Title: "Unrelated", Body: "zzz qqq xxx", UpdatedAt: old()},
	}

	got := e.RelatedTo("src", notes, 10)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].ID != "rel" {
		t.Errorf("got %s, want rel", got[0].ID)
	}
}

func TestRelatedTo_LinkScores(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Links: []string{"out", "mut"}, UpdatedAt: old()},
		{ID: "out", UpdatedAt: old()},                         // src -> out: +5
		{ID: "in", Links: []string{"src"}, UpdatedAt: old()},  // in -> src: +5
		{ID: "mut", Links: []string{"src"}, UpdatedAt: old()}, // both: +5+5+3
	}

	got := e.RelatedTo("src", notes, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Mutual (13) outranks the single-direction links (5 each), which
	// tie and keep encounter order.
	if got[0].ID != "mut" || got[1].ID != "out" || got[2].ID != "in" {
		t.Errorf("order = %s %s %s, want mut out in", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRelatedTo_SharedTargets(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Links: []string{"hub1", "hub2"}, UpdatedAt: old()},
		{ID: "hub1", UpdatedAt: old()},
		{ID: "hub2", UpdatedAt: old()},
		{ID: "peer", Links: []string{"hub1", "hub2"}, UpdatedAt: old()}, // +2+2
		{ID: "half", Links: []string{"hub1"}, UpdatedAt: old()},         // +2
	}

	got := e.RelatedTo("src", notes, 10)
	// hub1/hub2 are directly linked (+5 each), peer shares two targets
	// (+4), half shares one (+2).
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].ID != "hub1" || got[1].ID != "hub2" {
		t.Errorf("direct links should lead: %s %s", got[0].ID, got[1].ID)
	}
	if got[2].ID != "peer" || got[3].ID != "half" {
		t.Errorf("shared-target order = %s %s, want peer half", got[2].ID, got[3].ID)
	}
}

func TestRelatedTo_ContentOverlap(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Title: "Rust Memory", Body: "ownership borrowing lifetimes", UpdatedAt: old()},
		{ID: "twin", Title: "Rust Memory", Body: "ownership borrowing lifetimes", UpdatedAt: old()},
		{ID: "near", Title: "Rust Memory", Body: "garbage collection", UpdatedAt: old()},
	}

	got := e.RelatedTo("src", notes, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Identical token sets give Jaccard 1.0 (+10); partial overlap less.
	if got[0].ID != "twin" || got[1].ID != "near" {
		t.Errorf("order = %s %s, want twin near", got[0].ID, got[1].ID)
	}
}

func TestRelatedTo_RecencyDecay(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Tags: []string{"x"}, UpdatedAt: fixedNow},
		{ID: "fresh", Tags: []string{"x"}, UpdatedAt: fixedNow},
		{ID: "stale", Tags: []string{"x"}, UpdatedAt: fixedNow.Add(-40 * 24 * time.Hour)},
	}

	got := e.RelatedTo("src", notes, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Both share a tag (+3); only the fresh pair earns a recency bonus.
	if got[0].ID != "fresh" {
		t.Errorf("top = %s, want fresh", got[0].ID)
	}
}

func TestRelatedTo_HubBonus(t *testing.T) {
	e := testEngine()
	manyLinks := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "t" + string(rune('a'+i))
		}
		return out
	}
	notes := []note.Note{
		{ID: "src", Tags: []string{"x"}, UpdatedAt: old()},
		{ID: "quiet", Tags: []string{"x"}, UpdatedAt: old()},
		{ID: "hub", Tags: []string{"x"}, Links: manyLinks(6), UpdatedAt: old()},
		{ID: "megahub", Tags: []string{"x"}, Links: manyLinks(11), UpdatedAt: old()},
	}

	got := e.RelatedTo("src", notes, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// +3 replaces +2 for the large hub rather than stacking.
	if got[0].ID != "megahub" || got[1].ID != "hub" || got[2].ID != "quiet" {
		t.Errorf("order = %s %s %s, want megahub hub quiet", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRelatedTo_LimitAndMissingSource(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "src", Tags: []string{"x"}, UpdatedAt: old()},
		{ID: "a", Tags: []string{"x"}, UpdatedAt: old()},
		{ID: "b", Tags: []string{"x"}, UpdatedAt: old()},
		{ID: "c", Tags: []string{"x"}, UpdatedAt: old()},
	}

	if got := e.RelatedTo("src", notes, 2); len(got) != 2 {
		t.Errorf("limit ignored: %d results", len(got))
	}
	if got := e.RelatedTo("ghost", notes, 2); got != nil {
		t.Errorf("missing source should yield nil, got %v", got)
	}
}

func TestGeneral_RanksByConnectivity(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "isolated", UpdatedAt: old()},
		{ID: "linker", Links: []string{"popular"}, UpdatedAt: old()},
		{ID: "popular", Tags: []string{"a", "b"}, UpdatedAt: old()},
	}

	got := e.General(notes, 10)
	// popular: 2 tags + 1 backlink*3 = 5; linker: 1 link*2 = 2;
	// isolated scores 0 and is excluded.
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].ID != "popular" || got[1].ID != "linker" {
		t.Errorf("order = %s %s, want popular linker", got[0].ID, got[1].ID)
	}
}

func TestGeneral_RecencyWindow(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "fresh", UpdatedAt: fixedNow.Add(-24 * time.Hour)},
		{ID: "edge", UpdatedAt: fixedNow.Add(-29 * 24 * time.Hour)},
		{ID: "beyond", UpdatedAt: fixedNow.Add(-31 * 24 * time.Hour)},
	}

	got := e.General(notes, 10)
	// Only notes inside the 30-day window score at all here.
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "fresh" || got[1].ID != "edge" {
		t.Errorf("order = %s %s, want fresh edge", got[0].ID, got[1].ID)
	}
}

func TestTagFrequency_Cached(t *testing.T) {
	e := testEngine()
	notes := []note.Note{
		{ID: "a", Tags: []string{"go", "notes"}},
		{ID: "b", Tags: []string{"go"}},
	}

	freq := e.TagFrequency(notes)
	if freq["go"] != 2 || freq["notes"] != 1 {
		t.Errorf("freq = %v", freq)
	}

	// Within the TTL the cached table is served even for a changed
	// collection snapshot.
	freq = e.TagFrequency(append(notes, note.Note{ID: "c", Tags: []string{"go"}}))
	if freq["go"] != 2 {
		t.Errorf("cached freq = %v, want stale table", freq)
	}

	e.InvalidateTagFrequency()
	freq = e.TagFrequency(append(notes, note.Note{ID: "c", Tags: []string{"go"}}))
	if freq["go"] != 3 {
		t.Errorf("post-invalidate freq = %v", freq)
	}
}
