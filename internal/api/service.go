package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/recommend"
	"github.com/starford/ansuz/internal/resolve"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/store"
)

// Notifier receives note change events for broadcast.
type Notifier interface {
	NotifyNote(kind, id string)
}

// LinkComputer resolves wikilinks off the request goroutine.
type LinkComputer interface {
	ComputeLinks(ctx context.Context, body string, notes []note.Note) ([]string, error)
}

// Service coordinates the store, search, and recommendation layers for
// the API handlers.
type Service struct {
	store   *store.Store
	indexer *search.Indexer
	engine  *recommend.Engine
	links   LinkComputer
	events  Notifier
}

// NewService wires the API service. events and links may be nil when
// the caller has no broker or worker (tests, MCP-only mode).
func NewService(st *store.Store, indexer *search.Indexer, engine *recommend.Engine, links LinkComputer, events Notifier) *Service {
	return &Service{store: st, indexer: indexer, engine: engine, links: links, events: events}
}

// NoteDetail is the full single-note payload, the stored note enriched
// with its checksum and backlinks.
type NoteDetail struct {
	note.Note
	Checksum  string   `json:"checksum"`
	Backlinks []string `json:"backlinks"`
}

// NoteListItem is a lightweight entry in list responses.
type NoteListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft carries the writable note fields of create and update requests.
type Draft struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
	Color string   `json:"color"`
}

func (s *Service) detail(n note.Note) *NoteDetail {
	linking := resolve.Backlinks(n.ID, s.store.All())
	bl := make([]string, len(linking))
	for i, b := range linking {
		bl[i] = b.ID
	}
	return &NoteDetail{Note: n, Checksum: n.ContentSum(), Backlinks: bl}
}

// invalidate drops derived caches after any mutation.
func (s *Service) invalidate() {
	s.indexer.Invalidate()
	s.engine.InvalidateTagFrequency()
}

func (s *Service) notify(kind, id string) {
	if s.events != nil {
		s.events.NotifyNote(kind, id)
	}
}

// GetNote returns one note by identifier.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	n, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("api: note %s: %w", id, apperr.ErrNotFound)
	}
	return s.detail(n), nil
}

// GetNoteByTitle returns one note by case-insensitive title match.
func (s *Service) GetNoteByTitle(ctx context.Context, title string) (*NoteDetail, error) {
	n, ok := s.store.ByTitle(title)
	if !ok {
		return nil, fmt.Errorf("api: note titled %q: %w", title, apperr.ErrNotFound)
	}
	return s.detail(n), nil
}

// CreateNote stores a new note from the draft.
func (s *Service) CreateNote(ctx context.Context, d Draft) (*NoteDetail, error) {
	n, err := s.store.Upsert(note.Note{Title: d.Title, Body: d.Body, Tags: d.Tags, Color: d.Color})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.notify("created", n.ID)
	return s.detail(n), nil
}

// UpdateNote replaces a note's content. A non-empty ifMatch checksum
// must equal the stored content checksum, or the update is rejected
// with ErrConflict.
func (s *Service) UpdateNote(ctx context.Context, id string, d Draft, ifMatch string) (*NoteDetail, error) {
	existing, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("api: note %s: %w", id, apperr.ErrNotFound)
	}
	if ifMatch != "" && ifMatch != existing.ContentSum() {
		return nil, fmt.Errorf("api: note %s: checksum mismatch: %w", id, apperr.ErrConflict)
	}

	existing.Title = d.Title
	existing.Body = d.Body
	existing.Tags = d.Tags
	existing.Color = d.Color
	n, err := s.store.Upsert(existing)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.notify("updated", n.ID)
	return s.detail(n), nil
}

// DeleteNote removes a note. Links from other notes that pointed at it
// stay in place as dangling references.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.invalidate()
	s.notify("deleted", id)
	return nil
}

// ListNotes returns notes with optional tag filtering, sorting, and
// pagination. A limit of zero or less means no page cap.
func (s *Service) ListNotes(ctx context.Context, limit, offset int, tag, sortBy string) ([]NoteListItem, int, error) {
	notes := s.store.All()

	if tag != "" {
		tag = strings.ToLower(tag)
		filtered := notes[:0]
		for _, n := range notes {
			for _, t := range n.Tags {
				if t == tag {
					filtered = append(filtered, n)
					break
				}
			}
		}
		notes = filtered
	}

	switch sortBy {
	case "updated_at":
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].UpdatedAt.After(notes[j].UpdatedAt) })
	case "title":
		sort.SliceStable(notes, func(i, j int) bool {
			return strings.ToLower(notes[i].Title) < strings.ToLower(notes[j].Title)
		})
	default:
		// Store order, which is creation order.
	}

	total := len(notes)
	if offset > len(notes) {
		offset = len(notes)
	}
	notes = notes[offset:]
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}

	items := make([]NoteListItem, len(notes))
	for i, n := range notes {
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		items[i] = NoteListItem{
			ID:        n.ID,
			Title:     n.Title,
			Tags:      tags,
			Color:     n.Color,
			Checksum:  n.ContentSum(),
			UpdatedAt: n.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search runs a ranked term query over the cached index.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	results := s.indexer.Search(query, s.store.All())
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	if results == nil {
		results = []search.Result{}
	}
	return results, nil
}

// Related returns notes ranked by relevance to the given one.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]note.Note, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, fmt.Errorf("api: note %s: %w", id, apperr.ErrNotFound)
	}
	related := s.engine.RelatedTo(id, s.store.All(), limit)
	if related == nil {
		related = []note.Note{}
	}
	return related, nil
}

// General returns collection-wide recommendations.
func (s *Service) General(ctx context.Context, limit int) []note.Note {
	results := s.engine.General(s.store.All(), limit)
	if results == nil {
		results = []note.Note{}
	}
	return results
}

// Backlinks lists the identifiers of notes linking to the given one.
func (s *Service) Backlinks(ctx context.Context, id string) ([]string, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, fmt.Errorf("api: note %s: %w", id, apperr.ErrNotFound)
	}
	linking := resolve.Backlinks(id, s.store.All())
	bl := make([]string, len(linking))
	for i, b := range linking {
		bl[i] = b.ID
	}
	return bl, nil
}

// PreviewLinks resolves wikilinks in a draft body without saving it.
// The resolution runs on the background worker.
func (s *Service) PreviewLinks(ctx context.Context, body string) ([]string, error) {
	links, err := s.links.ComputeLinks(ctx, body, s.store.All())
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []string{}
	}
	return links, nil
}

// GraphNode is one note in the link graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// GraphEdge is one directed link. Weight is 2 when the link is mutual.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Graph returns every note as a node and every resolved link as an
// edge.
func (s *Service) Graph(ctx context.Context) ([]GraphNode, []GraphEdge, error) {
	notes := s.store.All()

	byID := make(map[string]note.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	linksBack := func(from, to string) bool {
		n, ok := byID[from]
		if !ok {
			return false
		}
		for _, l := range n.Links {
			if l == to {
				return true
			}
		}
		return false
	}

	nodes := make([]GraphNode, len(notes))
	edges := []GraphEdge{}
	for i, n := range notes {
		nodes[i] = GraphNode{ID: n.ID, Title: n.Title, Color: n.Color}
		for _, l := range n.Links {
			if _, ok := byID[l]; !ok {
				continue // dangling reference to a deleted note
			}
			w := 1
			if linksBack(l, n.ID) {
				w = 2
			}
			edges = append(edges, GraphEdge{Source: n.ID, Target: l, Weight: w})
		}
	}
	return nodes, edges, nil
}

// TagFrequency returns the tag histogram across the collection.
func (s *Service) TagFrequency(ctx context.Context) map[string]int {
	return s.engine.TagFrequency(s.store.All())
}

// ListVersions returns a note's snapshots, newest first.
func (s *Service) ListVersions(ctx context.Context, id string) ([]note.Version, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, fmt.Errorf("api: note %s: %w", id, apperr.ErrNotFound)
	}
	versions := s.store.ListVersions(id)
	if versions == nil {
		versions = []note.Version{}
	}
	return versions, nil
}

// RestoreVersion rolls a note back to one of its snapshots.
func (s *Service) RestoreVersion(ctx context.Context, id, versionID string) (*NoteDetail, error) {
	n, err := s.store.RestoreVersion(id, versionID)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.notify("updated", n.ID)
	return s.detail(n), nil
}

// Export returns the full collection as a portable document.
func (s *Service) Export(ctx context.Context) store.Export {
	return s.store.ExportAll()
}

// Import replaces the collection with the document's notes.
func (s *Service) Import(ctx context.Context, doc store.Export) (int, error) {
	if err := s.store.ImportAll(doc); err != nil {
		return 0, err
	}
	s.invalidate()
	s.notify("imported", "")
	return len(doc.Notes), nil
}
