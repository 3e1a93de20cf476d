// Package store owns the canonical note collection and its version
// history. All mutation passes through it; link resolution is
// re-triggered after every body edit so the derived links set never
// drifts from the authored wikilinks.
package store

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/resolve"
)

// Versioning policy defaults. A version is recorded before an update
// only when the previous snapshot differs materially AND the minimum
// interval has elapsed, which throttles version spam from rapid
// incremental edits. Only the most recent MaxVersions survive a write.
const (
	DefaultVersionMinGap = 5 * time.Minute
	DefaultMaxVersions   = 20
)

// Store is the single writer over the note collection. Mutation is
// serialized internally; reads hand out deep copies so callers can
// never alias canonical state.
type Store struct {
	mu       sync.RWMutex
	provider Provider
	logger   *slog.Logger
	now      func() time.Time

	versionMinGap time.Duration
	maxVersions   int

	notes    map[string]note.Note
	order    []string                  // collection order (insertion)
	versions map[string][]note.Version // newest first; lazily loaded
}

// StoreOption tweaks store construction.
type StoreOption func(*Store)

// WithClock injects a clock, used by tests to drive the versioning
// throttle deterministically.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithVersionPolicy overrides the throttle interval and retention count.
func WithVersionPolicy(minGap time.Duration, maxVersions int) StoreOption {
	return func(s *Store) {
		s.versionMinGap = minGap
		s.maxVersions = maxVersions
	}
}

// New creates a Store backed by provider and loads the collection.
// A load failure degrades to an empty collection with a logged warning
// rather than failing construction; the worst case is a stale or empty
// read, never a crash.
func New(provider Provider, logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		provider:      provider,
		logger:        logger,
		now:           time.Now,
		versionMinGap: DefaultVersionMinGap,
		maxVersions:   DefaultMaxVersions,
		notes:         make(map[string]note.Note),
		versions:      make(map[string][]note.Version),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := provider.LoadNotes()
	if err != nil {
		logger.Warn("store: load failed, starting empty", slog.String("error", err.Error()))
		return s
	}
	for _, n := range loaded {
		s.notes[n.ID] = n
		s.order = append(s.order, n.ID)
	}
	return s
}

// Upsert creates or updates a note. For an existing note the previous
// state is offered to the versioning policy first; then the note is
// persisted and its links are recomputed against the full current
// collection. Notes created after this call do not retroactively
// create links here.
//
// The returned error wraps apperr.ErrStorage when persistence failed;
// in that case the in-memory collection was still updated.
func (s *Store) Upsert(n note.Note) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var persistErr error

	if prev, exists := s.notes[n.ID]; exists {
		n.CreatedAt = prev.CreatedAt
		if err := s.recordVersionIfNeeded(prev, now); err != nil {
			persistErr = err
		}
	} else {
		if n.ID == "" {
			n.ID = note.NewID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		s.order = append(s.order, n.ID)
	}

	n.Tags = normalizeTags(n.Tags)
	n.UpdatedAt = now

	// Resolution sees the collection including this note, so a
	// self-referencing or freshly created target is visible.
	s.notes[n.ID] = n
	n.Links = resolve.Links(n.Body, s.collectionLocked())
	s.notes[n.ID] = n

	if err := s.provider.SaveNote(n); err != nil {
		s.logger.Error("store: save failed", slog.String("id", n.ID), slog.String("error", err.Error()))
		persistErr = fmt.Errorf("%w: save note %s: %v", apperr.ErrStorage, n.ID, err)
	}
	return n.Clone(), persistErr
}

// Get returns the note with the given identifier.
func (s *Store) Get(id string) (note.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return note.Note{}, false
	}
	return n.Clone(), true
}

// ByTitle returns the first note whose title matches, compared
// case-insensitively, the same folding the link resolver applies so
// lookup and resolution can never disagree.
func (s *Store) ByTitle(title string) (note.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := strings.ToLower(title)
	for _, id := range s.order {
		if n, ok := s.notes[id]; ok && strings.ToLower(n.Title) == want {
			return n.Clone(), true
		}
	}
	return note.Note{}, false
}

// All returns a deep copy of the collection in stable order.
func (s *Store) All() []note.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionLocked()
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Delete removes a note and its versions. Notes that linked to it keep
// their now-dangling references; a dangling reference is valid
// authored text and is simply skipped at resolution time.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.notes, id)
	delete(s.versions, id)
	s.removeFromOrder(id)

	if err := s.provider.DeleteNote(id); err != nil {
		s.logger.Error("store: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("%w: delete note %s: %v", apperr.ErrStorage, id, err)
	}
	return nil
}

// Wipe removes every note and version.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = make(map[string]note.Note)
	s.versions = make(map[string][]note.Version)
	s.order = nil

	if err := s.provider.Wipe(); err != nil {
		s.logger.Error("store: wipe failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: wipe: %v", apperr.ErrStorage, err)
	}
	return nil
}

// Export is a full-collection snapshot.
type Export struct {
	Notes    []note.Note    `json:"notes"`
	Metadata ExportMetadata `json:"metadata"`
}

// ExportMetadata describes an export payload.
type ExportMetadata struct {
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
}

// ExportAll snapshots the whole collection.
func (s *Store) ExportAll() Export {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := s.collectionLocked()
	return Export{
		Notes: notes,
		Metadata: ExportMetadata{
			ExportedAt: s.now(),
			Count:      len(notes),
		},
	}
}

// ImportAll replaces the entire collection with the payload — not a
// merge. Validation is all-or-nothing: on any malformed note the
// previous collection stays untouched and apperr.ErrInvalidImport is
// returned. Links are recomputed against the imported collection, so a
// round-trip reproduces the pre-export link sets.
func (s *Store) ImportAll(payload Export) error {
	seen := make(map[string]struct{}, len(payload.Notes))
	for i, n := range payload.Notes {
		if n.ID == "" {
			return fmt.Errorf("%w: note %d has empty id", apperr.ErrInvalidImport, i)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", apperr.ErrInvalidImport, n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	imported := make([]note.Note, len(payload.Notes))
	for i, n := range payload.Notes {
		c := n.Clone()
		c.Tags = normalizeTags(c.Tags)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
		imported[i] = c
	}
	for i := range imported {
		imported[i].Links = resolve.Links(imported[i].Body, imported)
	}

	s.notes = make(map[string]note.Note, len(imported))
	s.versions = make(map[string][]note.Version)
	s.order = s.order[:0]
	for _, n := range imported {
		s.notes[n.ID] = n
		s.order = append(s.order, n.ID)
	}

	if err := s.provider.ReplaceAll(imported); err != nil {
		s.logger.Error("store: import persist failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: import: %v", apperr.ErrStorage, err)
	}
	return nil
}

// ListVersions returns a note's retained versions, newest first.
func (s *Store) ListVersions(id string) []note.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := s.versionsLocked(id)
	out := make([]note.Version, len(vs))
	copy(out, vs)
	return out
}

// RestoreVersion snapshots the current state as a version, then
// overwrites the note's editable fields from the historical version.
// The identifier is preserved and UpdatedAt is freshly stamped.
func (s *Store) RestoreVersion(id, versionID string) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.notes[id]
	if !ok {
		return note.Note{}, apperr.ErrNotFound
	}

	var target *note.Version
	for _, v := range s.versionsLocked(id) {
		if v.ID == versionID {
			v := v
			target = &v
			break
		}
	}
	if target == nil {
		return note.Note{}, apperr.ErrNotFound
	}

	now := s.now()
	var persistErr error

	// The pre-restore state is always snapshotted so the restore
	// itself can be undone; the throttle does not apply here.
	if err := s.recordVersion(current, now); err != nil {
		persistErr = err
	}

	restored := current
	restored.Title = target.Title
	restored.Body = target.Body
	restored.Tags = normalizeTags(target.Tags)
	restored.Color = target.Color
	restored.UpdatedAt = now

	s.notes[id] = restored
	restored.Links = resolve.Links(restored.Body, s.collectionLocked())
	s.notes[id] = restored

	if err := s.provider.SaveNote(restored); err != nil {
		s.logger.Error("store: restore save failed", slog.String("id", id), slog.String("error", err.Error()))
		persistErr = fmt.Errorf("%w: restore note %s: %v", apperr.ErrStorage, id, err)
	}
	return restored.Clone(), persistErr
}

// recordVersionIfNeeded applies the versioning policy to the
// pre-update state of a note.
func (s *Store) recordVersionIfNeeded(prev note.Note, now time.Time) error {
	vs := s.versionsLocked(prev.ID)
	if len(vs) > 0 {
		last := vs[0]
		if last.ContentSum() == prev.ContentSum() {
			return nil
		}
		if now.Sub(last.CreatedAt) < s.versionMinGap {
			return nil
		}
	}
	return s.recordVersion(prev, now)
}

// recordVersion unconditionally snapshots a note state and enforces
// retention.
func (s *Store) recordVersion(n note.Note, now time.Time) error {
	snap := note.SnapshotOf(n, note.NewID(), now)
	vs := append([]note.Version{snap}, s.versionsLocked(n.ID)...)
	if len(vs) > s.maxVersions {
		vs = vs[:s.maxVersions]
	}
	s.versions[n.ID] = vs

	if err := s.provider.SaveVersions(n.ID, vs); err != nil {
		s.logger.Error("store: save versions failed", slog.String("id", n.ID), slog.String("error", err.Error()))
		return fmt.Errorf("%w: save versions %s: %v", apperr.ErrStorage, n.ID, err)
	}
	return nil
}

// versionsLocked returns the cached versions for id, loading them from
// the provider on first access. Load failures degrade to empty.
func (s *Store) versionsLocked(id string) []note.Version {
	if vs, ok := s.versions[id]; ok {
		return vs
	}
	vs, err := s.provider.LoadVersions(id)
	if err != nil {
		s.logger.Warn("store: load versions failed", slog.String("id", id), slog.String("error", err.Error()))
		vs = nil
	}
	if vs == nil {
		vs = []note.Version{}
	}
	s.versions[id] = vs
	return vs
}

func (s *Store) collectionLocked() []note.Note {
	out := make([]note.Note, 0, len(s.order))
	for _, id := range s.order {
		if n, ok := s.notes[id]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (s *Store) removeFromOrder(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
