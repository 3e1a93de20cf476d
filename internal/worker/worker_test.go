package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/search"
)

func testNotes() []note.Note {
	return []note.Note{
		{ID: "n1", Title: "Rust Guide", Body: "memory safety"},
		{ID: "n2", Title: "Go Notes", Body: "rust systems programming"},
	}
}

func TestSearchOp(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	results, err := w.Search(context.Background(), "rust", testNotes())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Note.ID != "n1" {
		t.Errorf("results = %+v", results)
	}
}

func TestComputeLinksOp(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	links, err := w.ComputeLinks(context.Background(), "see [[Rust Guide]]", testNotes())
	if err != nil {
		t.Fatalf("ComputeLinks: %v", err)
	}
	if len(links) != 1 || links[0] != "n1" {
		t.Errorf("links = %v", links)
	}
}

func TestBuildIndexOp(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	ix, err := w.BuildIndex(context.Background(), testNotes())
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if got := ix.Search("memory"); len(got) != 1 {
		t.Errorf("built index search = %+v", got)
	}
}

func TestUnknownOp(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	resp, err := w.Do(context.Background(), Request{Op: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown op")
	}
	if resp.Err == nil {
		t.Error("error must travel in the response error field")
	}
}

func TestCorrelation_ConcurrentRequests(t *testing.T) {
	w := New(search.DefaultWeights(), 16)
	defer w.Close()

	notes := testNotes()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := "rust"
			if i%2 == 0 {
				query = "memory"
			}
			results, err := w.Search(context.Background(), query, notes)
			if err != nil {
				t.Errorf("Search: %v", err)
				return
			}
			// Each caller must get the reply to its own query, not
			// whichever finished first.
			if query == "memory" && len(results) != 1 {
				t.Errorf("memory query got %d results", len(results))
			}
			if query == "rust" && len(results) != 2 {
				t.Errorf("rust query got %d results", len(results))
			}
		}(i)
	}
	wg.Wait()
}

func TestDo_PreservesCallerCorrelationID(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	resp, err := w.Do(context.Background(), Request{
		CorrelationID: "my-id",
		Op:            OpComputeLinks,
		Body:          "no links",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CorrelationID != "my-id" {
		t.Errorf("correlation id = %q, want my-id", resp.CorrelationID)
	}
	if resp.Op != OpComputeLinks {
		t.Errorf("op = %q", resp.Op)
	}
}

func TestDo_ContextTimeout(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Do(ctx, Request{Op: OpBuildIndex, Notes: testNotes()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDo_AfterClose(t *testing.T) {
	w := New(search.DefaultWeights(), 4)
	w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := w.Do(ctx, Request{Op: OpBuildIndex})
	if !errors.Is(err, apperr.ErrWorkerClosed) {
		t.Errorf("err = %v, want ErrWorkerClosed", err)
	}
}
