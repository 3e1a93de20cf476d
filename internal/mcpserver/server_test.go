package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/recommend"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	st := testutil.TestStore(t)
	c := cache.New()
	indexer := search.NewIndexer(c, 30*time.Second, search.DefaultWeights())
	engine := recommend.New(c, 30*time.Second)
	svc := api.NewService(st, indexer, engine, nil, nil)
	return New(svc)
}

// callTool invokes a tool handler directly; mcp-go has no in-process
// call helper.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "related_notes":
		result, err = srv.relatedNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_versions":
		result, err = srv.listVersions(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"title": "Test",
		"body":  "hello",
		"tags":  "alpha, beta",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_note", map[string]any{"id": id})
	text = resultText(r)
	if !strings.Contains(text, `"title": "Test"`) || !strings.Contains(text, `"alpha"`) {
		t.Errorf("read result = %q", text)
	}

	// Title lookup is case-insensitive.
	r = callTool(t, srv, "read_note", map[string]any{"title": "test"})
	if r.IsError {
		t.Errorf("read by title failed: %q", resultText(r))
	}
}

func TestReadNote_Missing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	r = callTool(t, srv, "read_note", map[string]any{})
	if !r.IsError {
		t.Error("expected error when neither id nor title given")
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"title": "Rust Guide", "body": "systems"})
	callTool(t, srv, "create_note", map[string]any{"title": "Unrelated", "body": "cooking"})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "rust"})
	text := resultText(r)
	if !strings.Contains(text, "Rust Guide") {
		t.Errorf("search result = %q", text)
	}
	if strings.Contains(text, "Unrelated") {
		t.Errorf("search must not match unrelated notes: %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"title": "Target"})
	targetID := strings.TrimPrefix(resultText(r), "created: ")
	r = callTool(t, srv, "create_note", map[string]any{"title": "Source", "body": "see [[Target]]"})
	sourceID := strings.TrimPrefix(resultText(r), "created: ")

	r = callTool(t, srv, "get_backlinks", map[string]any{"id": targetID})
	if got := resultText(r); got != sourceID {
		t.Errorf("backlinks = %q, want %q", got, sourceID)
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"id": sourceID})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks = %q", got)
	}
}

func TestRelatedNotes(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"title": "A", "tags": "go,notes"})
	aID := strings.TrimPrefix(resultText(r), "created: ")
	callTool(t, srv, "create_note", map[string]any{"title": "B", "tags": "go,notes"})

	r = callTool(t, srv, "related_notes", map[string]any{"id": aID})
	if !strings.Contains(resultText(r), `"B"`) {
		t.Errorf("related = %q", resultText(r))
	}
}

func TestListVersions(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"title": "Doc", "body": "v1"})
	id := strings.TrimPrefix(resultText(r), "created: ")

	r = callTool(t, srv, "list_versions", map[string]any{"id": id})
	if r.IsError {
		t.Fatalf("list_versions error: %q", resultText(r))
	}
	if got := resultText(r); got != "[]" {
		t.Errorf("fresh note versions = %q, want empty list", got)
	}
}
