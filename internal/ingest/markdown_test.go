package ingest

import "testing"

func TestParse_FrontmatterFields(t *testing.T) {
	input := []byte("---\ntitle: Hello\ncolor: \"#ffaa00\"\ntags:\n  - Go\n  - ideas\n---\n# Hello\nBody text.\n")
	p := Parse(input)
	if p.Title != "Hello" {
		t.Errorf("title = %q, want Hello", p.Title)
	}
	if p.Color != "#ffaa00" {
		t.Errorf("color = %q", p.Color)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "go" || p.Tags[1] != "ideas" {
		t.Errorf("tags = %v, want [go ideas]", p.Tags)
	}
	if p.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", p.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	p := Parse([]byte("# Just a heading\nSome text.\n"))
	if p.Title != "Just a heading" {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.Tags) != 0 {
		t.Errorf("tags = %v, want none", p.Tags)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	p := Parse([]byte(input))
	// Invalid YAML falls back to treating everything as body.
	if p.Body != input {
		t.Errorf("body = %q, want the whole input", p.Body)
	}
}

func TestParse_InlineTagsDeduped(t *testing.T) {
	input := []byte("---\ntags:\n  - alpha\n---\ntext #beta and #Alpha again\n")
	p := Parse(input)
	if len(p.Tags) != 2 || p.Tags[0] != "alpha" || p.Tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", p.Tags)
	}
}

func TestParse_TitleFromH1Fallback(t *testing.T) {
	p := Parse([]byte("some text\n# My Heading\nmore"))
	if p.Title != "My Heading" {
		t.Errorf("title = %q, want My Heading", p.Title)
	}
}
