// Package ingest imports Markdown files into the note store: a
// one-shot directory import plus a filesystem watcher that picks up
// files as they are dropped in.
package ingest

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Parsed holds the note fields extracted from a Markdown file.
type Parsed struct {
	Title string
	Body  string
	Tags  []string
	Color string
}

// Parse extracts YAML frontmatter (title, tags, color), inline #tags,
// and a title from raw Markdown bytes. Invalid YAML falls back to
// treating the entire content as body; a missing title falls back to
// the first H1 heading.
func Parse(data []byte) Parsed {
	fm, body := splitFrontmatter(data)

	return Parsed{
		Title: deriveTitle(fm, body),
		Body:  body,
		Tags:  extractTags(body, fm),
		Color: stringField(fm, "color"),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractTags collects tags from the frontmatter "tags" list and
// inline #tags in the body, deduplicated in encounter order.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if raw, ok := fm["tags"]; ok {
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}

	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first H1.
func deriveTitle(fm map[string]any, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
