package token

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize_LowercaseAndStrip(t *testing.T) {
	got := Tokenize("Hello, World! rust_lang #Go 2024")
	want := []string{"hello", "world", "rust_lang", "#go", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_Idempotent(t *testing.T) {
	first := Tokenize("Some Mixed-Case Text, with punctuation!")
	second := Tokenize(strings.Join(first, " "))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass = %v, want %v", second, first)
	}
}

func TestIndexTerms_DropsShortAndStopWords(t *testing.T) {
	got := IndexTerms("the quick brown fox is in a box with them")
	want := []string{"quick", "brown", "fox", "box"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IndexTerms = %v, want %v", got, want)
	}
}

func TestIndexTerms_Empty(t *testing.T) {
	if got := IndexTerms("a an to"); len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
}

func TestTermSet(t *testing.T) {
	set := TermSet("systems systems programming")
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
	if _, ok := set["systems"]; !ok {
		t.Error("missing term systems")
	}
	if _, ok := set["programming"]; !ok {
		t.Error("missing term programming")
	}
}
