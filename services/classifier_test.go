package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubModel struct {
	reply  string
	err    error
	prompt string
}

func (s *stubModel) Chat(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantCategory  string
		wantSuggested string
		wantKeywords  []string
	}{
		{
			name:          "both markers",
			reply:         "Category: News Keywords: AI, Machine Learning, Robotics, Extra.",
			wantCategory:  "News",
			wantSuggested: "News",
			wantKeywords:  []string{"AI", "Machine Learning", "Robotics"},
		},
		{
			name:          "taxonomy via substring without marker",
			reply:         "This resource is best described as a blog about cooking.",
			wantCategory:  "Blog",
			wantSuggested: "Uncategorized",
			wantKeywords:  []string{"none"},
		},
		{
			name:          "fallback keyword scan",
			reply:         "the page covers Golang, Kubernetes, Docker.",
			wantCategory:  "Uncategorized",
			wantSuggested: "Uncategorized",
			wantKeywords:  []string{"Golang", "Kubernetes", "Docker"},
		},
		{
			name:          "nothing recognized",
			reply:         "totally unrelated text.",
			wantCategory:  "Uncategorized",
			wantSuggested: "Uncategorized",
			wantKeywords:  []string{"none"},
		},
		{
			name:          "empty reply",
			reply:         "",
			wantCategory:  "Uncategorized",
			wantSuggested: "Uncategorized",
			wantKeywords:  []string{"none"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, suggested, keywords := ParseReply(tt.reply)
			if category != tt.wantCategory {
				t.Errorf("category = %q, want %q", category, tt.wantCategory)
			}
			if suggested != tt.wantSuggested {
				t.Errorf("suggested = %q, want %q", suggested, tt.wantSuggested)
			}
			if !reflect.DeepEqual(keywords, tt.wantKeywords) {
				t.Errorf("keywords = %v, want %v", keywords, tt.wantKeywords)
			}
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"capped at three", "Keywords: a, b, c, d, e", []string{"a", "b", "c"}},
		{"stops at period", "Keywords: graph db, cypher. Extra sentence.", []string{"graph db", "cypher"}},
		{"no marker", "just prose", nil},
		{"empty tokens skipped", "Keywords: , ,foo,", []string{"foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractKeywords(tt.reply); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractKeywords(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestFallbackKeywordScanExcludesCategoryTokens(t *testing.T) {
	got := fallbackKeywordScan("Graph Tools, Browser, Cypher", "graph technologies", "Graph Tools")
	want := []string{"Browser", "Cypher"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallbackKeywordScan = %v, want %v", got, want)
	}
}

func TestMatchCategoryLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"social media", "Social Media"},
		{"Tech News", "News"},
		{"Database", "Database"},
		{"nonsense", "Uncategorized"},
		{"", "Uncategorized"},
	}
	for _, tt := range tests {
		if got := MatchCategoryLabel(tt.label); got != tt.want {
			t.Errorf("MatchCategoryLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestClassifyModelFailure(t *testing.T) {
	c := NewClassifier(&stubModel{err: errors.New("connection refused")}, zap.NewNop())
	got := c.Classify(context.Background(), "Some Title", "some excerpt")

	if got.Category != Uncategorized || got.SuggestedCategory != Uncategorized {
		t.Errorf("category = %q/%q, want Uncategorized", got.Category, got.SuggestedCategory)
	}
	if !reflect.DeepEqual(got.Keywords, []string{NoKeywords}) {
		t.Errorf("keywords = %v, want [none]", got.Keywords)
	}
	if got.RawResponse != "Failed" {
		t.Errorf("raw response = %q, want Failed", got.RawResponse)
	}
	if got.CategoryExplanation != "Ollama connection failure" || got.KeywordExplanation != "Ollama connection failure" {
		t.Errorf("explanations = %q/%q", got.CategoryExplanation, got.KeywordExplanation)
	}
}

func TestClassifySuccess(t *testing.T) {
	model := &stubModel{reply: "Category: Database Keywords: graph, storage."}
	c := NewClassifier(model, zap.NewNop())
	got := c.Classify(context.Background(), "Neo4j Docs", "All about graph storage")

	if got.Category != "Database" {
		t.Errorf("category = %q, want Database", got.Category)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"graph", "storage"}) {
		t.Errorf("keywords = %v", got.Keywords)
	}
	if got.CategoryExplanation != "Generated by LLM" {
		t.Errorf("explanation = %q", got.CategoryExplanation)
	}
	if !strings.Contains(model.prompt, "Neo4j Docs") {
		t.Errorf("prompt does not mention the title: %q", model.prompt)
	}
}
