package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"linkweaver/models"
)

// fakeGraphStore ist ein In-Memory-Ersatz für den Neo4j-Store in Tests.
type fakeGraphStore struct {
	mu         sync.Mutex
	order      []string
	links      map[string]models.Link
	categories map[string]string
	keywords   map[string][]string
	failExists error
	failUpsert error
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		links:      make(map[string]models.Link),
		categories: make(map[string]string),
		keywords:   make(map[string][]string),
	}
}

func (f *fakeGraphStore) LinkExists(ctx context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExists != nil {
		return false, f.failExists
	}
	_, ok := f.links[url]
	return ok, nil
}

func (f *fakeGraphStore) UpsertLink(ctx context.Context, link models.Link, category string, keywords []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	if _, ok := f.links[link.URL]; !ok {
		f.order = append(f.order, link.URL)
		f.links[link.URL] = link
	}
	f.categories[link.URL] = category
	f.keywords[link.URL] = keywords
	return nil
}

func (f *fakeGraphStore) ListLinks(ctx context.Context) ([]models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	links := make([]models.Link, 0, len(f.order))
	for _, url := range f.order {
		links = append(links, f.links[url])
	}
	return links, nil
}

// FindInterconnections spiegelt die Graph-Abfrage: eine Zeile pro geteiltem
// Keyword für jedes geordnete Paar verschiedener Links aus verschiedenen
// Kategorien. Der "none"-Sentinel bekommt keinen Keyword-Knoten und stiftet
// daher keine Verbindung.
func (f *fakeGraphStore) FindInterconnections(ctx context.Context) ([]models.Interconnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.Interconnection
	for _, u1 := range f.order {
		for _, u2 := range f.order {
			if u1 == u2 || f.categories[u1] == f.categories[u2] {
				continue
			}
			for _, k1 := range f.keywords[u1] {
				if k1 == "" || k1 == NoKeywords {
					continue
				}
				for _, k2 := range f.keywords[u2] {
					if k1 != k2 {
						continue
					}
					rows = append(rows, models.Interconnection{
						Link1:     u1,
						Link2:     u2,
						Keyword:   k1,
						Category1: f.categories[u1],
						Category2: f.categories[u2],
					})
				}
			}
		}
	}
	return rows, nil
}

func newTestPipeline(store GraphStore, model ChatModel, snapshot *SnapshotService) *Pipeline {
	logger := zap.NewNop()
	cfg := testFetchConfig()
	return NewPipeline(store,
		NewFetcher(cfg, logger),
		NewSummarizer(model, logger),
		NewClassifier(model, logger),
		snapshot,
		logger)
}

func TestProcessLinkUnreachableHostStillPersists(t *testing.T) {
	store := newFakeGraphStore()
	p := newTestPipeline(store, &stubModel{reply: "Category: News Keywords: graph."}, nil)

	msg, err := p.ProcessLink(context.Background(), "http://unreachable.invalid")
	if err != nil {
		t.Fatalf("ProcessLink: %v", err)
	}
	if msg != "Added: https://unreachable.invalid → News (graph)" {
		t.Errorf("message = %q", msg)
	}

	link, ok := store.links["https://unreachable.invalid"]
	if !ok {
		t.Fatal("link was not persisted")
	}
	if link.RawContent != FailedFetchContent {
		t.Errorf("raw content = %q, want fetch sentinel", link.RawContent)
	}
	if link.CleanedContent != "" {
		t.Errorf("cleaned content = %q, want empty", link.CleanedContent)
	}
	if link.Title != "https://unreachable.invalid" {
		t.Errorf("title = %q, want normalized URL", link.Title)
	}
	if link.Keywords != "graph" {
		t.Errorf("keywords = %q, want %q", link.Keywords, "graph")
	}
	if store.categories[link.URL] != "News" {
		t.Errorf("category = %q, want News", store.categories[link.URL])
	}
}

func TestProcessLinkSkipsExistingURL(t *testing.T) {
	store := newFakeGraphStore()
	p := newTestPipeline(store, &stubModel{reply: "Category: News Keywords: graph."}, nil)

	if _, err := p.ProcessLink(context.Background(), "unreachable.invalid"); err != nil {
		t.Fatalf("first ProcessLink: %v", err)
	}
	// Andere Schreibweise derselben URL.
	msg, err := p.ProcessLink(context.Background(), "http://unreachable.invalid/")
	if err != nil {
		t.Fatalf("second ProcessLink: %v", err)
	}
	if msg != "Skipped (already exists): https://unreachable.invalid" {
		t.Errorf("message = %q", msg)
	}
	if len(store.order) != 1 {
		t.Errorf("store holds %d links, want 1", len(store.order))
	}
}

func TestProcessLinkPersistErrorPropagates(t *testing.T) {
	store := newFakeGraphStore()
	store.failUpsert = errors.New("graph down")
	p := newTestPipeline(store, &stubModel{reply: "Category: News."}, nil)

	msg, err := p.ProcessLink(context.Background(), "unreachable.invalid")
	if err == nil {
		t.Fatal("expected error from failed upsert")
	}
	if msg != "" {
		t.Errorf("message = %q, want empty on error", msg)
	}
}

func TestProcessLinkExistsCheckErrorPropagates(t *testing.T) {
	store := newFakeGraphStore()
	store.failExists = errors.New("graph down")
	p := newTestPipeline(store, &stubModel{reply: "irrelevant"}, nil)

	if _, err := p.ProcessLink(context.Background(), "unreachable.invalid"); err == nil {
		t.Fatal("expected error from failed existence check")
	}
}

func TestProcessLinkExportsSnapshot(t *testing.T) {
	store := newFakeGraphStore()
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	snapshot := NewSnapshotService(path, store, zap.NewNop())
	p := newTestPipeline(store, &stubModel{reply: "Category: News Keywords: graph."}, snapshot)

	if _, err := p.ProcessLink(context.Background(), "unreachable.invalid"); err != nil {
		t.Fatalf("ProcessLink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot file not written: %v", err)
	}
	if !strings.Contains(string(data), "https://unreachable.invalid") {
		t.Errorf("snapshot does not contain the ingested URL:\n%s", data)
	}
}

func TestFindInterconnectionsSharedKeywordAcrossCategories(t *testing.T) {
	store := newFakeGraphStore()
	ctx := context.Background()
	seeds := []struct {
		url      string
		category string
		keywords []string
	}{
		{"https://a.example", "News", []string{"AI"}},
		{"https://b.example", "Blog", []string{"AI", "crypto"}},
		{"https://c.example", "News", []string{"AI"}},
		{"https://d.example", "E-commerce", []string{"none"}},
	}
	for _, seed := range seeds {
		link := models.Link{URL: seed.url, Title: seed.url, Keywords: JoinKeywords(seed.keywords)}
		if err := store.UpsertLink(ctx, link, seed.category, seed.keywords); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := store.FindInterconnections(ctx)
	if err != nil {
		t.Fatalf("FindInterconnections: %v", err)
	}

	got := make(map[string]models.Interconnection, len(rows))
	for _, row := range rows {
		got[row.Link1+"|"+row.Link2+"|"+row.Keyword] = row
	}
	if len(got) != len(rows) {
		t.Fatalf("duplicate rows emitted: %v", rows)
	}

	// Jede Verbindung erscheint in beiden Richtungen.
	want := []models.Interconnection{
		{Link1: "https://a.example", Link2: "https://b.example", Keyword: "AI", Category1: "News", Category2: "Blog"},
		{Link1: "https://b.example", Link2: "https://a.example", Keyword: "AI", Category1: "Blog", Category2: "News"},
		{Link1: "https://c.example", Link2: "https://b.example", Keyword: "AI", Category1: "News", Category2: "Blog"},
		{Link1: "https://b.example", Link2: "https://c.example", Keyword: "AI", Category1: "Blog", Category2: "News"},
	}
	if len(rows) != len(want) {
		t.Errorf("got %d rows, want %d: %v", len(rows), len(want), rows)
	}
	for _, w := range want {
		if got[w.Link1+"|"+w.Link2+"|"+w.Keyword] != w {
			t.Errorf("missing row %+v", w)
		}
	}

	// Gleiche Kategorie verbindet nicht, auch nicht bei geteiltem Keyword.
	for _, row := range rows {
		if row.Category1 == row.Category2 {
			t.Errorf("same-category pair emitted: %+v", row)
		}
	}
	// Der "none"-Sentinel stiftet keine Verbindung.
	for _, row := range rows {
		if row.Link1 == "https://d.example" || row.Link2 == "https://d.example" {
			t.Errorf("sentinel keyword created a connection: %+v", row)
		}
	}
}

func TestJoinKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     string
	}{
		{"empty", nil, "none"},
		{"none sentinel", []string{"none"}, "none"},
		{"single", []string{"graph"}, "graph"},
		{"multiple", []string{"graph", "storage"}, "graph, storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinKeywords(tt.keywords); got != tt.want {
				t.Errorf("JoinKeywords(%v) = %q, want %q", tt.keywords, got, tt.want)
			}
		})
	}
}
