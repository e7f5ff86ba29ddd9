package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"linkweaver/models"
)

// GraphStore ist die von der Pipeline benötigte Sicht auf den Graphen. Die
// Implementierung wird explizit hereingereicht; ihre Create-if-absent-
// Primitive müssen unter konkurrierenden Aufrufern sicher sein.
type GraphStore interface {
	LinkExists(ctx context.Context, url string) (bool, error)
	UpsertLink(ctx context.Context, link models.Link, category string, keywords []string) error
	ListLinks(ctx context.Context) ([]models.Link, error)
}

// Pipeline orchestriert die Verarbeitung einer einzelnen URL:
// Normalisieren → Fetch → Summarize → Classify → Upsert → Snapshot-Export.
// Die Stufen laufen strikt sequenziell; jede Netzwerk-Stufe degradiert lokal,
// nur Persistenz-Fehler schlagen als fehlgeschlagene Arbeitseinheit durch.
type Pipeline struct {
	Store      GraphStore
	Fetcher    *Fetcher
	Summarizer *Summarizer
	Classifier *Classifier
	Snapshot   *SnapshotService
	Logger     *zap.Logger
}

func NewPipeline(store GraphStore, fetcher *Fetcher, summarizer *Summarizer, classifier *Classifier, snapshot *SnapshotService, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		Store:      store,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Classifier: classifier,
		Snapshot:   snapshot,
		Logger:     logger,
	}
}

// ProcessLink verarbeitet eine Roh-URL und gibt eine Status-Meldung zurück.
// Existiert die normalisierte URL bereits, ist der Aufruf ein No-op
// ("Skipped"). Leitsatz: immer einen Link-Knoten erzeugen, lieber Qualität
// degradieren als die Verarbeitung abbrechen.
func (p *Pipeline) ProcessLink(ctx context.Context, rawURL string) (string, error) {
	url := NormalizeURL(rawURL)
	log := p.Logger.With(zap.String("url", url))

	exists, err := p.Store.LinkExists(ctx, url)
	if err != nil {
		return "", fmt.Errorf("existenzprüfung für %s: %w", url, err)
	}
	if exists {
		log.Info("URL bereits vorhanden, überspringe Verarbeitung")
		return fmt.Sprintf("Skipped (already exists): %s", url), nil
	}

	title, rawContent := p.Fetcher.Fetch(ctx, url)
	cleanedContent := p.Summarizer.Summarize(ctx, rawContent)

	excerpt := cleanedContent
	if excerpt == "" {
		excerpt = firstChars(rawContent, maxExcerptChars)
	}
	cls := p.Classifier.Classify(ctx, title, excerpt)

	link := models.Link{
		URL:                 url,
		Title:               title,
		RawCategory:         cls.RawResponse,
		SuggestedCategory:   cls.SuggestedCategory,
		RawContent:          rawContent,
		CleanedContent:      cleanedContent,
		Keywords:            JoinKeywords(cls.Keywords),
		CategoryExplanation: cls.CategoryExplanation,
		KeywordExplanation:  cls.KeywordExplanation,
	}

	if err := p.Store.UpsertLink(ctx, link, cls.Category, cls.Keywords); err != nil {
		return "", fmt.Errorf("persistieren von %s: %w", url, err)
	}

	// Snapshot nach jedem erfolgreichen Ingest neu schreiben, best-effort.
	if p.Snapshot != nil {
		if err := p.Snapshot.Export(ctx); err != nil {
			log.Warn("Snapshot-Export nach Ingest fehlgeschlagen", zap.Error(err))
		}
	}

	log.Info("Link verarbeitet",
		zap.String("category", cls.Category),
		zap.Strings("keywords", cls.Keywords))
	return fmt.Sprintf("Added: %s → %s (%s)", url, cls.Category, strings.Join(cls.Keywords, ", ")), nil
}

// JoinKeywords serialisiert eine Keyword-Liste zum Speicherformat:
// kommasepariert, oder der Sentinel "none" für eine leere Liste.
func JoinKeywords(keywords []string) string {
	if len(keywords) == 0 || (len(keywords) == 1 && keywords[0] == NoKeywords) {
		return NoKeywords
	}
	return strings.Join(keywords, ", ")
}
