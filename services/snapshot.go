package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"linkweaver/models"
)

// snapshotHeader ist das feste Spaltenschema der Snapshot-Datei.
var snapshotHeader = []string{
	"url", "title", "content", "category", "keyword",
	"category_explanation", "keyword_explanation",
}

// SnapshotService liest beim Start einen vorklassifizierten CSV-Snapshot in
// den Graphen ein und serialisiert den Graphen zurück in dieselbe Datei.
type SnapshotService struct {
	Path   string
	Store  GraphStore
	Logger *zap.Logger
}

func NewSnapshotService(path string, store GraphStore, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{Path: path, Store: store, Logger: logger}
}

// Import lädt alle Zeilen des Snapshots in den Graphen. Mit skipExisting
// werden Zeilen übersprungen, deren normalisierte URL bereits existiert.
// Fehlt die Datei oder eine Pflichtspalte, wird nichts importiert (0, nil) —
// ein halber Import ist schlechter als keiner.
func (s *SnapshotService) Import(ctx context.Context, skipExisting bool) (int, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.Logger.Info("Keine Snapshot-Datei gefunden, überspringe Preload", zap.String("path", s.Path))
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		s.Logger.Warn("Snapshot-Header nicht lesbar, überspringe Preload", zap.Error(err))
		return 0, nil
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range snapshotHeader {
		if _, ok := columns[required]; !ok {
			s.Logger.Warn("Snapshot-Datei ohne Pflichtspalte, überspringe Preload",
				zap.String("missing", required))
			return 0, nil
		}
	}

	field := func(record []string, name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	processed := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Kaputte Restzeile beendet den Import; die bis dahin gelesenen
			// Zeilen bleiben übernommen.
			s.Logger.Warn("Snapshot-Zeile nicht lesbar, breche Import ab",
				zap.Int("imported", processed), zap.Error(err))
			break
		}

		url := strings.TrimSpace(field(record, "url"))
		if url == "" {
			continue
		}
		url = NormalizeURL(url)

		if skipExisting {
			exists, err := s.Store.LinkExists(ctx, url)
			if err != nil {
				return processed, fmt.Errorf("existenzprüfung für %s: %w", url, err)
			}
			if exists {
				continue
			}
		}

		title := strings.TrimSpace(field(record, "title"))
		if title == "" {
			title = url
		}
		rawContent := strings.TrimSpace(firstChars(field(record, "content"), maxRawContentChars))
		cleanedContent := firstChars(rawContent, maxCleanedChars)
		rawCategory := strings.TrimSpace(field(record, "category"))
		if rawCategory == "" {
			rawCategory = Uncategorized
		}
		categoryExplanation := strings.TrimSpace(field(record, "category_explanation"))
		if categoryExplanation == "" {
			categoryExplanation = "None"
		}
		keywordExplanation := strings.TrimSpace(field(record, "keyword_explanation"))
		if keywordExplanation == "" {
			keywordExplanation = "None"
		}

		keywords := splitKeywords(field(record, "keyword"))

		// Taxonomie-Match auf dem gespeicherten Label, ohne Modell-Aufruf.
		category := MatchCategoryLabel(rawCategory)

		link := models.Link{
			URL:                 url,
			Title:               title,
			RawCategory:         rawCategory,
			SuggestedCategory:   rawCategory,
			RawContent:          rawContent,
			CleanedContent:      cleanedContent,
			Keywords:            JoinKeywords(keywords),
			CategoryExplanation: categoryExplanation,
			KeywordExplanation:  keywordExplanation,
		}
		if err := s.Store.UpsertLink(ctx, link, category, keywords); err != nil {
			return processed, fmt.Errorf("import von %s: %w", url, err)
		}
		processed++
	}

	s.Logger.Info("Snapshot-Preload abgeschlossen", zap.Int("links", processed))
	return processed, nil
}

// Export serialisiert alle Links in die Snapshot-Datei und überschreibt sie
// dabei in place. Der Lesezugriff ist ungeschützt gegenüber parallelen
// Schreibern; die Datei kann einen Zwischenstand abbilden.
func (s *SnapshotService) Export(ctx context.Context) error {
	links, err := s.Store.ListLinks(ctx)
	if err != nil {
		return err
	}

	file, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(snapshotHeader); err != nil {
		return err
	}
	for _, link := range links {
		record := []string{
			link.URL,
			link.Title,
			link.RawContent,
			link.RawCategory,
			link.Keywords,
			link.CategoryExplanation,
			link.KeywordExplanation,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	s.Logger.Info("Snapshot exportiert", zap.Int("links", len(links)), zap.String("path", s.Path))
	return nil
}

// splitKeywords zerlegt das Keyword-Feld einer Snapshot-Zeile: Kommas,
// getrimmt, max. 3 Einträge, leer → ["none"].
func splitKeywords(raw string) []string {
	var keywords []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" && token != NoKeywords {
			keywords = append(keywords, token)
			if len(keywords) == maxKeywords {
				break
			}
		}
	}
	if len(keywords) == 0 {
		keywords = []string{NoKeywords}
	}
	return keywords
}
