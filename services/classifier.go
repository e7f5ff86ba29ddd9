package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Feste, geschlossene Taxonomie der bekannten Kategorien. Die Reihenfolge ist
// relevant: beim Matching gewinnt der erste Treffer.
var Categories = []string{
	"general tools", "graph technologies", "healthcare data", "ai and legal systems",
	"federated search", "organized crime analysis", "beneficial ownership",
	"financial crime technology", "corporate governance", "power and utilities",
	"Social Media", "Community Platform", "Database", "News", "Blog", "E-commerce",
	"International Economics/Policy", "Data Analysis", "Machine Learning / AI",
}

const (
	// Uncategorized ist der Fallback, wenn kein Taxonomie-Eintrag passt.
	Uncategorized = "Uncategorized"
	// NoKeywords ist der Sentinel für "keine Keywords gefunden".
	NoKeywords = "none"

	maxKeywords      = 3
	maxExcerptChars  = 1000
	explainGenerated = "Generated by LLM"
	explainFailure   = "Ollama connection failure"
)

var (
	categoryMarkerRe = regexp.MustCompile(`Category:\s*([A-Za-z\s/]+)(?:\s*Keywords:|$)`)
	keywordMarkerRe  = regexp.MustCompile(`Keywords:\s*([^.]+)`)
	capitalTokenRe   = regexp.MustCompile(`\b[A-Z][a-zA-Z\s-]+\b`)
)

// Classification ist das strukturierte Ergebnis eines Klassifikationslaufs.
type Classification struct {
	Category            string
	SuggestedCategory   string
	Keywords            []string
	RawResponse         string
	CategoryExplanation string
	KeywordExplanation  string
}

// Classifier fragt das Sprachmodell nach Kategorie und Keywords und parst die
// unstrukturierte Antwort in Stufen (Marker suchen, Taxonomie matchen,
// Keyword-Liste extrahieren, Fallback-Scan).
type Classifier struct {
	Model  ChatModel
	Logger *zap.Logger
}

func NewClassifier(model ChatModel, logger *zap.Logger) *Classifier {
	return &Classifier{Model: model, Logger: logger}
}

// Classify baut den Prompt aus Titel und Auszug, ruft das Modell auf und
// parst die Antwort. Modell-Fehler degradieren zu Uncategorized/["none"] mit
// Fehler-Provenienz; die Pipeline läuft immer weiter.
func (c *Classifier) Classify(ctx context.Context, title, excerpt string) Classification {
	prompt := fmt.Sprintf(
		"Given the webpage title '%s' and the following content excerpt: '%s', "+
			"suggest a single category (e.g., Social Media, Database, News) and up to three keywords (1-2 words each).",
		title, firstChars(excerpt, maxExcerptChars),
	)

	reply, err := c.Model.Chat(ctx, prompt)
	if err != nil {
		c.Logger.Warn("Klassifikation fehlgeschlagen", zap.String("title", title), zap.Error(err))
		return Classification{
			Category:            Uncategorized,
			SuggestedCategory:   Uncategorized,
			Keywords:            []string{NoKeywords},
			RawResponse:         "Failed",
			CategoryExplanation: explainFailure,
			KeywordExplanation:  explainFailure,
		}
	}

	category, suggested, keywords := ParseReply(reply)
	return Classification{
		Category:            category,
		SuggestedCategory:   suggested,
		Keywords:            keywords,
		RawResponse:         reply,
		CategoryExplanation: explainGenerated,
		KeywordExplanation:  explainGenerated,
	}
}

// ParseReply zerlegt eine unstrukturierte Modell-Antwort in aufgelöste
// Kategorie, Kategorie-Kandidat und Keywords. Fehlende Marker sind kein
// Fehler, sondern lösen still die Defaults aus.
func ParseReply(reply string) (category, suggested string, keywords []string) {
	category = Uncategorized
	suggested = Uncategorized
	keywords = []string{NoKeywords}

	if reply == "" {
		return category, suggested, keywords
	}

	suggested = extractSuggestedCategory(reply)
	category = matchTaxonomy(suggested, reply)

	if extracted := extractKeywords(reply); len(extracted) > 0 {
		keywords = extracted
	}
	if len(keywords) == 0 || (len(keywords) == 1 && keywords[0] == NoKeywords) {
		if fallback := fallbackKeywordScan(reply, category, suggested); len(fallback) > 0 {
			keywords = fallback
		}
	}
	if len(keywords) == 0 {
		keywords = []string{NoKeywords}
	}

	return category, suggested, keywords
}

// extractSuggestedCategory sucht den "Category:"-Marker und liefert den
// Buchstaben/Leerzeichen/Slash-Lauf dahinter, sonst Uncategorized.
func extractSuggestedCategory(reply string) string {
	if m := categoryMarkerRe.FindStringSubmatch(reply); m != nil {
		if candidate := strings.TrimSpace(m[1]); candidate != "" {
			return candidate
		}
	}
	return Uncategorized
}

// matchTaxonomy löst den Kandidaten gegen die geschlossene Taxonomie auf:
// case-insensitiver Exakt-Match auf den Kandidaten oder Substring-Match gegen
// die gesamte Antwort. Der erste Taxonomie-Eintrag gewinnt.
func matchTaxonomy(suggested, reply string) string {
	replyLower := strings.ToLower(reply)
	for _, cat := range Categories {
		if strings.EqualFold(cat, suggested) || strings.Contains(replyLower, strings.ToLower(cat)) {
			return cat
		}
	}
	return Uncategorized
}

// extractKeywords sucht den "Keywords:"-Marker, nimmt den Text bis zum
// nächsten Punkt und splittet an Kommas (max. 3 nicht-leere Tokens).
func extractKeywords(reply string) []string {
	m := keywordMarkerRe.FindStringSubmatch(reply)
	if m == nil {
		return nil
	}
	var keywords []string
	for _, token := range strings.Split(m[1], ",") {
		if token = strings.TrimSpace(token); token != "" {
			keywords = append(keywords, token)
			if len(keywords) == maxKeywords {
				break
			}
		}
	}
	return keywords
}

// fallbackKeywordScan sammelt großgeschriebene Wort-/Kurzphrasen-Tokens
// (max. 2 Wörter) aus der Antwort. Tokens, die bereits in der aufgelösten
// oder vorgeschlagenen Kategorie stecken, werden ausgeschlossen.
func fallbackKeywordScan(reply, category, suggested string) []string {
	categoryLower := strings.ToLower(category)
	suggestedLower := strings.ToLower(suggested)

	var keywords []string
	for _, match := range capitalTokenRe.FindAllString(reply, -1) {
		token := strings.TrimSpace(match)
		if token == "" || len(strings.Fields(token)) > 2 {
			continue
		}
		tokenLower := strings.ToLower(token)
		if strings.Contains(categoryLower, tokenLower) || strings.Contains(suggestedLower, tokenLower) {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// MatchCategoryLabel löst ein bereits vorhandenes Kategorie-Label (z.B. aus
// einem Snapshot) ohne Modell-Aufruf gegen die Taxonomie auf.
func MatchCategoryLabel(label string) string {
	category, _, _ := ParseReply("Category: " + label)
	return category
}
