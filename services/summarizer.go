package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ChatModel ist die minimale Schnittstelle zum generativen Sprachmodell.
type ChatModel interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

const (
	// minSummarizeChars: kürzere Inhalte lohnen keine Zusammenfassung.
	minSummarizeChars = 100
	// maxPromptChars: nur der Anfang des Inhalts geht ins Modell.
	maxPromptChars = 2000
	// maxCleanedChars begrenzt das Ergebnis.
	maxCleanedChars = 500
)

// Summarizer komprimiert extrahierten Seitentext per Sprachmodell.
type Summarizer struct {
	Model  ChatModel
	Logger *zap.Logger
}

func NewSummarizer(model ChatModel, logger *zap.Logger) *Summarizer {
	return &Summarizer{Model: model, Logger: logger}
}

// Summarize gibt einen Auszug von max. 500 Zeichen zurück. Inhalte unter 100
// Zeichen liefern sofort den leeren String; schlägt der Modell-Aufruf fehl,
// wird auf die ersten 500 Zeichen des Rohinhalts zurückgefallen.
func (s *Summarizer) Summarize(ctx context.Context, content string) string {
	if len([]rune(strings.TrimSpace(content))) < minSummarizeChars {
		return ""
	}

	prompt := "Extract the main meaningful content from the following text, up to 500 characters: " +
		firstChars(content, maxPromptChars)

	reply, err := s.Model.Chat(ctx, prompt)
	if err != nil {
		s.Logger.Warn("Zusammenfassung fehlgeschlagen, falle auf Truncation zurück", zap.Error(err))
		return firstChars(content, maxCleanedChars)
	}

	return firstChars(strings.TrimSpace(reply), maxCleanedChars)
}
