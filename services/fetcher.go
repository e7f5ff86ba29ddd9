package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkweaver/config"
)

// FailedFetchContent ist der Sentinel-Inhalt für fehlgeschlagene Abrufe.
const FailedFetchContent = "Failed to fetch content"

// maxRawContentChars begrenzt den extrahierten Seitentext.
const maxRawContentChars = 5000

// CustomTransport fügt jeder Anfrage einen Browser-User-Agent hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	return t.Transport.RoundTrip(req)
}

// Fetcher holt Roh-HTML und extrahiert den sichtbaren Text.
type Fetcher struct {
	Logger  *zap.Logger
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher erstellt einen neuen Fetcher mit Timeout und Rate-Limit aus der Konfiguration.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Logger: logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.FetchTimeout) * time.Second,
			Transport: &CustomTransport{
				Transport: http.DefaultTransport,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.FetchRateLimit), cfg.FetchRateBurst),
	}
}

// Fetch lädt die Seite und extrahiert Titel sowie Überschriften- und
// Absatztext (p, h1-h6), zusammengefügt mit einfachen Leerzeichen und auf
// 5000 Zeichen gekürzt. Jeder Fehler (Timeout, Non-2xx, Parse) degradiert zu
// (title = URL, content = Sentinel) — der Abruf ist nie fatal für die Pipeline.
func (f *Fetcher) Fetch(ctx context.Context, url string) (title, content string) {
	log := f.Logger.With(zap.String("url", url))

	if err := f.limiter.Wait(ctx); err != nil {
		log.Warn("Fetch abgebrochen beim Warten auf Rate-Limiter", zap.Error(err))
		return url, FailedFetchContent
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn("Fetch fehlgeschlagen: ungültige Anfrage", zap.Error(err))
		return url, FailedFetchContent
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn("Fetch fehlgeschlagen", zap.Error(err))
		return url, FailedFetchContent
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Fetch fehlgeschlagen: unerwarteter Status", zap.Int("status", resp.StatusCode))
		return url, FailedFetchContent
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Warn("Fetch fehlgeschlagen: HTML nicht parsebar", zap.Error(err))
		return url, FailedFetchContent
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = url
	}

	var parts []string
	doc.Find("p, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	content = firstChars(strings.Join(parts, " "), maxRawContentChars)

	log.Debug("Seite abgerufen", zap.Int("content_chars", len(content)))
	return title, content
}

// firstChars kürzt einen String auf n Zeichen (Runen, nicht Bytes).
func firstChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
