package models

// Link repräsentiert eine klassifizierte Webseite im Graphen.
// Primärschlüssel ist die normalisierte URL.
type Link struct {
	URL               string `json:"url"`
	Title             string `json:"title"`
	RawCategory       string `json:"raw_category"`       // unverarbeitete Modell-Antwort bzw. Preload-Label
	SuggestedCategory string `json:"suggested_category"` // extrahierter Kandidat vor dem Taxonomie-Match
	RawContent        string `json:"raw_content"`        // max. 5000 Zeichen
	CleanedContent    string `json:"cleaned_content"`    // max. 500 Zeichen
	Keywords          string `json:"keywords"`           // kommaseparierte Liste mit max. 3 Einträgen, "none" = keine

	CategoryExplanation string `json:"category_explanation"`
	KeywordExplanation  string `json:"keyword_explanation"`
}

// LinkWithCategory ist ein Link samt aufgelöster Kategorie für die Anzeige.
type LinkWithCategory struct {
	Link
	Category string `json:"category"`
}

// Interconnection ist eine entdeckte Querverbindung: zwei Links aus
// verschiedenen Kategorien, die dasselbe Keyword tragen.
type Interconnection struct {
	Link1     string `json:"link1"`
	Link2     string `json:"link2"`
	Keyword   string `json:"keyword"`
	Category1 string `json:"category1"`
	Category2 string `json:"category2"`
}
