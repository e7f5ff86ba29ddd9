package storage

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"linkweaver/models"
)

// GraphStore persistiert Links, Kategorien und Keywords als Property-Graph.
// Alle Schreiboperationen sind MERGE-basiert (create-if-absent); zusammen mit
// den Unique-Constraints aus InitSchema konvergieren konkurrierende Upserts
// desselben Namens auf genau einen Knoten.
type GraphStore struct {
	client *Neo4jClient
	logger *zap.Logger
}

func NewGraphStore(client *Neo4jClient, logger *zap.Logger) *GraphStore {
	return &GraphStore{client: client, logger: logger}
}

func (g *GraphStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: g.client.Database,
	})
}

// InitSchema legt die Unique-Constraints an, best-effort: ein Fehlschlag wird
// geloggt, blockiert den Start aber nicht.
func (g *GraphStore) InitSchema(ctx context.Context) {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT link_url_unique IF NOT EXISTS FOR (l:Link) REQUIRE l.url IS UNIQUE`,
		`CREATE CONSTRAINT category_name_unique IF NOT EXISTS FOR (c:Category) REQUIRE c.name IS UNIQUE`,
		`CREATE CONSTRAINT keyword_name_unique IF NOT EXISTS FOR (k:Keyword) REQUIRE k.name IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			g.logger.Warn("Constraint-Anlage fehlgeschlagen (fahre fort)", zap.Error(err))
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

// LinkExists prüft, ob ein Link mit der normalisierten URL existiert.
func (g *GraphStore) LinkExists(ctx context.Context, url string) (bool, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (l:Link {url: $url}) RETURN l.url LIMIT 1`,
			map[string]any{"url": url})
		if err != nil {
			return false, err
		}
		if res.Next(ctx) {
			return true, nil
		}
		return false, res.Err()
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// UpsertLink legt den Link-Knoten an (create-if-absent; ein bestehender
// Knoten wird nicht überschrieben), merged Kategorie- und Keyword-Knoten und
// die BELONGS_TO-/HAS_KEYWORD-Kanten. Alles läuft in einer einzigen
// Write-Transaktion. Der Keyword-Sentinel "none" erzeugt keinen Knoten.
func (g *GraphStore) UpsertLink(ctx context.Context, link models.Link, category string, keywords []string) error {
	realKeywords := make([]any, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" && kw != "none" {
			realKeywords = append(realKeywords, kw)
		}
	}

	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (l:Link {url: $url})
ON CREATE SET l.title = $title,
    l.raw_category = $raw_category,
    l.suggested_category = $suggested_category,
    l.raw_content = $raw_content,
    l.cleaned_content = $cleaned_content,
    l.keywords = $keywords,
    l.category_explanation = $category_explanation,
    l.keyword_explanation = $keyword_explanation
MERGE (c:Category {name: $category})
MERGE (l)-[:BELONGS_TO]->(c)
`, map[string]any{
			"url":                  link.URL,
			"title":                link.Title,
			"raw_category":         link.RawCategory,
			"suggested_category":   link.SuggestedCategory,
			"raw_content":          link.RawContent,
			"cleaned_content":      link.CleanedContent,
			"keywords":             link.Keywords,
			"category_explanation": link.CategoryExplanation,
			"keyword_explanation":  link.KeywordExplanation,
			"category":             category,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(realKeywords) > 0 {
			res, err := tx.Run(ctx, `
MATCH (l:Link {url: $url})
UNWIND $keywords AS kw
MERGE (k:Keyword {name: kw})
MERGE (l)-[:HAS_KEYWORD]->(k)
`, map[string]any{"url": link.URL, "keywords": realKeywords})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

// CountLinks zählt alle Link-Knoten.
func (g *GraphStore) CountLinks(ctx context.Context) (int64, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (l:Link) RETURN count(l) AS cnt`, nil)
		if err != nil {
			return int64(0), err
		}
		if res.Next(ctx) {
			if n, ok := res.Record().Values[0].(int64); ok {
				return n, nil
			}
		}
		return int64(0), res.Err()
	})
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// ListLinks liefert alle Links für den Snapshot-Export (Full Scan).
func (g *GraphStore) ListLinks(ctx context.Context) ([]models.Link, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (l:Link)
RETURN l.url, l.title, l.raw_content, l.raw_category, l.keywords,
       l.category_explanation, l.keyword_explanation
`, nil)
		if err != nil {
			return nil, err
		}
		var links []models.Link
		for res.Next(ctx) {
			values := res.Record().Values
			links = append(links, models.Link{
				URL:                 stringValue(values[0]),
				Title:               stringValue(values[1]),
				RawContent:          stringValue(values[2]),
				RawCategory:         stringValue(values[3]),
				Keywords:            stringValue(values[4]),
				CategoryExplanation: stringValue(values[5]),
				KeywordExplanation:  stringValue(values[6]),
			})
		}
		return links, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Link), nil
}

// ListLinksWithCategory liefert alle Links mit aufgelöster Kategorie für die
// Präsentationsschicht.
func (g *GraphStore) ListLinksWithCategory(ctx context.Context) ([]models.LinkWithCategory, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (l:Link)-[:BELONGS_TO]->(c:Category)
RETURN l.url, l.title, c.name, l.raw_category, l.suggested_category,
       l.raw_content, l.cleaned_content, l.keywords,
       l.category_explanation, l.keyword_explanation
`, nil)
		if err != nil {
			return nil, err
		}
		var links []models.LinkWithCategory
		for res.Next(ctx) {
			values := res.Record().Values
			links = append(links, models.LinkWithCategory{
				Link: models.Link{
					URL:                 stringValue(values[0]),
					Title:               stringValue(values[1]),
					RawCategory:         stringValue(values[3]),
					SuggestedCategory:   stringValue(values[4]),
					RawContent:          stringValue(values[5]),
					CleanedContent:      stringValue(values[6]),
					Keywords:            stringValue(values[7]),
					CategoryExplanation: stringValue(values[8]),
					KeywordExplanation:  stringValue(values[9]),
				},
				Category: stringValue(values[2]),
			})
		}
		return links, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.LinkWithCategory), nil
}

// FindInterconnections liefert für jedes Paar verschiedener Links, die
// dasselbe Keyword tragen und in verschiedenen Kategorien liegen, eine Zeile
// pro geteiltem Keyword. Beide Richtungen eines Paares werden emittiert, es
// findet keine Kanonisierung statt.
func (g *GraphStore) FindInterconnections(ctx context.Context) ([]models.Interconnection, error) {
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (l1:Link)-[:HAS_KEYWORD]->(k:Keyword)<-[:HAS_KEYWORD]-(l2:Link),
      (l1)-[:BELONGS_TO]->(c1:Category), (l2)-[:BELONGS_TO]->(c2:Category)
WHERE l1.url <> l2.url AND c1.name <> c2.name
RETURN l1.url, l2.url, k.name, c1.name, c2.name
`, nil)
		if err != nil {
			return nil, err
		}
		var rows []models.Interconnection
		for res.Next(ctx) {
			values := res.Record().Values
			rows = append(rows, models.Interconnection{
				Link1:     stringValue(values[0]),
				Link2:     stringValue(values[1]),
				Keyword:   stringValue(values[2]),
				Category1: stringValue(values[3]),
				Category2: stringValue(values[4]),
			})
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Interconnection), nil
}

// stringValue liest einen String-Property-Wert; NULL wird zum leeren String.
func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
