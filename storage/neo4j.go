package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"linkweaver/config"
)

// Neo4jClient bündelt Driver und Ziel-Datenbank für den Graph-Store.
type Neo4jClient struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewNeo4jClient erstellt einen Driver mit Pool- und Timeout-Konfiguration
// und prüft die Erreichbarkeit der Datenbank.
func NewNeo4jClient(cfg *config.Config, logger *zap.Logger) (*Neo4jClient, error) {
	timeout := time.Duration(cfg.Neo4jTimeout) * time.Second

	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.Neo4jMaxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	logger.Info("Mit Neo4j verbunden", zap.String("uri", cfg.Neo4jURI))
	return &Neo4jClient{Driver: driver, Database: cfg.Neo4jDatabase}, nil
}

// Close schließt den Driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	return c.Driver.Close(ctx)
}
