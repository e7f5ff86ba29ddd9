package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Journal-Datenbank (Postgres) für dispatchte Ingest-Jobs
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"5000"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Graph-Datenbank
	Neo4jURI      string `envconfig:"NEO4J_URI" required:"true"`
	Neo4jUser     string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD" required:"true"`
	Neo4jDatabase string `envconfig:"NEO4J_DATABASE"`
	Neo4jTimeout  int    `envconfig:"NEO4J_TIMEOUT_SECONDS" default:"10"`
	Neo4jMaxPool  int    `envconfig:"NEO4J_MAX_POOL_SIZE" default:"50"`

	// Ollama-Endpunkt für Summarizer und Classifier
	OllamaHost    string `envconfig:"OLLAMA_HOST" default:"http://host.docker.internal:11434"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"mistral:7b-instruct-v0.3-q4_0"`
	OllamaTimeout int    `envconfig:"OLLAMA_TIMEOUT_SECONDS" default:"20"`

	// Content-Fetcher
	FetchTimeout   int     `envconfig:"FETCH_TIMEOUT_SECONDS" default:"10"`
	FetchRateLimit float64 `envconfig:"FETCH_RATE_LIMIT" default:"5"`
	FetchRateBurst int     `envconfig:"FETCH_RATE_BURST" default:"10"`

	// CSV-Snapshot (Preload beim Start, Export nach jedem Ingest)
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"links_with_metadata.csv"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	BackupS3Key    string `envconfig:"BACKUP_S3_KEY" required:"true"`
	BackupS3Secret string `envconfig:"BACKUP_S3_SECRET" required:"true"`
	BackupS3URL    string `envconfig:"BACKUP_S3_URL" required:"true"`
	BackupS3Region string `envconfig:"BACKUP_S3_REGION" required:"true"`
	BackupS3Bucket string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
}

// DSN gibt den Data Source Name für die Journal-Datenbank zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
