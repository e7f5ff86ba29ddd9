package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"linkweaver/config"
	"linkweaver/models"
	"linkweaver/providers/ollama"
	"linkweaver/services"
	"linkweaver/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var linksProcessedCounter *prometheus.CounterVec

func init() {
	linksProcessedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "links_processed_total",
			Help: "Total number of dispatched link ingestions by outcome.",
		},
		[]string{"outcome"},
	)
	prometheus.MustRegister(linksProcessedCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Journal-Datenbank für dispatchte Jobs
	journalDB, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to journal database", zap.Error(err))
	}
	logging.Info("Running database auto-migration...")
	journalDB.AutoMigrate(&models.IngestJob{})

	// Graph-Store
	neo4jClient, err := storage.NewNeo4jClient(cfg, logging)
	if err != nil {
		logging.Fatal("Neo4j connection failed", zap.Error(err))
	}
	defer neo4jClient.Close(context.Background())

	graph := storage.NewGraphStore(neo4jClient, logging)
	graph.InitSchema(context.Background())

	// Services
	model := ollama.NewClient(cfg, logging)
	fetcher := services.NewFetcher(cfg, logging)
	summarizer := services.NewSummarizer(model, logging)
	classifier := services.NewClassifier(model, logging)
	snapshot := services.NewSnapshotService(cfg.SnapshotPath, graph, logging)
	pipeline := services.NewPipeline(graph, fetcher, summarizer, classifier, snapshot, logging)

	// Seeding vor dem Snapshot-Preload: der Count-Check sieht so einen noch
	// leeren Graphen
	seedSampleLinks(graph, logging)
	if count, err := snapshot.Import(context.Background(), true); err != nil {
		logging.Error("Snapshot-Preload fehlgeschlagen", zap.Error(err))
	} else if count > 0 {
		logging.Info("Links aus Snapshot geladen", zap.Int("count", count))
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupLinkRoutes(router, pipeline, graph, journalDB, logging)
	setupJobRoutes(router, journalDB, logging)
	setupSnapshotRoutes(router, snapshot, logging)

	// Nächtlicher Snapshot-Export samt S3-Backup
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled snapshot job...")
		if err := snapshot.Export(context.Background()); err != nil {
			logging.Error("Scheduled snapshot export failed", zap.Error(err))
			return
		}
		if err := backupSnapshot(s3Client, cfg, logging); err != nil {
			logging.Error("Scheduled snapshot backup failed", zap.Error(err))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupLinkRoutes(router *gin.Engine, pipeline *services.Pipeline, graph *storage.GraphStore, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/links")

	// Alle Links mit aufgelöster Kategorie, Anzeige-Defaults wie im Export-Schema
	rg.GET("/", func(c *gin.Context) {
		links, err := graph.ListLinksWithCategory(c.Request.Context())
		if err != nil {
			log.Error("Graph query for links failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}

		out := make([]gin.H, 0, len(links))
		for _, l := range links {
			out = append(out, gin.H{
				"url":                  l.URL,
				"title":                l.Title,
				"category":             l.Category,
				"raw_category":         l.RawCategory,
				"suggested_category":   orDefault(l.SuggestedCategory, "None"),
				"raw_content":          orDefault(l.RawContent, "Failed to fetch"),
				"cleaned_content":      orDefault(l.CleanedContent, "Failed to clean"),
				"keywords":             orDefault(l.Keywords, "none"),
				"category_explanation": orDefault(l.CategoryExplanation, "None"),
				"keyword_explanation":  orDefault(l.KeywordExplanation, "None"),
			})
		}
		c.JSON(http.StatusOK, out)
	})

	// Querverbindungen: Links verschiedener Kategorien mit gemeinsamem Keyword
	rg.GET("/interconnections", func(c *gin.Context) {
		rows, err := graph.FindInterconnections(c.Request.Context())
		if err != nil {
			log.Error("Graph query for interconnections failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "graph error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	// Neue URL zur Hintergrund-Verarbeitung einreihen
	rg.POST("/", func(c *gin.Context) {
		var req struct {
			URL string `json:"url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'url' field is required."})
			return
		}

		job := models.IngestJob{
			RawURL:        req.URL,
			NormalizedURL: services.NormalizeURL(req.URL),
			Status:        models.JobQueued,
		}
		if err := db.Create(&job).Error; err != nil {
			log.Error("Failed to create ingest job", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		go func() {
			msg, err := pipeline.ProcessLink(context.Background(), req.URL)
			status := models.JobAdded
			switch {
			case err != nil:
				status = models.JobFailed
				msg = fmt.Sprintf("Error processing %s: %v", req.URL, err)
				log.Error("Async link processing failed", zap.String("url", req.URL), zap.Error(err))
			case strings.HasPrefix(msg, "Skipped"):
				status = models.JobSkipped
			}
			linksProcessedCounter.WithLabelValues(status).Inc()
			if err := db.Model(&job).Updates(map[string]any{
				"status":  status,
				"message": msg,
			}).Error; err != nil {
				log.Error("Failed to update ingest job", zap.Uint("job_id", job.ID), zap.Error(err))
			}
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"message": "Link queued for background processing",
			"job_id":  job.ID,
		})
	})
}

func setupJobRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/jobs")

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.IngestJob{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var jobs []models.IngestJob
		if err := query.Order("created_at desc").Limit(100).Find(&jobs).Error; err != nil {
			log.Error("Database query for jobs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, jobs)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var job models.IngestJob
		if err := db.First(&job, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusOK, job)
	})
}

func setupSnapshotRoutes(router *gin.Engine, snapshot *services.SnapshotService, log *zap.Logger) {
	rg := router.Group("/snapshot")

	rg.POST("/export", func(c *gin.Context) {
		if err := snapshot.Export(c.Request.Context()); err != nil {
			log.Error("Snapshot export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "snapshot exported"})
	})

	rg.POST("/import", func(c *gin.Context) {
		count, err := snapshot.Import(c.Request.Context(), true)
		if err != nil {
			log.Error("Snapshot import failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed", "imported": count})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "snapshot imported", "imported": count})
	})
}

// seedSampleLinks legt zwei Beispiel-Links an, wenn der Graph noch leer ist.
func seedSampleLinks(graph *storage.GraphStore, logger *zap.Logger) {
	ctx := context.Background()
	count, err := graph.CountLinks(ctx)
	if err != nil {
		logger.Warn("Failed to count links for seeding", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	seeds := []struct {
		link     models.Link
		category string
		keywords []string
	}{
		{
			link: models.Link{
				URL:                 "https://neo4j.com",
				Title:               "Neo4j Graph Database",
				RawCategory:         "Database",
				SuggestedCategory:   "Database",
				RawContent:          "Graph database platform",
				CleanedContent:      "Graph database platform",
				Keywords:            "graph database",
				CategoryExplanation: "None",
				KeywordExplanation:  "None",
			},
			category: "Database",
			keywords: []string{"graph database"},
		},
		{
			link: models.Link{
				URL:                 "https://example.com",
				Title:               "Example Site",
				RawCategory:         "Example",
				SuggestedCategory:   "Example",
				RawContent:          "Example content",
				CleanedContent:      "Example content",
				Keywords:            "example",
				CategoryExplanation: "None",
				KeywordExplanation:  "None",
			},
			category: "Database",
			keywords: nil,
		},
	}
	for _, seed := range seeds {
		if err := graph.UpsertLink(ctx, seed.link, seed.category, seed.keywords); err != nil {
			logger.Warn("Failed to seed sample link", zap.String("url", seed.link.URL), zap.Error(err))
			return
		}
	}
	logger.Info("Sample links seeded.")
}

// backupSnapshot lädt die gzippte Snapshot-Datei in den Backup-Bucket hoch.
func backupSnapshot(client *awss3.Client, cfg *config.Config, logger *zap.Logger) error {
	data, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	key := fmt.Sprintf("links-snapshot-%s.csv.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := storage.UploadSnapshot(context.Background(), client, cfg.BackupS3Bucket, key, buf.Bytes(), cfg)
	if err != nil {
		return err
	}
	logger.Info("Snapshot-Backup hochgeladen", zap.String("s3_link", link))
	return nil
}

// orDefault ersetzt einen leeren String durch den Anzeige-Default.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
