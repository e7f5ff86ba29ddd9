package models

import (
	"time"
)

// Job-Status einer dispatchten URL-Verarbeitung.
const (
	JobQueued  = "queued"
	JobAdded   = "added"
	JobSkipped = "skipped"
	JobFailed  = "failed"
)

// IngestJob protokolliert eine dispatchte URL-Verarbeitung samt Ergebnis.
// Ersetzt das Result-Backend des externen Schedulers.
type IngestJob struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RawURL        string `json:"raw_url"`
	NormalizedURL string `json:"normalized_url" gorm:"index"`
	Status        string `json:"status" gorm:"index;default:'queued'"`
	Message       string `json:"message" gorm:"type:text"`
}

func (IngestJob) TableName() string { return "ingest_jobs" }
