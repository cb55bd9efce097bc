package db

import (
	"encoding/json"
	"time"
)

// Event kinds stored in timeline.events.kind.
const (
	KindRaw     = "raw"
	KindDeduped = "deduped"
)

// ExtractionRun maps timeline.extraction_runs.
type ExtractionRun struct {
	RunID          int64           `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID        string          `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RunName        string          `gorm:"column:run_name;type:text;not null"`
	ProjectName    string          `gorm:"column:project_name;type:text;not null"`
	City           string          `gorm:"column:city;type:text;not null;default:''"`
	RegistrationID *string         `gorm:"column:registration_id;type:text"`
	CorpusPath     string          `gorm:"column:corpus_path;type:text;not null;default:''"`
	MinConfidence  float64         `gorm:"column:min_confidence;type:double precision;not null"`
	DedupPolicy    string          `gorm:"column:dedup_policy;type:text;not null"`
	RawCount       int             `gorm:"column:raw_count;type:integer;not null;default:0"`
	DedupedCount   int             `gorm:"column:deduped_count;type:integer;not null;default:0"`
	Stats          json.RawMessage `gorm:"column:stats;type:jsonb"`
	ExtractedAt    time.Time       `gorm:"column:extracted_at;type:timestamptz;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ExtractionRun) TableName() string { return "timeline.extraction_runs" }

// TimelineEvent maps timeline.events. Position keeps the artifact order inside a kind.
type TimelineEvent struct {
	EventID    int64           `gorm:"column:event_id;primaryKey;autoIncrement"`
	RunID      int64           `gorm:"column:run_id;type:bigint;not null;index"`
	Kind       string          `gorm:"column:kind;type:text;not null"`
	Position   int             `gorm:"column:position;type:integer;not null"`
	EventDate  time.Time       `gorm:"column:event_date;type:date;not null"`
	Claim      string          `gorm:"column:claim;type:text;not null"`
	Confidence float64         `gorm:"column:confidence;type:double precision;not null"`
	Tags       json.RawMessage `gorm:"column:tags;type:jsonb;not null"`
	DocID      string          `gorm:"column:doc_id;type:text;not null"`
	Domain     string          `gorm:"column:domain;type:text;not null;default:''"`
	URL        string          `gorm:"column:url;type:text;not null;default:''"`
	FinalURL   string          `gorm:"column:final_url;type:text;not null;default:''"`
	TextPath   string          `gorm:"column:text_path;type:text;not null;default:''"`
	Snippet    string          `gorm:"column:snippet;type:text;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TimelineEvent) TableName() string { return "timeline.events" }

func autoMigrateModels() []any {
	return []any{
		&ExtractionRun{},
		&TimelineEvent{},
	}
}
