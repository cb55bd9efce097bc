package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"horse.fit/stallednews/internal/store"
	"horse.fit/stallednews/internal/timeline"
)

const eventInsertBatch = 200

// RunRecord is a run directory prepared for insertion.
type RunRecord struct {
	Run    ExtractionRun
	Events []TimelineEvent
}

// BuildRunRecord converts a run's artifacts into rows. The manifest is required: it
// carries the run UUID and the identity the events were extracted for.
func BuildRunRecord(runName string, artifacts store.Artifacts) (RunRecord, error) {
	manifest := artifacts.Manifest
	if manifest == nil {
		return RunRecord{}, fmt.Errorf("run %q has no %s manifest", runName, store.ManifestFileName)
	}
	runUUID, err := uuid.Parse(strings.TrimSpace(manifest.RunID))
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %q: invalid run_id %q: %w", runName, manifest.RunID, err)
	}

	stats, err := json.Marshal(manifest.Stats)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode stats: %w", err)
	}

	run := ExtractionRun{
		RunUUID:       runUUID.String(),
		RunName:       runName,
		ProjectName:   manifest.ProjectName,
		City:          manifest.City,
		CorpusPath:    manifest.CorpusPath,
		MinConfidence: manifest.MinConfidence,
		DedupPolicy:   manifest.DedupPolicy,
		RawCount:      len(artifacts.Raw),
		DedupedCount:  len(artifacts.Deduped),
		Stats:         stats,
		ExtractedAt:   manifest.CreatedAt.UTC(),
	}
	if id := strings.TrimSpace(manifest.RegistrationID); id != "" {
		run.RegistrationID = &id
	}

	events := make([]TimelineEvent, 0, len(artifacts.Raw)+len(artifacts.Deduped))
	for _, group := range []struct {
		kind   string
		events []timeline.Event
	}{
		{KindRaw, artifacts.Raw},
		{KindDeduped, artifacts.Deduped},
	} {
		for i, ev := range group.events {
			row, err := eventRow(group.kind, i, ev)
			if err != nil {
				return RunRecord{}, fmt.Errorf("%s event %d: %w", group.kind, i, err)
			}
			events = append(events, row)
		}
	}
	return RunRecord{Run: run, Events: events}, nil
}

func eventRow(kind string, position int, ev timeline.Event) (TimelineEvent, error) {
	date, err := time.Parse(time.DateOnly, ev.Date)
	if err != nil {
		return TimelineEvent{}, fmt.Errorf("parse date %q: %w", ev.Date, err)
	}
	tags := ev.Tags
	if tags == nil {
		tags = []string{}
	}
	encodedTags, err := json.Marshal(tags)
	if err != nil {
		return TimelineEvent{}, fmt.Errorf("encode tags: %w", err)
	}
	return TimelineEvent{
		Kind:       kind,
		Position:   position,
		EventDate:  date,
		Claim:      ev.Claim,
		Confidence: ev.Confidence,
		Tags:       encodedTags,
		DocID:      ev.Evidence.DocID,
		Domain:     ev.Evidence.Domain,
		URL:        ev.Evidence.URL,
		FinalURL:   ev.Evidence.FinalURL,
		TextPath:   ev.Evidence.TextPath,
		Snippet:    ev.Evidence.Snippet,
	}, nil
}

// SaveRun replaces any stored copy of the run (matched by run UUID) with record, in one
// transaction. It returns the database run id.
func (p *Pool) SaveRun(ctx context.Context, record RunRecord) (int64, error) {
	if p == nil || p.gdb == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}

	run := record.Run
	err := p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ExtractionRun
		res := tx.Where("run_uuid = ?", run.RunUUID).Limit(1).Find(&existing)
		if res.Error != nil {
			return fmt.Errorf("lookup run: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			if err := tx.Where("run_id = ?", existing.RunID).Delete(&TimelineEvent{}).Error; err != nil {
				return fmt.Errorf("delete previous events: %w", err)
			}
			if err := tx.Delete(&ExtractionRun{}, existing.RunID).Error; err != nil {
				return fmt.Errorf("delete previous run: %w", err)
			}
		}

		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(record.Events) == 0 {
			return nil
		}

		events := make([]TimelineEvent, len(record.Events))
		for i, ev := range record.Events {
			ev.RunID = run.RunID
			events[i] = ev
		}
		if err := tx.CreateInBatches(events, eventInsertBatch).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return run.RunID, nil
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunUUID      string    `json:"run_uuid"`
	RunName      string    `json:"run_name"`
	ProjectName  string    `json:"project_name"`
	DedupedCount int       `json:"deduped_count"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// ListRuns returns the most recently extracted runs first.
func (p *Pool) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	var runs []ExtractionRun
	err := p.gdb.WithContext(ctx).
		Order("extracted_at DESC").
		Order("run_id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummary{
			RunUUID:      run.RunUUID,
			RunName:      run.RunName,
			ProjectName:  run.ProjectName,
			DedupedCount: run.DedupedCount,
			ExtractedAt:  run.ExtractedAt,
		})
	}
	return out, nil
}
