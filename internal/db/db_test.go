package db

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"horse.fit/stallednews/internal/store"
	"horse.fit/stallednews/internal/timeline"
)

func sampleArtifacts() store.Artifacts {
	ev := timeline.Event{
		Date:       "2022-06-27",
		Claim:      "The Authority ordered registration suspended on 27.06.2022.",
		Confidence: 0.83,
		Tags:       []string{"regulatory"},
		Evidence: timeline.EvidenceRef{
			Domain:   "haryanarera.gov.in",
			URL:      "https://haryanarera.gov.in/orders/1",
			FinalURL: "https://haryanarera.gov.in/orders/1",
			DocID:    "rera-order",
			TextPath: "/runs/a/texts/rera-order.txt",
			Snippet:  "The Authority ordered registration suspended on 27.06.2022.",
		},
	}
	second := ev
	second.Date = "2023-04-11"
	second.Tags = nil

	return store.Artifacts{
		Raw:     []timeline.Event{ev, second},
		Deduped: []timeline.Event{ev},
		Manifest: &store.Manifest{
			RunID:          "5f0c6a53-3d0a-4d3c-9b1e-2f4b8c9d0e11",
			CreatedAt:      time.Date(2025, time.March, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800)),
			ProjectName:    "Sunrise Heights",
			City:           "Gurugram",
			RegistrationID: "GGM/582/314/2022/57",
			MinConfidence:  0.55,
			DedupPolicy:    "per_source",
			Stats:          map[string]int{"documents": 6},
		},
	}
}

func TestBuildRunRecord(t *testing.T) {
	t.Parallel()

	record, err := BuildRunRecord("sunrise", sampleArtifacts())
	if err != nil {
		t.Fatalf("BuildRunRecord failed: %v", err)
	}

	run := record.Run
	if run.RunName != "sunrise" || run.RawCount != 2 || run.DedupedCount != 1 {
		t.Fatalf("unexpected run row: %+v", run)
	}
	if run.RegistrationID == nil || *run.RegistrationID != "GGM/582/314/2022/57" {
		t.Fatalf("expected registration id to be stored, got %v", run.RegistrationID)
	}
	if run.ExtractedAt.Location() != time.UTC || run.ExtractedAt.Hour() != 4 {
		t.Fatalf("expected extracted_at in UTC, got %v", run.ExtractedAt)
	}
	if string(run.Stats) != `{"documents":6}` {
		t.Fatalf("unexpected stats payload: %s", run.Stats)
	}

	if len(record.Events) != 3 {
		t.Fatalf("expected 3 event rows, got %d", len(record.Events))
	}
	kinds := []string{record.Events[0].Kind, record.Events[1].Kind, record.Events[2].Kind}
	if strings.Join(kinds, ",") != "raw,raw,deduped" {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if record.Events[1].Position != 1 || record.Events[2].Position != 0 {
		t.Fatalf("unexpected positions: %+v", record.Events)
	}

	var tags []string
	if err := json.Unmarshal(record.Events[1].Tags, &tags); err != nil || tags == nil || len(tags) != 0 {
		t.Fatalf("expected empty tag array for untagged event, got %s", record.Events[1].Tags)
	}
	if !record.Events[0].EventDate.Equal(time.Date(2022, time.June, 27, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected event date: %v", record.Events[0].EventDate)
	}
}

func TestBuildRunRecordRequiresManifest(t *testing.T) {
	t.Parallel()

	artifacts := sampleArtifacts()
	artifacts.Manifest = nil
	if _, err := BuildRunRecord("sunrise", artifacts); err == nil {
		t.Fatalf("expected missing manifest to fail")
	}

	artifacts = sampleArtifacts()
	artifacts.Manifest.RunID = "not-a-uuid"
	if _, err := BuildRunRecord("sunrise", artifacts); err == nil {
		t.Fatalf("expected invalid run id to fail")
	}

	artifacts = sampleArtifacts()
	artifacts.Raw[0].Date = "27.06.2022"
	if _, err := BuildRunRecord("sunrise", artifacts); err == nil {
		t.Fatalf("expected non-ISO date to fail")
	}
}

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level, env string
		want       logger.LogLevel
	}{
		{"debug", "production", logger.Info},
		{"info", "production", logger.Warn},
		{"error", "local", logger.Error},
		{"silent", "local", logger.Silent},
		{"verbose", "local", logger.Warn},
		{"verbose", "production", logger.Error},
	}
	for _, tc := range cases {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("resolveGormLogLevel(%q, %q) = %v, want %v", tc.level, tc.env, got, tc.want)
		}
	}
}

func TestNilPool(t *testing.T) {
	t.Parallel()

	var p *Pool
	if err := p.Close(); err != nil {
		t.Fatalf("Close on nil pool: %v", err)
	}
	if _, err := p.SaveRun(context.Background(), RunRecord{}); err == nil {
		t.Fatalf("expected SaveRun on nil pool to fail")
	}
	if p.GORM() != nil {
		t.Fatalf("expected nil gorm handle")
	}
}

func TestMigrationPlanOrder(t *testing.T) {
	t.Parallel()

	plan := migrationPlan()
	if len(plan) != 3 {
		t.Fatalf("unexpected migration plan length: %d", len(plan))
	}
	if !strings.Contains(plan[0].sql, "CREATE SCHEMA IF NOT EXISTS timeline") {
		t.Fatalf("schema must be created before tables: %q", plan[0].sql)
	}
	if len(plan[1].models) != len(autoMigrateModels()) || plan[1].sql != "" {
		t.Fatalf("second step must migrate the models only: %+v", plan[1])
	}
	if !strings.Contains(plan[2].sql, "timeline.events") {
		t.Fatalf("indexes must run after the tables exist: %q", plan[2].sql)
	}
}
