package services

import (
	"testing"
	"time"

	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/models"
)

func TestCleanupCompleted_DeletesOnlyExpiredCompleted(t *testing.T) {
	db := openTestDB(t)
	svc := NewCleanupService(db, &config.RetentionConfig{CompletedDays: 30})

	old := time.Now().AddDate(0, 0, -60)
	recent := time.Now().AddDate(0, 0, -1)
	seed := []models.Event{
		{EventID: "evt-old-done", Status: models.EventStatusCompleted, CompletedAt: &old},
		{EventID: "evt-new-done", Status: models.EventStatusCompleted, CompletedAt: &recent},
		{EventID: "evt-old-pending", Status: models.EventStatusPending},
		{EventID: "evt-old-claimed", Status: models.EventStatusClaimed, ClaimedBy: "consumer-a"},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	// Backdate the unfinished rows past the retention window. Age alone must
	// never make an unfinished event eligible for deletion.
	db.Model(&models.Event{}).
		Where("event_id IN ?", []string{"evt-old-pending", "evt-old-claimed"}).
		Update("created_at", old)

	deleted, err := svc.CleanupCompleted(30)
	if err != nil {
		t.Fatalf("CleanupCompleted() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, expected 1", deleted)
	}

	var remaining []string
	if err := db.Model(&models.Event{}).Order("event_id").Pluck("event_id", &remaining).Error; err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	expected := []string{"evt-new-done", "evt-old-claimed", "evt-old-pending"}
	if len(remaining) != len(expected) {
		t.Fatalf("remaining = %v, expected %v", remaining, expected)
	}
	for i := range expected {
		if remaining[i] != expected[i] {
			t.Errorf("remaining[%d] = %q, expected %q", i, remaining[i], expected[i])
		}
	}
}

func TestCleanupCompleted_DisabledRetention(t *testing.T) {
	db := openTestDB(t)
	svc := NewCleanupService(db, &config.RetentionConfig{})

	old := time.Now().AddDate(0, 0, -365)
	if err := db.Create(&models.Event{EventID: "evt-1", Status: models.EventStatusCompleted, CompletedAt: &old}).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}

	deleted, err := svc.CleanupCompleted(0)
	if err != nil {
		t.Fatalf("CleanupCompleted() error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, expected 0 when retention is disabled", deleted)
	}
}
