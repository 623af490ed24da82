package course

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/coursegate/internal/database"
	"github.com/coursegate/pkg/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping DB-backed test")
	}
	db, err := database.NewDB(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func storeTestCourse(t *testing.T, db *sql.DB, store *Storage) *Course {
	t.Helper()
	c := &Course{Title: models.LocalizedText{Primary: "Storage Test", Secondary: "ストレージ"}}
	if err := store.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("create course: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM videos WHERE course_id = $1`, c.ID)
		db.Exec(`DELETE FROM courses WHERE id = $1`, c.ID)
	})
	return c
}

func TestCreateAndGetCourse(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	c := storeTestCourse(t, db, store)

	got, err := store.GetCourse(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if got.Status != StatusActive || got.Version != 1 || got.CurrentVersion != 1 {
		t.Errorf("unexpected defaults: %+v", got.Lifecycle())
	}
	if got.Title.Primary != "Storage Test" || got.Title.Secondary != "ストレージ" {
		t.Errorf("localized title lost: %+v", got.Title)
	}

	if _, err := store.GetCourse(context.Background(), "no-such-course"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWithCourseLockPersistsLifecycle(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	c := storeTestCourse(t, db, store)
	ctx := context.Background()

	when := time.Now().UTC()
	grace := when.AddDate(0, 6, 0)
	updated, err := store.WithCourseLock(ctx, c.ID, func(c *Course) error {
		return c.Deactivate(when, grace)
	})
	if err != nil {
		t.Fatalf("deactivate under lock: %v", err)
	}
	if updated.Status != StatusInactive {
		t.Errorf("expected inactive, got %q", updated.Status)
	}

	reloaded, err := store.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != StatusInactive || reloaded.DeactivatedAt == nil || reloaded.ArchiveGracePeriodEnd == nil {
		t.Errorf("lifecycle not persisted: %+v", reloaded.Lifecycle())
	}

	// A failed transition must not leave partial state behind.
	if _, err := store.WithCourseLock(ctx, c.ID, func(c *Course) error {
		return c.Unarchive()
	}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	reloaded, err = store.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != StatusInactive {
		t.Errorf("failed transition mutated state: %q", reloaded.Status)
	}
}

func TestPublishVideoBumpsVersion(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	c := storeTestCourse(t, db, store)
	ctx := context.Background()

	first, err := store.PublishVideo(ctx, c.ID, &Video{
		Title:          models.LocalizedText{Primary: "Lesson 1"},
		StorageLocator: "hls/l1.m3u8",
	})
	if err != nil {
		t.Fatalf("publish first: %v", err)
	}
	if first.EffectiveVersion != 2 {
		t.Errorf("first publish should stamp version 2, got %d", first.EffectiveVersion)
	}

	second, err := store.PublishVideo(ctx, c.ID, &Video{
		Title:          models.LocalizedText{Primary: "Lesson 2"},
		StorageLocator: "hls/l2.m3u8",
	})
	if err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if second.EffectiveVersion != 3 {
		t.Errorf("second publish should stamp version 3, got %d", second.EffectiveVersion)
	}

	reloaded, err := store.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CurrentVersion != second.EffectiveVersion {
		t.Errorf("current_version %d does not match last publish %d",
			reloaded.CurrentVersion, second.EffectiveVersion)
	}

	videos, err := store.ListVideos(ctx, c.ID)
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}

	if _, err := store.PublishVideo(ctx, "no-such-course", &Video{StorageLocator: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListArchiveCandidates(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	ctx := context.Background()

	lapsed := storeTestCourse(t, db, store)
	pending := storeTestCourse(t, db, store)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	if _, err := store.WithCourseLock(ctx, lapsed.ID, func(c *Course) error {
		return c.Deactivate(past.AddDate(0, -6, 0), past)
	}); err != nil {
		t.Fatalf("deactivate lapsed: %v", err)
	}
	if _, err := store.WithCourseLock(ctx, pending.ID, func(c *Course) error {
		return c.Deactivate(time.Now(), future)
	}); err != nil {
		t.Fatalf("deactivate pending: %v", err)
	}

	ids, err := store.ListArchiveCandidates(ctx, time.Now())
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}

	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[lapsed.ID] {
		t.Error("lapsed course missing from candidates")
	}
	if found[pending.ID] {
		t.Error("course inside grace window listed as candidate")
	}
}
