package taggings

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/config"
	"github.com/pressroom/taggable/pkg/taggable/errs"
	"github.com/pressroom/taggable/pkg/taggable/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestTag(t *testing.T, db *gorm.DB, tenantID uint, name string) *models.Tag {
	tag := &models.Tag{TenantID: tenantID, Name: name, NameKey: models.ComparableName(name)}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("Failed to create tag %q: %v", name, err)
	}
	return tag
}

func reloadTag(t *testing.T, db *gorm.DB, id uint) *models.Tag {
	var tag models.Tag
	if err := db.First(&tag, id).Error; err != nil {
		t.Fatalf("Failed to reload tag %d: %v", id, err)
	}
	return &tag
}

func TestCreateTagging(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "ruby")

	tagging, err := store.Create(1, CreateParams{
		TagID:        tag.ID,
		TaggableType: "Post",
		TaggableID:   7,
		Context:      "tags",
		TaggerType:   "User",
		TaggerID:     3,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tagging.ID == 0 {
		t.Error("Expected tagging ID to be set after create")
	}
}

func TestCreateTaggingRequiredFields(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "ruby")

	cases := []CreateParams{
		{TaggableType: "Post", TaggableID: 7, Context: "tags"},   // no tag
		{TagID: tag.ID, TaggableType: "Post", TaggableID: 7},     // no context
		{TagID: tag.ID, Context: "tags"},                         // no taggable
		{TagID: tag.ID, TaggableType: "Post", Context: "tags"},   // no taggable id
	}
	for i, p := range cases {
		if _, err := store.Create(1, p); !errs.IsValidation(err) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestCreateTaggingMissingTag(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)

	_, err := store.Create(1, CreateParams{TagID: 9999, TaggableType: "Post", TaggableID: 7, Context: "tags"})
	if !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError for missing tag, got %v", err)
	}
}

func TestCreateTaggingCrossTenantTag(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 2, "ruby")

	_, err := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 7, Context: "tags"})
	if !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError for other tenant's tag, got %v", err)
	}
}

func TestCreateTaggingDuplicateTuple(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "ruby")

	p := CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 7, Context: "tags"}
	if _, err := store.Create(1, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(1, p); !errs.IsValidation(err) {
		t.Errorf("Expected ValidationError for duplicate tuple, got %v", err)
	}

	// The same tag in another context is a new tuple.
	p.Context = "skills"
	if _, err := store.Create(1, p); err != nil {
		t.Errorf("Expected tagging in other context to succeed: %v", err)
	}
}

func TestStoryCounter(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "breaking")

	var ids []uint
	for i := uint(1); i <= 3; i++ {
		tagging, err := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Story", TaggableID: i, Context: AdminContext})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, tagging.ID)
	}
	if got := reloadTag(t, db, tag.ID).StoriesCount; got != 3 {
		t.Errorf("Expected stories_count 3, got %d", got)
	}

	if err := store.Destroy(1, ids[0]); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if got := reloadTag(t, db, tag.ID).StoriesCount; got != 2 {
		t.Errorf("Expected stories_count 2 after destroy, got %d", got)
	}

	for _, id := range ids[1:] {
		if err := store.Destroy(1, id); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
	}
	if got := reloadTag(t, db, tag.ID).StoriesCount; got != 0 {
		t.Errorf("Expected stories_count 0 after destroying all, got %d", got)
	}
}

func TestCounterNeverGoesNegative(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "breaking")

	tagging, err := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Story", TaggableID: 1, Context: AdminContext})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Force the counter out of step, then destroy: the guarded decrement
	// must clamp at zero instead of wrapping.
	db.Model(&models.Tag{}).Where("id = ?", tag.ID).UpdateColumn("stories_count", 0)
	if err := store.Destroy(1, tagging.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if got := reloadTag(t, db, tag.ID).StoriesCount; got != 0 {
		t.Errorf("Expected stories_count to stay 0, got %d", got)
	}
}

func TestCountersPerOwnerType(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "breaking")

	store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Contact", TaggableID: 1, Context: AdminContext})
	store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "TwitterList", TaggableID: 1, Context: AdminContext})
	store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Page", TaggableID: 1, Context: AdminContext})

	reloaded := reloadTag(t, db, tag.ID)
	if reloaded.ContactsCount != 1 {
		t.Errorf("Expected contacts_count 1, got %d", reloaded.ContactsCount)
	}
	if reloaded.ListsCount != 1 {
		t.Errorf("Expected lists_count 1, got %d", reloaded.ListsCount)
	}
	if reloaded.StoriesCount != 0 {
		t.Errorf("Expected stories_count untouched, got %d", reloaded.StoriesCount)
	}
}

func TestCountersIgnoreOtherContexts(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "breaking")

	if _, err := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Story", TaggableID: 1, Context: "tags"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := reloadTag(t, db, tag.ID).StoriesCount; got != 0 {
		t.Errorf("Expected stories_count untouched outside %q context, got %d", AdminContext, got)
	}
}

func TestGarbageCollectionEnabled(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, &config.Config{RemoveUnusedTags: true})
	tag := createTestTag(t, db, 1, "temp")

	tagging, err := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 1, Context: "tags"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Destroy(1, tagging.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	var count int64
	db.Model(&models.Tag{}).Where("id = ?", tag.ID).Count(&count)
	if count != 0 {
		t.Error("Expected the orphaned tag to be removed")
	}
}

func TestGarbageCollectionKeepsUsedTags(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, &config.Config{RemoveUnusedTags: true})
	tag := createTestTag(t, db, 1, "busy")

	first, _ := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 1, Context: "tags"})
	store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 2, Context: "tags"})

	if err := store.Destroy(1, first.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	var count int64
	db.Model(&models.Tag{}).Where("id = ?", tag.ID).Count(&count)
	if count != 1 {
		t.Error("Expected the still-used tag to survive")
	}
}

func TestGarbageCollectionDisabled(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "temp")

	tagging, _ := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 1, Context: "tags"})
	if err := store.Destroy(1, tagging.ID); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	var count int64
	db.Model(&models.Tag{}).Where("id = ?", tag.ID).Count(&count)
	if count != 1 {
		t.Error("Expected the tag to remain with zero taggings")
	}
}

func TestDestroyNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)

	if err := store.Destroy(1, 9999); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestDestroyIsTenantScoped(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "ruby")
	tagging, _ := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 1, Context: "tags"})

	if err := store.Destroy(2, tagging.ID); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError under other tenant, got %v", err)
	}
}

func TestDestroyHookFailureReported(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, nil)
	tag := createTestTag(t, db, 1, "ruby")
	tagging, _ := store.Create(1, CreateParams{TagID: tag.ID, TaggableType: "Post", TaggableID: 1, Context: "tags"})

	hookFailure := errors.New("hook exploded")
	store.OnDestroy(func(db *gorm.DB, tg *models.Tagging) error {
		return hookFailure
	})

	err := store.Destroy(1, tagging.ID)
	if !errs.IsHook(err) {
		t.Fatalf("Expected HookError, got %v", err)
	}
	if !errors.Is(err, hookFailure) {
		t.Error("Expected the hook failure to be wrapped")
	}

	// The destroy itself still went through.
	var count int64
	db.Model(&models.Tagging{}).Where("id = ?", tagging.ID).Count(&count)
	if count != 0 {
		t.Error("Expected the tagging to be destroyed despite the hook failure")
	}
}
