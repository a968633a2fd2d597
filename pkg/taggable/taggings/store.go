package taggings

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/config"
	"github.com/pressroom/taggable/pkg/taggable/errs"
	"github.com/pressroom/taggable/pkg/taggable/models"
)

// DestroyHook runs after a tagging row is gone. Hook failures are collected
// and reported to the caller; they never undo the destroy.
type DestroyHook func(db *gorm.DB, tagging *models.Tagging) error

// Store handles tagging CRUD and the post-write side effects that keep
// counters and unused tags in order.
type Store struct {
	db           *gorm.DB
	counters     *CounterMaintainer
	destroyHooks []DestroyHook
}

// NewStore creates a tagging store wired with the default destroy pipeline:
// counter decrement, then unused-tag collection. A nil cfg falls back to
// defaults.
func NewStore(db *gorm.DB, cfg *config.Config) *Store {
	if cfg == nil {
		cfg = config.Default()
	}
	counters := NewCounterMaintainer()
	gc := NewGarbageCollector(cfg)
	return &Store{
		db:           db,
		counters:     counters,
		destroyHooks: []DestroyHook{counters.Decrement, gc.Sweep},
	}
}

// OnDestroy appends a hook to the destroy pipeline.
func (s *Store) OnDestroy(hook DestroyHook) {
	s.destroyHooks = append(s.destroyHooks, hook)
}

// CreateParams describes a tagging to create. TaggerType/TaggerID are
// optional; zero values mean no tagger.
type CreateParams struct {
	TagID        uint
	TaggableType string
	TaggableID   uint
	Context      string
	TaggerType   string
	TaggerID     uint
}

// Create validates and inserts a tagging, then bumps the matching counter
// within the same transaction. A duplicate tuple caught by the pre-check is
// a ValidationError; one caught only by the unique index is a ConflictError.
func (s *Store) Create(tenantID uint, p CreateParams) (*models.Tagging, error) {
	if p.TagID == 0 {
		return nil, &errs.ValidationError{Field: "tag_id", Reason: "can't be blank"}
	}
	if p.Context == "" {
		return nil, &errs.ValidationError{Field: "context", Reason: "can't be blank"}
	}
	if p.TaggableType == "" || p.TaggableID == 0 {
		return nil, &errs.ValidationError{Field: "taggable", Reason: "can't be blank"}
	}

	var n int64
	if err := s.db.Model(&models.Tag{}).Where("tenant_id = ? AND id = ?", tenantID, p.TagID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &errs.NotFoundError{Resource: "tag", ID: p.TagID}
	}

	dup, err := s.tupleExists(tenantID, p)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, &errs.ValidationError{Field: "tag_id", Reason: "has already been taken"}
	}

	tagging := &models.Tagging{
		TenantID:     tenantID,
		TagID:        p.TagID,
		TaggableType: p.TaggableType,
		TaggableID:   p.TaggableID,
		Context:      p.Context,
		TaggerType:   p.TaggerType,
		TaggerID:     p.TaggerID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tagging).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &errs.ConflictError{Op: "create tagging", Err: err}
			}
			return err
		}
		return s.counters.Increment(tx, tagging)
	})
	if err != nil {
		return nil, err
	}
	return tagging, nil
}

// Destroy removes the tagging, then runs the destroy pipeline. The row is
// gone even when a hook fails; such failures come back wrapped in a
// HookError so the caller can tell them apart from a failed destroy.
func (s *Store) Destroy(tenantID, id uint) error {
	var tagging models.Tagging
	if err := s.db.Where("tenant_id = ?", tenantID).First(&tagging, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &errs.NotFoundError{Resource: "tagging", ID: id}
		}
		return err
	}
	if err := s.db.Delete(&models.Tagging{}, tagging.ID).Error; err != nil {
		return err
	}

	var hookErrs []error
	for _, hook := range s.destroyHooks {
		if err := hook(s.db, &tagging); err != nil {
			hookErrs = append(hookErrs, err)
		}
	}
	if len(hookErrs) > 0 {
		return &errs.HookError{Errs: hookErrs}
	}
	return nil
}

func (s *Store) tupleExists(tenantID uint, p CreateParams) (bool, error) {
	var n int64
	err := s.db.Model(&models.Tagging{}).
		Where("tenant_id = ? AND tag_id = ? AND taggable_type = ? AND taggable_id = ? AND context = ? AND tagger_type = ? AND tagger_id = ?",
			tenantID, p.TagID, p.TaggableType, p.TaggableID, p.Context, p.TaggerType, p.TaggerID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
