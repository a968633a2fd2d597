package tags

import (
	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/errs"
	"github.com/pressroom/taggable/pkg/taggable/models"
)

// Merger consolidates two tags into one.
type Merger struct {
	db *gorm.DB
}

// NewMerger creates a merge coordinator on the given database handle.
func NewMerger(db *gorm.DB) *Merger {
	return &Merger{db: db}
}

// Merge repoints target's taggings onto source for every owner not already
// tagged by source, then deletes target; owners tagged by both keep their
// original source tagging and lose the redundant target one with the tag.
// The whole merge runs in one transaction: on any failure nothing is
// repointed and target survives. SQLite serializes the writers here; a
// store with weaker isolation should additionally lock both tag rows.
func (m *Merger) Merge(tenantID, sourceID, targetID uint) error {
	if sourceID == targetID {
		return &errs.ValidationError{Field: "target_id", Reason: "can not merge a tag into itself"}
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range []uint{sourceID, targetID} {
			var n int64
			if err := tx.Model(&models.Tag{}).Where("tenant_id = ? AND id = ?", tenantID, id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return &errs.NotFoundError{Resource: "tag", ID: id}
			}
		}

		var taggedIDs []uint
		if err := tx.Model(&models.Tagging{}).
			Where("tenant_id = ? AND tag_id = ?", tenantID, sourceID).
			Pluck("taggable_id", &taggedIDs).Error; err != nil {
			return err
		}
		repoint := tx.Model(&models.Tagging{}).Where("tenant_id = ? AND tag_id = ?", tenantID, targetID)
		if len(taggedIDs) > 0 {
			repoint = repoint.Where("taggable_id NOT IN ?", taggedIDs)
		}
		if err := repoint.Update("tag_id", sourceID).Error; err != nil {
			return err
		}

		return models.DeleteTag(tx, tenantID, targetID)
	})
	if err == nil {
		return nil
	}
	if errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsConflict(err) {
		return err
	}
	return &errs.TransactionError{Op: "merge tags", Err: err}
}
