package taggings

import (
	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/config"
	"github.com/pressroom/taggable/pkg/taggable/errs"
	"github.com/pressroom/taggable/pkg/taggable/models"
)

// GarbageCollector removes tags that lose their last tagging, when enabled.
type GarbageCollector struct {
	cfg *config.Config
}

// NewGarbageCollector creates a collector honoring cfg.RemoveUnusedTags.
func NewGarbageCollector(cfg *config.Config) *GarbageCollector {
	return &GarbageCollector{cfg: cfg}
}

// Sweep deletes the destroyed tagging's tag when no taggings reference it
// anymore. The delete runs the usual tag cascade, so former children end up
// with parent_id cleared. A tag another caller already removed is not an
// error.
func (g *GarbageCollector) Sweep(db *gorm.DB, tagging *models.Tagging) error {
	if !g.cfg.RemoveUnusedTags {
		return nil
	}
	var n int64
	if err := db.Model(&models.Tagging{}).
		Where("tenant_id = ? AND tag_id = ?", tagging.TenantID, tagging.TagID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return models.DeleteTag(tx, tagging.TenantID, tagging.TagID)
	})
	if errs.IsNotFound(err) {
		return nil
	}
	return err
}
