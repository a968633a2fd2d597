package models

import "time"

// Tagging joins one tag to one owner entity within a context. The owner
// (taggable) and the optional acting entity (tagger) are stored as opaque
// (type, id) pairs and never dereferenced here; resolving them is the
// caller's business.
//
// The tagger columns default to ""/0 rather than NULL so the composite
// unique index actually enforces tuple uniqueness (NULLs compare distinct
// in SQL unique indexes).
type Tagging struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`

	TagID        uint   `gorm:"not null;index;uniqueIndex:idx_taggings_tuple" json:"tag_id"`
	TaggableType string `gorm:"size:64;not null;uniqueIndex:idx_taggings_tuple;index:idx_taggings_taggable" json:"taggable_type"`
	TaggableID   uint   `gorm:"not null;uniqueIndex:idx_taggings_tuple;index:idx_taggings_taggable" json:"taggable_id"`
	Context      string `gorm:"size:64;not null;uniqueIndex:idx_taggings_tuple" json:"context"`
	TaggerType   string `gorm:"size:64;not null;default:'';uniqueIndex:idx_taggings_tuple" json:"tagger_type,omitempty"`
	TaggerID     uint   `gorm:"not null;default:0;uniqueIndex:idx_taggings_tuple" json:"tagger_id,omitempty"`

	// Relationships
	Tag Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}
