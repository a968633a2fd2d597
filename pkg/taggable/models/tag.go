package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/errs"
)

// Tag is a named, tenant-scoped, optionally hierarchical label.
//
// NameKey holds the case-folded name and backs the (tenant_id, name_key)
// unique index, so name uniqueness is enforced by the store with the same
// folding the application uses for dedup.
type Tag struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TenantID    uint      `gorm:"not null;index;uniqueIndex:idx_tags_tenant_name_key" json:"tenant_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	NameKey     string    `gorm:"size:255;not null;uniqueIndex:idx_tags_tenant_name_key" json:"-"`
	Description string    `json:"description,omitempty"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"`

	// Denormalized counts of "admins"-context taggings per owner type.
	StoriesCount  uint `gorm:"not null;default:0" json:"stories_count"`
	ContactsCount uint `gorm:"not null;default:0" json:"contacts_count"`
	ListsCount    uint `gorm:"not null;default:0" json:"lists_count"`

	// UsageCount is filled by queries that join taggings; it is not a column.
	UsageCount int64 `gorm:"->;-:migration" json:"usage_count,omitempty"`

	// Relationships
	Parent   *Tag      `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Tag     `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Taggings []Tagging `gorm:"foreignKey:TagID" json:"taggings,omitempty"`
}

// Equal treats two tags as equal when they are the same row or share a name,
// so tags can act as set members keyed by name rather than identity.
func (t *Tag) Equal(other *Tag) bool {
	if other == nil {
		return false
	}
	if t.ID != 0 && t.ID == other.ID {
		return true
	}
	return t.Name == other.Name
}

func (t *Tag) String() string {
	return t.Name
}

// DeleteTag removes a tag inside the caller's transaction: the tag's
// taggings are deleted, former children keep living with parent_id cleared,
// then the row itself goes. Children are never cascaded into deletion.
func DeleteTag(tx *gorm.DB, tenantID, tagID uint) error {
	if err := tx.Where("tenant_id = ? AND tag_id = ?", tenantID, tagID).Delete(&Tagging{}).Error; err != nil {
		return err
	}
	if err := tx.Model(&Tag{}).Where("tenant_id = ? AND parent_id = ?", tenantID, tagID).Update("parent_id", nil).Error; err != nil {
		return err
	}
	res := tx.Where("tenant_id = ?", tenantID).Delete(&Tag{}, tagID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &errs.NotFoundError{Resource: "tag", ID: tagID}
	}
	return nil
}
