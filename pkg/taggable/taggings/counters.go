package taggings

import (
	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/models"
)

// AdminContext is the tagging context whose taggings drive the denormalized
// per-owner-type counters on the tag.
const AdminContext = "admins"

// CounterMaintainer keeps the tag counter columns in step with tagging
// creation and destruction, for the configured context and owner types only.
type CounterMaintainer struct {
	context  string
	counters map[string]string // taggable type -> tag counter column
}

// NewCounterMaintainer returns a maintainer with the default allow-list:
// Story, Contact and TwitterList taggings in the admins context.
func NewCounterMaintainer() *CounterMaintainer {
	return &CounterMaintainer{
		context: AdminContext,
		counters: map[string]string{
			"Story":       "stories_count",
			"Contact":     "contacts_count",
			"TwitterList": "lists_count",
		},
	}
}

// WithContext changes the context that qualifies taggings for counting.
func (m *CounterMaintainer) WithContext(context string) *CounterMaintainer {
	m.context = context
	return m
}

// WithCounter maps an owner type onto a tag counter column. The column must
// exist on the tags table.
func (m *CounterMaintainer) WithCounter(taggableType, column string) *CounterMaintainer {
	m.counters[taggableType] = column
	return m
}

func (m *CounterMaintainer) column(tagging *models.Tagging) (string, bool) {
	if tagging.Context != m.context {
		return "", false
	}
	column, ok := m.counters[tagging.TaggableType]
	return column, ok
}

// Increment bumps the matching counter on the tagging's tag. The update is a
// single counter = counter + 1 statement, so concurrent taggings against the
// same tag cannot lose updates.
func (m *CounterMaintainer) Increment(db *gorm.DB, tagging *models.Tagging) error {
	column, ok := m.column(tagging)
	if !ok {
		return nil
	}
	return db.Model(&models.Tag{}).
		Where("tenant_id = ? AND id = ?", tagging.TenantID, tagging.TagID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// Decrement lowers the matching counter, floored at zero: a row already at
// zero matches nothing and the decrement is silently skipped.
func (m *CounterMaintainer) Decrement(db *gorm.DB, tagging *models.Tagging) error {
	column, ok := m.column(tagging)
	if !ok {
		return nil
	}
	return db.Model(&models.Tag{}).
		Where("tenant_id = ? AND id = ? AND "+column+" > 0", tagging.TenantID, tagging.TagID).
		UpdateColumn(column, gorm.Expr(column+" - 1")).Error
}
