package tags

import (
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/pressroom/taggable/pkg/taggable/config"
	"github.com/pressroom/taggable/pkg/taggable/errs"
	"github.com/pressroom/taggable/pkg/taggable/models"
)

const maxNameLength = 255

// likeEscaper escapes LIKE metacharacters (and the escape character itself)
// with '!' so a search fragment always matches literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Store handles tag CRUD and lookup. Every query is tenant-scoped.
type Store struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewStore creates a new tag store. A nil cfg falls back to defaults.
func NewStore(db *gorm.DB, cfg *config.Config) *Store {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Store{db: db, cfg: cfg}
}

// CreateParams describes a tag to create
type CreateParams struct {
	Name        string
	Description string
	ParentID    *uint
}

// UpdateParams describes a partial tag update. Nil fields are left alone;
// ClearParent detaches the tag from its parent.
type UpdateParams struct {
	Name        *string
	Description *string
	ParentID    *uint
	ClearParent bool
}

// FindByName returns the tag whose name matches case-insensitively.
func (s *Store) FindByName(tenantID uint, name string) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.Where("tenant_id = ? AND name_key = ?", tenantID, models.ComparableName(name)).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Resource: "tag", Name: name}
		}
		return nil, err
	}
	return &tag, nil
}

// FindAnyByNames returns all tags matching any of the names
// case-insensitively. The names are folded application-side, never by the
// store's own collation, so lookup and uniqueness share one folding rule.
func (s *Store) FindAnyByNames(tenantID uint, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, models.ComparableName(name))
	}
	var tags []models.Tag
	err := s.db.Where("tenant_id = ? AND name_key IN ?", tenantID, keys).Find(&tags).Error
	return tags, err
}

// FindLike returns tags whose name contains the fragment. LIKE
// metacharacters in the fragment are escaped so it matches literally.
func (s *Store) FindLike(tenantID uint, fragment string) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.Where("tenant_id = ?", tenantID).
		Where(s.likeClause(), likePattern(fragment)).
		Find(&tags).Error
	return tags, err
}

// FindLikeAny returns tags whose name contains any of the fragments.
func (s *Store) FindLikeAny(tenantID uint, fragments []string) ([]models.Tag, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	cond := s.db.Where(s.likeClause(), likePattern(fragments[0]))
	for _, fragment := range fragments[1:] {
		cond = cond.Or(s.likeClause(), likePattern(fragment))
	}
	var tags []models.Tag
	err := s.db.Where("tenant_id = ?", tenantID).Where(cond).Find(&tags).Error
	return tags, err
}

// FindOrCreateByNameLike returns the first substring match for name, or
// creates a tag with exactly that name when nothing matches.
func (s *Store) FindOrCreateByNameLike(tenantID uint, name string) (*models.Tag, error) {
	matches, err := s.FindLike(tenantID, name)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}
	return s.Create(tenantID, CreateParams{Name: name})
}

// Create validates and inserts a new tag. A duplicate caught by the
// pre-check is a ValidationError; one caught only by the unique index (a
// concurrent writer won the race) is a ConflictError.
func (s *Store) Create(tenantID uint, p CreateParams) (*models.Tag, error) {
	key, err := validateName(p.Name)
	if err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(tenantID, key, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &errs.ValidationError{Field: "name", Reason: "has already been taken"}
	}
	if p.ParentID != nil {
		if err := s.parentExists(tenantID, *p.ParentID); err != nil {
			return nil, err
		}
	}

	tag := &models.Tag{
		TenantID:    tenantID,
		Name:        p.Name,
		NameKey:     key,
		Description: p.Description,
		ParentID:    p.ParentID,
	}
	if err := s.db.Create(tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &errs.ConflictError{Op: "create tag", Err: err}
		}
		return nil, err
	}
	return tag, nil
}

// Update applies a partial update after re-running name and hierarchy
// validation. The parent check is shallow: only self-parenting and an
// immediate child as parent are rejected, deeper cycles are not detected.
func (s *Store) Update(tenantID, id uint, p UpdateParams) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Where("tenant_id = ?", tenantID).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Resource: "tag", ID: id}
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if p.Name != nil {
		key, err := validateName(*p.Name)
		if err != nil {
			return nil, err
		}
		taken, err := s.nameTaken(tenantID, key, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &errs.ValidationError{Field: "name", Reason: "has already been taken"}
		}
		updates["name"] = *p.Name
		updates["name_key"] = key
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	switch {
	case p.ClearParent:
		updates["parent_id"] = nil
	case p.ParentID != nil:
		if err := s.validateParent(tenantID, id, *p.ParentID); err != nil {
			return nil, err
		}
		updates["parent_id"] = *p.ParentID
	}
	if len(updates) == 0 {
		return &tag, nil
	}

	if err := s.db.Model(&tag).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &errs.ConflictError{Op: "update tag", Err: err}
		}
		return nil, err
	}
	if err := s.db.Where("tenant_id = ?", tenantID).First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes the tag, its taggings, and clears parent_id on its
// children, all in one transaction.
func (s *Store) Delete(tenantID, id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return models.DeleteTag(tx, tenantID, id)
	})
}

// UsageCount returns the live number of taggings referencing the tag.
func (s *Store) UsageCount(tenantID, id uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Tagging{}).Where("tenant_id = ? AND tag_id = ?", tenantID, id).Count(&n).Error
	return n, err
}

// ListWithUsage returns the tenant's tags with their tagging counts, most
// used first.
func (s *Store) ListWithUsage(tenantID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.Table("tags").
		Select("tags.*, COUNT(taggings.id) AS usage_count").
		Joins("LEFT JOIN taggings ON taggings.tag_id = tags.id").
		Where("tags.tenant_id = ?", tenantID).
		Group("tags.id").
		Order("usage_count DESC").
		Find(&tags).Error
	return tags, err
}

func (s *Store) likeClause() string {
	return "name " + s.cfg.LikeOperator() + " ? ESCAPE '!'"
}

func likePattern(fragment string) string {
	return "%" + likeEscaper.Replace(fragment) + "%"
}

func validateName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", &errs.ValidationError{Field: "name", Reason: "can't be blank"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", &errs.ValidationError{Field: "name", Reason: "is too long (maximum is 255 characters)"}
	}
	return models.ComparableName(name), nil
}

// nameTaken reports whether another tag in the tenant already holds the
// folded name. excludeID skips the tag being renamed.
func (s *Store) nameTaken(tenantID uint, key string, excludeID uint) (bool, error) {
	var n int64
	q := s.db.Model(&models.Tag{}).Where("tenant_id = ? AND name_key = ?", tenantID, key)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) parentExists(tenantID, parentID uint) error {
	var n int64
	if err := s.db.Model(&models.Tag{}).Where("tenant_id = ? AND id = ?", tenantID, parentID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return &errs.NotFoundError{Resource: "parent tag", ID: parentID}
	}
	return nil
}

func (s *Store) validateParent(tenantID, id, parentID uint) error {
	if parentID == id {
		return &errs.ValidationError{Field: "parent_id", Reason: "parent can not point to self"}
	}
	if err := s.parentExists(tenantID, parentID); err != nil {
		return err
	}
	var n int64
	if err := s.db.Model(&models.Tag{}).Where("tenant_id = ? AND parent_id = ? AND id = ?", tenantID, id, parentID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return &errs.ValidationError{Field: "parent_id", Reason: "is a child of this tag"}
	}
	return nil
}
