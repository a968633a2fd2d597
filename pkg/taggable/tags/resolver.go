package tags

import (
	"github.com/pressroom/taggable/pkg/taggable/models"
)

// Resolver turns a batch of tag names into tag rows, creating only the names
// that do not already exist.
type Resolver struct {
	store *Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveOrCreate fetches the tags matching names case-insensitively and
// creates one tag per name with no match, deduping within the batch by the
// same folding the store's uniqueness uses. Existing tags come first, newly
// created ones after, each group in encounter order.
//
// A concurrent resolve racing on the same new name surfaces as a
// ConflictError from the losing insert; callers should re-resolve rather
// than treat it as fatal.
func (r *Resolver) ResolveOrCreate(tenantID uint, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	existing, err := r.store.FindAnyByNames(tenantID, names)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	for _, tag := range existing {
		seen[tag.NameKey] = true
	}

	resolved := existing
	for _, name := range names {
		key := models.ComparableName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		tag, err := r.store.Create(tenantID, CreateParams{Name: name})
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *tag)
	}
	return resolved, nil
}
