package config

// Config carries the process-wide toggles. It is passed into constructors
// explicitly; there is no package-level mutable state.
type Config struct {
	// RemoveUnusedTags enables deleting a tag once its last tagging is
	// destroyed.
	RemoveUnusedTags bool

	// LikeOperatorCaseInsensitive selects ILIKE for stores whose LIKE is
	// case-sensitive (e.g. Postgres). SQLite's LIKE is already
	// case-insensitive, so the default keeps plain LIKE.
	LikeOperatorCaseInsensitive bool
}

// Default returns the zero configuration: unused tags are kept, substring
// search uses the store's plain LIKE.
func Default() *Config {
	return &Config{}
}

// LikeOperator returns the substring-match operator for the configured
// collation behavior.
func (c *Config) LikeOperator() string {
	if c.LikeOperatorCaseInsensitive {
		return "ILIKE"
	}
	return "LIKE"
}
