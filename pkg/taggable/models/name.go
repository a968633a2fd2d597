package models

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ComparableName folds a tag name for case-insensitive comparison. The same
// folding feeds both the in-memory dedup in the bulk resolver and the stored
// name_key column behind the uniqueness index, so the two cannot disagree.
// Only case is folded; whitespace and Unicode normalization are left alone.
func ComparableName(name string) string {
	return cases.Lower(language.Und).String(name)
}
