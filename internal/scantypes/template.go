package scantypes

import (
	"strings"
	"time"
)

// PathTemplate is a named URL template with content-type and size filters.
type PathTemplate struct {
	ID                  int64
	Name                string
	Template            string
	Description         string
	ExpectedContentType string
	ExcludeContentType  bool
	MinSize             int64
	MaxSize             *int64 // nil = no upper bound
	Enabled             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Valid reports whether the template's filter fields are internally
// consistent (a present MaxSize must be >= MinSize).
func (t *PathTemplate) Valid() bool {
	if t.MaxSize != nil && *t.MaxSize < t.MinSize {
		return false
	}
	return true
}

// PassesContentType applies the content-type filter. A nil
// contentType always passes — the filter only applies when the
// response's content type is known.
func (t *PathTemplate) PassesContentType(contentType *string) bool {
	if t.ExpectedContentType == "" || contentType == nil {
		return true
	}
	contains := strings.Contains(*contentType, t.ExpectedContentType)
	if t.ExcludeContentType {
		return !contains
	}
	return contains
}

// PassesSize applies the size filter. A nil size bypasses the check.
func (t *PathTemplate) PassesSize(size *int64) bool {
	if size == nil {
		return true
	}
	if *size < t.MinSize {
		return false
	}
	if t.MaxSize != nil && *size > *t.MaxSize {
		return false
	}
	return true
}

