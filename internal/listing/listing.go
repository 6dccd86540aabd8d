// Package listing orders posts by date and slices them into pages.
//
// Build and BuildPage are pure: they never mutate their input and hold no
// state, so callers may run them concurrently on independent inputs.
package listing

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Pagination describes a paged view over the ordered posts.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// Listing is the result handed to the rendering layer.
type Listing struct {
	Posts               []models.Post `json:"posts"`
	InitialDisplayPosts []models.Post `json:"initialDisplayPosts"`
	Pagination          Pagination    `json:"pagination"`
}

// DateError reports a post whose front-matter date is not a calendar value.
// Err is the parse failure exactly as returned by the date parser.
type DateError struct {
	Path  string
	Value any
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("listing: post %s: invalid date %v: %v", e.Path, e.Value, e.Err)
}

func (e *DateError) Unwrap() error { return e.Err }

// ParseDate converts a front-matter date value to a time.
func ParseDate(v any) (time.Time, error) {
	return cast.ToTimeE(v)
}

// Build orders records newest first and returns the first page.
func Build(records []models.Post, pageSize int) (*Listing, error) {
	return BuildPage(records, pageSize, 1)
}

// BuildPage orders records newest first and returns the given 1-based page.
// Records with equal dates keep their input order. Page 1 of an empty
// record set is valid and empty.
func BuildPage(records []models.Post, pageSize, page int) (*Listing, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("listing: page size %d: %w", pageSize, apperr.ErrInvalidPageSize)
	}

	ordered, err := Order(records)
	if err != nil {
		return nil, err
	}

	total := TotalPages(len(ordered), pageSize)
	if page < 1 || page > max(total, 1) {
		return nil, fmt.Errorf("listing: page %d of %d: %w", page, total, apperr.ErrPageOutOfRange)
	}

	start := min((page-1)*pageSize, len(ordered))
	end := min(start+pageSize, len(ordered))

	return &Listing{
		Posts:               ordered,
		InitialDisplayPosts: slices.Clone(ordered[start:end]),
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  total,
		},
	}, nil
}

// Order returns a copy of records sorted by date descending, with Date
// populated on every copy. The sort is stable.
func Order(records []models.Post) ([]models.Post, error) {
	out := make([]models.Post, len(records))
	for i, r := range records {
		d, err := ParseDate(r.RawDate)
		if err != nil {
			return nil, &DateError{Path: r.Path, Value: r.RawDate, Err: err}
		}
		r.Date = d
		out[i] = r
	}
	slices.SortStableFunc(out, func(a, b models.Post) int {
		return b.Date.Compare(a.Date)
	})
	return out, nil
}

// TotalPages returns ceil(count / pageSize). pageSize must be positive.
func TotalPages(count, pageSize int) int {
	return (count + pageSize - 1) / pageSize
}
