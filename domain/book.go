package domain

import (
	"database/sql"
	"fmt"
	"log/slog"
)

const (
	EmptyBookTitle  = ""
	AnonymousAuthor = "Anonymous"

	MinRating      = 1.0
	MaxRating      = 5.0
	MinPageCount   = 1
	MinPrice       = 0.0
	MinRatingCount = 0
)

// Columns is the fixed input header, in positional order.
var Columns = []string{
	"Book_Name",
	"Author",
	"Pages",
	"Language",
	"Ratings",
	"Total_Ratings",
	"Price",
	"Category",
}

const (
	fieldName = iota
	fieldAuthor
	fieldPages
	fieldLanguage
	fieldRating
	fieldTotalRatings
	fieldPrice
	fieldCategory

	FieldCount
)

// Cell is one raw field. A Missing cell stands for the zero sentinel an empty cell is
// replaced with, so it is falsy as text and zero as a number.
type Cell struct {
	Text    string
	Missing bool
}

func NewCell(s string) Cell {
	if s == "" {
		return Cell{Missing: true}
	}
	return Cell{Text: s}
}

func (c Cell) Truthy() bool {
	return !c.Missing && c.Text != ""
}

// Value is what the numeric sanitizer sees: the text, or 0 for a missing cell.
func (c Cell) Value() any {
	if c.Missing {
		return 0
	}
	return c.Text
}

func (c Cell) String() string {
	if c.Missing {
		return "0"
	}
	return c.Text
}

// RawRecord is an input row as read, before any rule is applied.
type RawRecord struct {
	Line int

	Name         Cell
	Author       Cell
	Pages        Cell
	Language     Cell
	Rating       Cell
	TotalRatings Cell
	Price        Cell
	Category     Cell
}

// ParseRecord binds cells positionally. The row must have exactly FieldCount cells.
func ParseRecord(line int, cells []string) (RawRecord, error) {
	if len(cells) != FieldCount {
		return RawRecord{}, fmt.Errorf("expected %d cells, got %d", FieldCount, len(cells))
	}

	return RawRecord{
		Line:         line,
		Name:         NewCell(cells[fieldName]),
		Author:       NewCell(cells[fieldAuthor]),
		Pages:        NewCell(cells[fieldPages]),
		Language:     NewCell(cells[fieldLanguage]),
		Rating:       NewCell(cells[fieldRating]),
		TotalRatings: NewCell(cells[fieldTotalRatings]),
		Price:        NewCell(cells[fieldPrice]),
		Category:     NewCell(cells[fieldCategory]),
	}, nil
}

func (r RawRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("line", r.Line),
		slog.String("name", r.Name.String()),
		slog.String("author", r.Author.String()),
		slog.String("pages", r.Pages.String()),
		slog.String("language", r.Language.String()),
		slog.String("rating", r.Rating.String()),
		slog.String("total_ratings", r.TotalRatings.String()),
		slog.String("price", r.Price.String()),
		slog.String("category", r.Category.String()),
	)
}

// NormalizedBook is a cleaned record. Invalid nullable values are stored as NULL.
type NormalizedBook struct {
	Name         string
	Author       string
	Pages        sql.NullInt64
	Language     sql.NullString
	Rating       sql.NullFloat64
	TotalRatings int
	Price        sql.NullFloat64
	Category     sql.NullString
}

func (b NormalizedBook) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", b.Name),
		slog.String("author", b.Author),
		slog.Any("pages", nullable(b.Pages.Int64, b.Pages.Valid)),
		slog.Any("language", nullable(b.Language.String, b.Language.Valid)),
		slog.Any("rating", nullable(b.Rating.Float64, b.Rating.Valid)),
		slog.Int("total_ratings", b.TotalRatings),
		slog.Any("price", nullable(b.Price.Float64, b.Price.Valid)),
		slog.Any("category", nullable(b.Category.String, b.Category.Valid)),
	)
}

func nullable[T any](v T, valid bool) any {
	if !valid {
		return nil
	}
	return v
}
