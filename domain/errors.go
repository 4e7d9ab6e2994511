package domain

import (
	"errors"
	"fmt"
)

const (
	FieldName         = "name"
	FieldAuthor       = "author"
	FieldPages        = "pages"
	FieldLanguage     = "language"
	FieldRating       = "rating"
	FieldTotalRatings = "total_ratings"
	FieldPrice        = "price"
	FieldCategory     = "category"
)

var (
	ErrEmpty        = errors.New("value is empty")
	ErrRange        = errors.New("value is out of range")
	ErrInadmissible = errors.New("book has neither a name nor an author")
)

// FieldError reports a rule violation on one field. The field still gets its fallback value.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

type RangeError struct {
	Value float64
	Bound float64
	Below bool
}

func (e *RangeError) Error() string {
	if e.Below {
		return fmt.Sprintf("%v is lower than the minimum %v", e.Value, e.Bound)
	}
	return fmt.Sprintf("%v is greater than the maximum %v", e.Value, e.Bound)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
