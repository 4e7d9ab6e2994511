package domain

import (
	"bookload/sanitize"
	"database/sql"

	"golang.org/x/text/unicode/norm"
)

// Normalizer applies the per-field rules. Each method is a pure function of one cell that
// returns the value to store and, when a rule was violated, a *FieldError describing why
// the fallback was used.
//
// Text fields are stored as given apart from unicode composition: names, authors, languages
// and categories are NFC-normalised, so a decomposed "Cafe\u0301" is stored, looked up and
// deduplicated as "Caf\u00e9". Surrounding whitespace and case are kept.
type Normalizer struct {
	Numbers sanitize.Sanitizer
}

func NewNormalizer(separator rune) Normalizer {
	return Normalizer{Numbers: sanitize.New(separator)}
}

func (n Normalizer) Name(c Cell) string {
	if !c.Truthy() {
		return EmptyBookTitle
	}
	return text(c)
}

func (n Normalizer) Author(c Cell) (string, error) {
	if !c.Truthy() {
		return AnonymousAuthor, &FieldError{Field: FieldAuthor, Value: c.Value(), Err: ErrEmpty}
	}
	return text(c), nil
}

func (n Normalizer) Pages(c Cell) (sql.NullInt64, error) {
	pages, err := n.Numbers.Int(c.Value())
	if err != nil {
		return sql.NullInt64{}, &FieldError{Field: FieldPages, Value: c.Value(), Err: err}
	}

	if pages < MinPageCount {
		return sql.NullInt64{}, &FieldError{
			Field: FieldPages,
			Value: pages,
			Err:   &RangeError{Value: float64(pages), Bound: MinPageCount, Below: true},
		}
	}

	return sql.NullInt64{Int64: int64(pages), Valid: true}, nil
}

func (n Normalizer) Language(c Cell) (sql.NullString, error) {
	return optionalText(FieldLanguage, c)
}

func (n Normalizer) Rating(c Cell) (sql.NullFloat64, error) {
	rating, err := n.Numbers.Float(c.Value())
	if err != nil {
		return sql.NullFloat64{}, &FieldError{Field: FieldRating, Value: c.Value(), Err: err}
	}

	switch {
	case rating < MinRating:
		return sql.NullFloat64{}, &FieldError{
			Field: FieldRating,
			Value: rating,
			Err:   &RangeError{Value: rating, Bound: MinRating, Below: true},
		}
	case rating > MaxRating:
		return sql.NullFloat64{}, &FieldError{
			Field: FieldRating,
			Value: rating,
			Err:   &RangeError{Value: rating, Bound: MaxRating},
		}
	}

	return sql.NullFloat64{Float64: rating, Valid: true}, nil
}

// TotalRatings is floored rather than nulled: it is never NULL.
func (n Normalizer) TotalRatings(c Cell) (int, error) {
	count, err := n.Numbers.Int(c.Value())
	if err != nil {
		return MinRatingCount, &FieldError{Field: FieldTotalRatings, Value: c.Value(), Err: err}
	}

	if count < MinRatingCount {
		return MinRatingCount, &FieldError{
			Field: FieldTotalRatings,
			Value: count,
			Err:   &RangeError{Value: float64(count), Bound: MinRatingCount, Below: true},
		}
	}

	return count, nil
}

func (n Normalizer) Price(c Cell) (sql.NullFloat64, error) {
	price, err := n.Numbers.Float(c.Value())
	if err != nil {
		return sql.NullFloat64{}, &FieldError{Field: FieldPrice, Value: c.Value(), Err: err}
	}

	if price < MinPrice {
		return sql.NullFloat64{}, &FieldError{
			Field: FieldPrice,
			Value: price,
			Err:   &RangeError{Value: price, Bound: MinPrice, Below: true},
		}
	}

	return sql.NullFloat64{Float64: price, Valid: true}, nil
}

func (n Normalizer) Category(c Cell) (sql.NullString, error) {
	return optionalText(FieldCategory, c)
}

// Identity normalises the two fields the admission check needs.
func (n Normalizer) Identity(r RawRecord) (string, string, []error) {
	name := n.Name(r.Name)
	author, authorErr := n.Author(r.Author)

	return name, author, collect(authorErr)
}

// Details evaluates every remaining field independently, then assembles the book.
func (n Normalizer) Details(r RawRecord, name, author string) (NormalizedBook, []error) {
	pages, pagesErr := n.Pages(r.Pages)
	language, languageErr := n.Language(r.Language)
	rating, ratingErr := n.Rating(r.Rating)
	totalRatings, totalRatingsErr := n.TotalRatings(r.TotalRatings)
	price, priceErr := n.Price(r.Price)
	category, categoryErr := n.Category(r.Category)

	book := NormalizedBook{
		Name:         name,
		Author:       author,
		Pages:        pages,
		Language:     language,
		Rating:       rating,
		TotalRatings: totalRatings,
		Price:        price,
		Category:     category,
	}

	return book, collect(pagesErr, languageErr, ratingErr, totalRatingsErr, priceErr, categoryErr)
}

// Normalize runs Identity, Admit and Details in order. An inadmissible record returns
// ErrInadmissible and no book; the other fields are not evaluated.
func (n Normalizer) Normalize(r RawRecord) (NormalizedBook, []error, error) {
	name, author, issues := n.Identity(r)

	if err := Admit(name, author); err != nil {
		return NormalizedBook{}, issues, err
	}

	book, details := n.Details(r, name, author)
	return book, append(issues, details...), nil
}

func optionalText(field string, c Cell) (sql.NullString, error) {
	if !c.Truthy() {
		return sql.NullString{}, &FieldError{Field: field, Value: c.Value(), Err: ErrEmpty}
	}
	return sql.NullString{String: text(c), Valid: true}, nil
}

// text keeps the raw value but NFC-composes it, so the stored value and the (name, author)
// dedup key differ from the input bytes when the input is decomposed.
func text(c Cell) string {
	return norm.NFC.String(c.Text)
}

func collect(errs ...error) []error {
	var issues []error
	for _, err := range errs {
		if err != nil {
			issues = append(issues, err)
		}
	}
	return issues
}
