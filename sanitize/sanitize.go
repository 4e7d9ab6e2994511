// Package sanitize turns locale formatted numbers such as "50,000" into Go numbers.
//
// Only a single grouping separator is understood. Strings have every occurrence of the
// separator removed before parsing; values that are already numeric are coerced as they are.
package sanitize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var ErrNotANumber = errors.New("not a number")

const (
	KindInteger = "integer"
	KindFloat   = "float"
)

type ParseError struct {
	Value any
	Kind  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%q is not a valid %s", fmt.Sprint(e.Value), e.Kind)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrNotANumber
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Sanitizer struct {
	Separator rune
}

var Default = Sanitizer{Separator: ','}

func New(separator rune) Sanitizer {
	return Sanitizer{Separator: separator}
}

func Int(v any) (int, error) {
	return Default.Int(v)
}

func Float(v any) (float64, error) {
	return Default.Float(v)
}

// Clean strips the grouping separator and surrounding whitespace.
func (s Sanitizer) Clean(value string) string {
	sep := s.Separator
	if sep == 0 {
		sep = Default.Separator
	}

	return strings.TrimSpace(strings.ReplaceAll(value, string(sep), ""))
}

func (s Sanitizer) Int(v any) (int, error) {
	switch value := v.(type) {
	case string:
		i, err := strconv.Atoi(s.Clean(value))
		if err != nil {
			return 0, &ParseError{Value: v, Kind: KindInteger, Err: err}
		}
		return i, nil

	case float32:
		return s.Int(float64(value))

	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, &ParseError{Value: v, Kind: KindInteger}
		}
		return int(value), nil
	}

	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, &ParseError{Value: v, Kind: KindInteger, Err: err}
	}
	return i, nil
}

func (s Sanitizer) Float(v any) (float64, error) {
	var f float64

	switch value := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(s.Clean(value), 64)
		if err != nil {
			return 0, &ParseError{Value: v, Kind: KindFloat, Err: err}
		}
		f = parsed

	default:
		coerced, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, &ParseError{Value: v, Kind: KindFloat, Err: err}
		}
		f = coerced
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Value: v, Kind: KindFloat}
	}

	return f, nil
}
