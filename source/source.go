package source

import (
	"bookload/domain"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

type Options struct {
	Delimiter  rune
	LazyQuotes bool
}

var DefaultOptions = Options{Delimiter: ','}

// RowError is a single malformed row. Reading can continue past it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Records streams the rows of a books csv in file order. The header row is checked for
// arity and discarded. Malformed rows are yielded as *RowError, any other error ends the
// sequence.
func Records(r io.Reader, opts Options) iter.Seq2[domain.RawRecord, error] {
	return func(yield func(domain.RawRecord, error) bool) {

		reader := csv.NewReader(r)
		reader.Comma = opts.Delimiter
		if reader.Comma == 0 {
			reader.Comma = DefaultOptions.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1
		reader.ReuseRecord = true

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(domain.RawRecord{}, fmt.Errorf("reading header: %w", err))
			return
		}
		if len(header) != domain.FieldCount {
			yield(domain.RawRecord{}, fmt.Errorf("header has %d columns, expected %d", len(header), domain.FieldCount))
			return
		}

		for {
			cells, err := reader.Read()
			if err == io.EOF {
				return
			}

			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					yield(domain.RawRecord{}, err)
					return
				}
				if !yield(domain.RawRecord{}, &RowError{Line: parseErr.StartLine, Err: parseErr.Err}) {
					return
				}
				continue
			}

			line, _ := reader.FieldPos(0)
			record, err := domain.ParseRecord(line, cells)
			if err != nil {
				err = &RowError{Line: line, Err: err}
			}

			if !yield(record, err) {
				return
			}
		}
	}
}

// CountLines counts the newline terminated lines in a file, for progress reporting.
func CountLines(filePath string) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	count := 0
	lineSep := []byte{'\n'}

	for {
		c, err := f.Read(buf)
		count += bytes.Count(buf[:c], lineSep)

		switch {
		case err == io.EOF:
			return count, nil

		case err != nil:
			return 0, err
		}
	}
}
