package books

import (
	"bookload/domain"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ryanuber/columnize"
	"go.opentelemetry.io/otel"
)

var tr = otel.Tracer("command.books")

func formatBooks(books []domain.NormalizedBook) string {
	rows := make([]string, 0, len(books)+1)
	rows = append(rows, "Name | Author | Pages | Language | Rating | Ratings | Price | Category")

	for _, b := range books {
		rows = append(rows, fmt.Sprintf("%s | %s | %s | %s | %s | %d | %s | %s",
			b.Name,
			b.Author,
			intOrBlank(b.Pages),
			stringOrBlank(b.Language),
			floatOrBlank(b.Rating, 1),
			b.TotalRatings,
			floatOrBlank(b.Price, 2),
			stringOrBlank(b.Category),
		))
	}

	return columnize.SimpleFormat(rows)
}

func intOrBlank(v sql.NullInt64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatInt(v.Int64, 10)
}

func floatOrBlank(v sql.NullFloat64, precision int) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', precision, 64)
}

func stringOrBlank(v sql.NullString) string {
	if !v.Valid {
		return "-"
	}
	return v.String
}
