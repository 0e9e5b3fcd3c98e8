package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/web/entity"
	"github.com/bookshelf/bookshelf/web/locale"

	"github.com/goccy/go-json"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

const exportTimeLayout = "20060102_150405"

var csvHeader = []string{
	"id", "title", "author", "year", "genre", "description", "cover_image_url",
	"rating", "reading_status", "reading_status_label", "created_at",
}

// ExportService renders a user's whole collection as a downloadable file.
type ExportService struct {
	books database.BookRepository
	now   func() time.Time
}

func NewExportService(books database.BookRepository) *ExportService {
	return &ExportService{books: books, now: time.Now}
}

// Export renders every book of user in format. Status labels are rendered in lang.
func (s *ExportService) Export(ctx context.Context, user *model.User, format ExportFormat, lang string) (*entity.Export, error) {
	if user == nil || user.Id <= 0 {
		return nil, common.NewError(common.ErrUnauthenticated, "errors.unauthenticated")
	}
	format = ExportFormat(strings.ToLower(string(format)))
	if format != ExportCSV && format != ExportJSON {
		return nil, common.NewError(common.ErrValidation, "errors.invalidFormat", "Format=="+string(format))
	}

	books, err := s.books.ListAll(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	rows := make([]entity.ExportBook, 0, len(books))
	for _, b := range books {
		rows = append(rows, entity.ExportBook{Book: b, ReadingStatusLabel: locale.StatusLabel(lang, b.ReadingStatus)})
	}

	now := s.now()
	out := &entity.Export{
		Filename: "livros_" + common.SafeFilename(user.Nickname) + "_" + now.Format(exportTimeLayout) + "." + string(format),
	}
	switch format {
	case ExportCSV:
		out.ContentType = "text/csv; charset=utf-8"
		out.Body, err = renderCSV(rows)
	case ExportJSON:
		out.ContentType = "application/json; charset=utf-8"
		out.Body, err = json.MarshalIndent(entity.ExportDocument{
			User:       user.Nickname,
			ExportedAt: now,
			TotalBooks: len(rows),
			Books:      rows,
		}, "", "  ")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deref[T any](p *T, format func(T) string) string {
	if p == nil {
		return ""
	}
	return format(*p)
}

func identity(s string) string { return s }

func renderCSV(rows []entity.ExportBook) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Id),
			r.Title,
			r.Author,
			deref(r.Year, strconv.Itoa),
			deref(r.Genre, identity),
			deref(r.Description, identity),
			deref(r.CoverImageURL, identity),
			strconv.Itoa(r.Rating),
			string(r.ReadingStatus),
			r.ReadingStatusLabel,
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
