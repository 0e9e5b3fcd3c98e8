package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/util/common"
)

func exportFixture(t *testing.T) (*fixture, *model.User) {
	f := setupSQL(t)
	f.export.now = func() time.Time { return time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC) }
	u := f.register(t, "maria silva")
	f.addBook(t, u.Id, "Dom Casmurro", "Machado de Assis", func(p *model.BookPatch) {
		p.Year = model.Some(1899)
		p.Genre = model.Some("Romance, Realismo")
		p.ReadingStatus = model.Some(model.Read)
		p.Rating = model.Some(5)
	})
	f.addBook(t, u.Id, "Iracema", "José de Alencar")
	other := f.register(t, "outro")
	f.addBook(t, other.Id, "Not mine", "Someone")
	return f, u
}

func TestExportCSV(t *testing.T) {
	f, u := exportFixture(t)

	out, err := f.export.Export(context.Background(), u, ExportCSV, "pt-BR")
	require.NoError(t, err)
	assert.Equal(t, "livros_maria_silva_20250309_140507.csv", out.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)

	records, err := csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])

	byTitle := map[string][]string{}
	for _, r := range records[1:] {
		byTitle[r[1]] = r
	}
	dom := byTitle["Dom Casmurro"]
	require.NotNil(t, dom)
	assert.Equal(t, "1899", dom[3])
	assert.Equal(t, "Romance, Realismo", dom[4])
	assert.Equal(t, "5", dom[7])
	assert.Equal(t, "read", dom[8])
	assert.Equal(t, "Lido", dom[9])

	ira := byTitle["Iracema"]
	require.NotNil(t, ira)
	assert.Equal(t, "", ira[3])
	assert.Equal(t, "Quero Ler", ira[9])
	assert.NotContains(t, byTitle, "Not mine")
}

func TestExportJSON(t *testing.T) {
	f, u := exportFixture(t)

	out, err := f.export.Export(context.Background(), u, "JSON", "en-US")
	require.NoError(t, err)
	assert.Equal(t, "livros_maria_silva_20250309_140507.json", out.Filename)

	var doc struct {
		User       string    `json:"user"`
		ExportedAt time.Time `json:"exported_at"`
		TotalBooks int       `json:"total_books"`
		Books      []struct {
			Title              string  `json:"title"`
			Year               *int    `json:"year"`
			ReadingStatus      string  `json:"reading_status"`
			ReadingStatusLabel string  `json:"reading_status_label"`
			Genre              *string `json:"genre"`
			UserId             int     `json:"user_id"`
		} `json:"books"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &doc))
	assert.Equal(t, "maria silva", doc.User)
	assert.Equal(t, 2, doc.TotalBooks)
	assert.True(t, doc.ExportedAt.Equal(time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)))
	require.Len(t, doc.Books, 2)
	for _, b := range doc.Books {
		assert.Equal(t, u.Id, b.UserId)
		switch b.Title {
		case "Dom Casmurro":
			assert.Equal(t, "Read", b.ReadingStatusLabel)
			assert.Equal(t, 1899, *b.Year)
		case "Iracema":
			assert.Equal(t, "Want to Read", b.ReadingStatusLabel)
			assert.Nil(t, b.Year)
			assert.Nil(t, b.Genre)
		default:
			t.Fatalf("unexpected book %q", b.Title)
		}
	}
}

func TestExportErrors(t *testing.T) {
	f, u := exportFixture(t)
	_, err := f.export.Export(context.Background(), u, "xml", "pt-BR")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.export.Export(context.Background(), nil, ExportCSV, "pt-BR")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}
