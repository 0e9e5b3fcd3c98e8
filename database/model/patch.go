package model

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/bookshelf/bookshelf/util/common"
)

// Field is one member of a sparse patch. Set reports whether the key was present in the
// payload and Null whether it was an explicit JSON null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set, non-null field.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a set field carrying an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Null, f.Value = true, zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// BookPatch is the payload of book create and update requests.
type BookPatch struct {
	Title         Field[string]        `json:"title"`
	Author        Field[string]        `json:"author"`
	Year          Field[int]           `json:"year"`
	Genre         Field[string]        `json:"genre"`
	Description   Field[string]        `json:"description"`
	CoverImageURL Field[string]        `json:"cover_image_url"`
	Rating        Field[int]           `json:"rating"`
	ReadingStatus Field[ReadingStatus] `json:"reading_status"`
}

// Apply writes the present fields of p onto b and validates the result. b is left
// partially modified when an error is returned.
func (p *BookPatch) Apply(b *Book) error {
	if p.Title.Set {
		if p.Title.Null || strings.TrimSpace(p.Title.Value) == "" {
			return common.NewError(common.ErrValidation, "errors.titleRequired")
		}
		b.Title = strings.TrimSpace(p.Title.Value)
	}
	if p.Author.Set {
		if p.Author.Null || strings.TrimSpace(p.Author.Value) == "" {
			return common.NewError(common.ErrValidation, "errors.authorRequired")
		}
		b.Author = strings.TrimSpace(p.Author.Value)
	}
	if p.Year.Set {
		b.Year = optional(p.Year)
	}
	if p.Genre.Set {
		b.Genre = optionalText(p.Genre)
	}
	if p.Description.Set {
		b.Description = optionalText(p.Description)
	}
	if p.CoverImageURL.Set {
		b.CoverImageURL = optionalText(p.CoverImageURL)
	}
	if p.Rating.Set {
		b.Rating = p.Rating.Value
	}
	if p.ReadingStatus.Set {
		if p.ReadingStatus.Null {
			b.ReadingStatus = WantToRead
		} else {
			b.ReadingStatus = p.ReadingStatus.Value
		}
	}
	return b.Validate()
}

func optional[T any](f Field[T]) *T {
	if f.Null {
		return nil
	}
	v := f.Value
	return &v
}

// optionalText trims the value; blank text clears the field.
func optionalText(f Field[string]) *string {
	if f.Null {
		return nil
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return nil
	}
	return &v
}
