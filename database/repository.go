package database

import (
	"context"
	"sort"
	"strings"

	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/util/common"

	"gorm.io/gorm"
)

// BookRepository stores books. Every method is scoped to ownerID: a book owned by someone
// else is reported as common.ErrNotFound.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	Get(ctx context.Context, ownerID, id int) (*model.Book, error)
	Update(ctx context.Context, ownerID, id int, patch *model.BookPatch) (*model.Book, error)
	Delete(ctx context.Context, ownerID, id int) error
	Query(ctx context.Context, ownerID int, q model.BookQuery) ([]model.Book, int64, error)
	Genres(ctx context.Context, ownerID int) ([]string, error)
	Authors(ctx context.Context, ownerID int) ([]string, error)
	Count(ctx context.Context, ownerID int) (int64, error)
	ListAll(ctx context.Context, ownerID int) ([]model.Book, error)
	DeleteByOwner(ctx context.Context, ownerID int) error
	// WithTx returns a repository bound to tx. Backends outside the relational store
	// return themselves.
	WithTx(tx *gorm.DB) BookRepository
}

func errBookNotFound() error {
	return common.NewError(common.ErrNotFound, "errors.bookNotFound")
}

// distinctSorted trims values, drops blanks and duplicates and sorts the rest.
func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
