package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/util/crypto"
	"github.com/bookshelf/bookshelf/web/locale"
)

func TestMain(m *testing.M) {
	if err := locale.InitLocalizer("pt-BR"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixture struct {
	db      *gorm.DB
	books   database.BookRepository
	users   *UserService
	library *BookService
	export  *ExportService
}

func setupSQL(t *testing.T) *fixture {
	t.Helper()
	cfg := config.GetDefaultDatabaseConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := database.InitDB(cfg, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	return newFixture(db, database.NewSQLBookRepository(db))
}

func setupJSON(t *testing.T) *fixture {
	t.Helper()
	f := setupSQL(t)
	repo, err := database.NewJSONBookRepository(filepath.Join(t.TempDir(), "books.json"))
	require.NoError(t, err)
	return newFixture(f.db, repo)
}

func newFixture(db *gorm.DB, books database.BookRepository) *fixture {
	return &fixture{
		db:      db,
		books:   books,
		users:   NewUserService(db, books, crypto.NewPasswordHasher(bcrypt.MinCost)),
		library: NewBookService(books),
		export:  NewExportService(books),
	}
}

func (f *fixture) register(t *testing.T, nickname string) *model.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), nickname, "secret123")
	require.NoError(t, err)
	return u
}

func (f *fixture) addBook(t *testing.T, ownerID int, title, author string, extra ...func(*model.BookPatch)) *model.Book {
	t.Helper()
	p := &model.BookPatch{Title: model.Some(title), Author: model.Some(author)}
	for _, fn := range extra {
		fn(p)
	}
	b, err := f.library.Create(context.Background(), ownerID, p)
	require.NoError(t, err)
	return b
}

func ptr[T any](v T) *T { return &v }
