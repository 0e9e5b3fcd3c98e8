package web

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/web/entity"
	"github.com/bookshelf/bookshelf/web/locale"
	"github.com/bookshelf/bookshelf/web/session"
)

func TestMain(m *testing.M) {
	if err := locale.InitLocalizer("pt-BR"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	url  string
	deps *Deps
}

func setup(t *testing.T, backend config.BooksBackend, google http.HandlerFunc) *testEnv {
	t.Helper()
	dir := t.TempDir()

	if google == nil {
		google = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected", http.StatusTeapot)
		}
	}
	fake := httptest.NewServer(google)
	t.Cleanup(fake.Close)

	cfg := &config.Config{
		Language:   "pt-BR",
		BcryptCost: bcrypt.MinCost,
		Session: config.SessionConfig{
			Store:  config.SessionStoreCookie,
			Secret: "0123456789abcdef0123456789abcdef",
			MaxAge: 60,
		},
		Database: *config.GetDefaultDatabaseConfig(),
		Books:    config.BooksConfig{Backend: backend, JSONPath: filepath.Join(dir, "books.json")},
		GoogleBooks: config.GoogleBooksConfig{
			BaseURL:    fake.URL + "/books/v1",
			Timeout:    2 * time.Second,
			MaxResults: 5,
		},
		RateLimit: config.RateLimitConfig{PerMinute: 6000, Burst: 100},
	}
	cfg.Database.SQLite.Path = filepath.Join(dir, "bookshelf.db")

	db, err := database.InitDB(&cfg.Database, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })

	store, client, err := session.NewStore(cfg)
	require.NoError(t, err)
	require.Nil(t, client)

	deps, err := NewDeps(cfg, db, store)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(false, deps))
	t.Cleanup(srv.Close)
	return &testEnv{url: srv.URL, deps: deps}
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e *testEnv) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: e.url, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Accept-Language", "en-US")
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (c *client) login(nickname string) {
	c.t.Helper()
	creds := entity.Credentials{Nickname: nickname, Password: "secret123"}
	resp, data := c.do(http.MethodPost, "/api/register", creds)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, string(data))
	resp, data = c.do(http.MethodPost, "/api/login", creds)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, string(data))
}

func (c *client) addBook(book map[string]any) model.Book {
	c.t.Helper()
	resp, data := c.do(http.MethodPost, "/api/books", book)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, string(data))
	return decode[model.Book](c.t, data)
}

func errorOf(t *testing.T, data []byte) string {
	t.Helper()
	return decode[entity.ErrorMsg](t, data).Error
}

var backends = []config.BooksBackend{config.BooksBackendSQL, config.BooksBackendJSON}

func TestHealthz(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	resp, data := env.client(t).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	creds := entity.Credentials{Nickname: "alice", Password: "secret123"}

	resp, data := c.do(http.MethodGet, "/api/current-user", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"authenticated":false}`, string(data))

	resp, data = c.do(http.MethodPost, "/api/register", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	registered := decode[entity.RegisterResult](t, data)
	assert.Equal(t, "User registered successfully", registered.Message)
	assert.Positive(t, registered.UserId)

	// registering does not log in
	resp, _ = c.do(http.MethodGet, "/api/books", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data = c.do(http.MethodPost, "/api/register", creds)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nickname is already taken", errorOf(t, data))

	resp, data = c.do(http.MethodPost, "/api/login", entity.Credentials{Nickname: "alice", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid nickname or password", errorOf(t, data))

	resp, data = c.do(http.MethodPost, "/api/login", entity.Credentials{Nickname: "nobody", Password: "secret123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid nickname or password", errorOf(t, data))

	resp, data = c.do(http.MethodPost, "/api/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	logged := decode[entity.LoginResult](t, data)
	assert.Equal(t, "Logged in successfully", logged.Message)
	require.NotNil(t, logged.User)
	assert.Equal(t, registered.UserId, logged.User.Id)
	assert.Equal(t, "alice", logged.User.Nickname)
	assert.Zero(t, logged.User.TotalBooks)
	assert.NotContains(t, string(data), "password")

	c.addBook(map[string]any{"title": "Dune", "author": "Frank Herbert"})

	resp, data = c.do(http.MethodGet, "/api/current-user", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decode[entity.CurrentUser](t, data)
	assert.True(t, current.Authenticated)
	require.NotNil(t, current.User)
	assert.EqualValues(t, 1, current.User.TotalBooks)

	resp, data = c.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully", decode[entity.Msg](t, data).Message)

	resp, data = c.do(http.MethodGet, "/api/current-user", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"authenticated":false}`, string(data))

	resp, data = c.do(http.MethodGet, "/api/books", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Please log in to continue", errorOf(t, data))

	resp, _ = c.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"empty body", "", "Missing or invalid request data"},
		{"malformed", "{nickname", "Missing or invalid request data"},
		{"missing password", map[string]any{"nickname": "alice"}, "Nickname and password are required"},
		{"short nickname", entity.Credentials{Nickname: "al", Password: "secret123"}, "Nickname must be at least 3 characters long"},
		{"short password", entity.Credentials{Nickname: "alice", Password: "12345"}, "Password must be at least 6 characters long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := c.do(http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, errorOf(t, data))
		})
	}
}

func TestPortugueseByDefault(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	req, err := http.NewRequest(http.MethodGet, env.url+"/api/books", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEqual(t, "Please log in to continue", errorOf(t, data))
	assert.NotEqual(t, "errors.unauthenticated", errorOf(t, data))
}

func TestBookLifecycle(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			env := setup(t, backend, nil)
			c := env.client(t)
			c.login("alice")

			book := c.addBook(map[string]any{"title": "  Dune ", "author": "Frank Herbert", "year": 1965, "genre": "Sci-Fi"})
			assert.Positive(t, book.Id)
			assert.Equal(t, "Dune", book.Title)
			require.NotNil(t, book.Year)
			assert.Equal(t, 1965, *book.Year)
			assert.Zero(t, book.Rating)
			assert.Equal(t, model.WantToRead, book.ReadingStatus)
			assert.Nil(t, book.Description)

			path := fmt.Sprintf("/api/books/%d", book.Id)
			resp, data := c.do(http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, book.Title, decode[model.Book](t, data).Title)

			// absent fields are kept
			resp, data = c.do(http.MethodPut, path, map[string]any{"rating": 4, "reading_status": "reading"})
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			updated := decode[model.Book](t, data)
			assert.Equal(t, "Dune", updated.Title)
			assert.Equal(t, 4, updated.Rating)
			assert.Equal(t, model.Reading, updated.ReadingStatus)
			require.NotNil(t, updated.Genre)
			assert.Equal(t, "Sci-Fi", *updated.Genre)

			// null clears
			resp, data = c.do(http.MethodPut, path, `{"genre": null, "year": null}`)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
			updated = decode[model.Book](t, data)
			assert.Nil(t, updated.Genre)
			assert.Nil(t, updated.Year)
			assert.Equal(t, 4, updated.Rating)

			resp, data = c.do(http.MethodPut, path, map[string]any{"rating": 9})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Rating must be between 0 and 5", errorOf(t, data))

			resp, data = c.do(http.MethodPut, path, map[string]any{"reading_status": "abandoned"})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid reading status: abandoned", errorOf(t, data))

			resp, data = c.do(http.MethodPut, path, map[string]any{"title": "   "})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Title is required", errorOf(t, data))

			resp, data = c.do(http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "Dune", decode[model.Book](t, data).Title)

			resp, data = c.do(http.MethodDelete, path, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "Book deleted successfully", decode[entity.Msg](t, data).Message)

			resp, data = c.do(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "Book not found", errorOf(t, data))

			resp, _ = c.do(http.MethodDelete, path, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

func TestCreateValidation(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	c.login("alice")

	resp, data := c.do(http.MethodPost, "/api/books", map[string]any{"author": "Anonymous"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Title is required", errorOf(t, data))

	resp, data = c.do(http.MethodPost, "/api/books", map[string]any{"title": "Untitled"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Author is required", errorOf(t, data))

	resp, data = c.do(http.MethodPost, "/api/books", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing or invalid request data", errorOf(t, data))

	resp, data = c.do(http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[entity.BookList](t, data).Pagination.Total)
}

func TestInvalidIDIsNotFound(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	c.login("alice")

	for _, id := range []string{"abc", "0", "-3", "99999"} {
		resp, data := c.do(http.MethodGet, "/api/books/"+id, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
		assert.Equal(t, "Book not found", errorOf(t, data), id)

		resp, _ = c.do(http.MethodPut, "/api/books/"+id, map[string]any{"rating": 1})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			env := setup(t, backend, nil)
			alice := env.client(t)
			alice.login("alice")
			bob := env.client(t)
			bob.login("bob")

			book := alice.addBook(map[string]any{"title": "Emma", "author": "Jane Austen"})
			path := fmt.Sprintf("/api/books/%d", book.Id)

			resp, _ := bob.do(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			resp, _ = bob.do(http.MethodPut, path, map[string]any{"title": "Mine now"})
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			resp, _ = bob.do(http.MethodDelete, path, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp, data := bob.do(http.MethodGet, "/api/books", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list := decode[entity.BookList](t, data)
			assert.Empty(t, list.Books)
			assert.Zero(t, list.Pagination.Total)

			resp, data = bob.do(http.MethodGet, "/api/authors", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `[]`, string(data))

			resp, data = alice.do(http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "Emma", decode[model.Book](t, data).Title)
		})
	}
}

func TestListingPaginationAndFilters(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			env := setup(t, backend, nil)
			c := env.client(t)
			c.login("alice")

			for i := 1; i <= 12; i++ {
				genre := "Fantasy"
				if i%2 == 0 {
					genre = "Horror"
				}
				status := model.WantToRead
				if i%4 == 0 {
					status = model.Reading
				}
				c.addBook(map[string]any{
					"title":          fmt.Sprintf("Volume %02d", i),
					"author":         fmt.Sprintf("Author %d", i%3),
					"genre":          genre,
					"rating":         i % 6,
					"reading_status": status,
				})
			}

			resp, data := c.do(http.MethodGet, "/api/books?per_page=5&page=3&sort_by=title&order=asc", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list := decode[entity.BookList](t, data)
			require.Len(t, list.Books, 2)
			assert.Equal(t, "Volume 11", list.Books[0].Title)
			assert.Equal(t, "Volume 12", list.Books[1].Title)
			p := list.Pagination
			assert.EqualValues(t, 12, p.Total)
			assert.Equal(t, 3, p.Pages)
			assert.Equal(t, 3, p.CurrentPage)
			assert.Equal(t, 5, p.PerPage)
			assert.False(t, p.HasNext)
			assert.True(t, p.HasPrev)
			assert.Nil(t, p.NextNum)
			require.NotNil(t, p.PrevNum)
			assert.Equal(t, 2, *p.PrevNum)

			// past the last page is empty but keeps the totals
			resp, data = c.do(http.MethodGet, "/api/books?per_page=5&page=9", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			assert.Empty(t, list.Books)
			assert.EqualValues(t, 12, list.Pagination.Total)

			resp, data = c.do(http.MethodGet, "/api/books?per_page=5&page=1000000000000000000", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			assert.Empty(t, list.Books)
			assert.EqualValues(t, 12, list.Pagination.Total)
			assert.Equal(t, model.MaxPage(5), list.Pagination.CurrentPage)
			assert.False(t, list.Pagination.HasNext)

			// defaults: newest first, ten per page
			resp, data = c.do(http.MethodGet, "/api/books?sort_by=bogus&page=x", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			require.Len(t, list.Books, 10)
			assert.Equal(t, "Volume 12", list.Books[0].Title)
			assert.Equal(t, 10, list.Pagination.PerPage)

			resp, data = c.do(http.MethodGet, "/api/books?genre=Horror&per_page=100", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			assert.Len(t, list.Books, 6)
			for _, b := range list.Books {
				require.NotNil(t, b.Genre)
				assert.Equal(t, "Horror", *b.Genre)
			}

			resp, data = c.do(http.MethodGet, "/api/books?genre=todos", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.EqualValues(t, 12, decode[entity.BookList](t, data).Pagination.Total)

			// search ignores the genre filter
			resp, data = c.do(http.MethodGet, "/api/books?search=volume%2007&genre=Horror", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			require.Len(t, list.Books, 1)
			assert.Equal(t, "Volume 07", list.Books[0].Title)

			resp, data = c.do(http.MethodGet, "/api/books?min_rating=5", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			require.Len(t, list.Books, 2)
			for _, b := range list.Books {
				assert.Equal(t, 5, b.Rating)
			}

			resp, data = c.do(http.MethodGet, "/api/books?status=read", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Zero(t, decode[entity.BookList](t, data).Pagination.Total)

			// status and min_rating both apply
			resp, data = c.do(http.MethodGet, "/api/books?status=reading&min_rating=4", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list = decode[entity.BookList](t, data)
			require.Len(t, list.Books, 1)
			assert.Equal(t, "Volume 04", list.Books[0].Title)
		})
	}
}

func TestGenresAuthorsStats(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	c.login("alice")

	c.addBook(map[string]any{"title": "Dune", "author": "Frank Herbert", "genre": "Sci-Fi"})
	c.addBook(map[string]any{"title": "Emma", "author": "Jane Austen", "genre": "Romance"})
	c.addBook(map[string]any{"title": "Persuasion", "author": "Jane Austen", "genre": "Romance"})
	c.addBook(map[string]any{"title": "Notes", "author": "Anonymous"})

	resp, data := c.do(http.MethodGet, "/api/genres", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Romance", "Sci-Fi"}, decode[[]string](t, data))

	resp, data = c.do(http.MethodGet, "/api/authors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Anonymous", "Frank Herbert", "Jane Austen"}, decode[[]string](t, data))

	resp, data = c.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.Stats{TotalBooks: 4, TotalGenres: 2, TotalAuthors: 3}, decode[entity.Stats](t, data))
}

func TestExport(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	c.login("alice")
	c.addBook(map[string]any{"title": "Dune", "author": "Frank Herbert", "year": 1965, "reading_status": "read", "rating": 5})
	c.addBook(map[string]any{"title": "Emma, Vol. 1", "author": "Jane Austen"})

	resp, data := c.do(http.MethodGet, "/api/books/export/csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.True(t, strings.HasPrefix(params["filename"], "livros_alice_"), params["filename"])
	assert.True(t, strings.HasSuffix(params["filename"], ".csv"), params["filename"])

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "title", records[0][1])
	assert.Equal(t, "Emma, Vol. 1", records[1][1])
	assert.Equal(t, "Dune", records[2][1])
	assert.Equal(t, "1965", records[2][3])
	assert.Equal(t, "Read", records[2][9])

	resp, data = c.do(http.MethodGet, "/api/books/export/json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	doc := decode[entity.ExportDocument](t, data)
	assert.Equal(t, "alice", doc.User)
	assert.Equal(t, 2, doc.TotalBooks)
	require.Len(t, doc.Books, 2)
	assert.Equal(t, "Want to Read", doc.Books[0].ReadingStatusLabel)

	resp, data = c.do(http.MethodGet, "/api/books/export/xml", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported export format: xml", errorOf(t, data))

	anon := env.client(t)
	resp, _ = anon.do(http.MethodGet, "/api/books/export/csv", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExportIsCompressed(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	c := env.client(t)
	c.login("alice")
	c.addBook(map[string]any{"title": "Dune", "author": "Frank Herbert"})

	raw := &http.Client{Jar: c.http.Jar, Transport: &http.Transport{DisableCompression: true}}
	req, err := http.NewRequest(http.MethodGet, env.url+"/api/books/export/csv", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := raw.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "id,title,author"), string(body))
}

const googleFixture = `{
  "totalItems": 1,
  "items": [{"volumeInfo": {
    "title": "Dom Casmurro",
    "authors": ["Machado de Assis"],
    "publishedDate": "1899",
    "categories": ["Fiction"],
    "imageLinks": {"thumbnail": "http://books.google.com/thumb"}
  }}]
}`

func TestSearchGoogleBooks(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "dom casmurro":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, googleFixture)
		case "broken":
			http.Error(w, "quota", http.StatusServiceUnavailable)
		default:
			http.Error(w, "unexpected query", http.StatusBadRequest)
		}
	})
	c := env.client(t)

	resp, _ := c.do(http.MethodGet, "/api/search-google-books?q=casmurro", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.login("alice")
	resp, data := c.do(http.MethodGet, "/api/search-google-books?q=dom+casmurro", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	result := decode[entity.MetadataResult](t, data)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalItems)
	require.Len(t, result.Books, 1)
	assert.Equal(t, "Dom Casmurro", result.Books[0].Title)
	assert.Equal(t, "Machado de Assis", result.Books[0].Author)
	require.NotNil(t, result.Books[0].Year)
	assert.Equal(t, 1899, *result.Books[0].Year)
	assert.Equal(t, "https://books.google.com/thumb", result.Books[0].CoverImageURL)

	resp, data = c.do(http.MethodGet, "/api/search-google-books?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "A search term is required", errorOf(t, data))

	resp, data = c.do(http.MethodGet, "/api/search-google-books?q=broken", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, strings.HasPrefix(errorOf(t, data), "Google Books lookup failed"), errorOf(t, data))
}

func TestStaleSessionAfterUserDelete(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			env := setup(t, backend, nil)
			c := env.client(t)
			c.login("alice")
			c.addBook(map[string]any{"title": "Dune", "author": "Frank Herbert"})

			resp, data := c.do(http.MethodGet, "/api/current-user", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			current := decode[entity.CurrentUser](t, data)
			require.NotNil(t, current.User)

			require.NoError(t, env.deps.Users.DeleteUser(context.Background(), current.User.Id))

			resp, _ = c.do(http.MethodGet, "/api/books", nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp, data = c.do(http.MethodGet, "/api/current-user", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"authenticated":false}`, string(data))

			// the nickname is free again and the new account starts empty
			c.login("alice")
			resp, data = c.do(http.MethodGet, "/api/books", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Zero(t, decode[entity.BookList](t, data).Pagination.Total)
		})
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	env := setup(t, config.BooksBackendSQL, nil)
	env.deps.RateLimit.RequestsPerMinute = 1
	env.deps.RateLimit.BurstSize = 2
	srv := httptest.NewServer(NewRouter(false, env.deps))
	t.Cleanup(srv.Close)

	c := env.client(t)
	c.base = srv.URL
	creds := entity.Credentials{Nickname: "alice", Password: "wrong-password"}

	resp, _ := c.do(http.MethodPost, "/api/login", creds)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = c.do(http.MethodPost, "/api/login", creds)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := c.do(http.MethodPost, "/api/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "Too many attempts, please wait a moment", errorOf(t, data))

	// other routes are not limited
	resp, _ = c.do(http.MethodGet, "/api/current-user", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenBooksRejectsUnknownBackend(t *testing.T) {
	_, err := OpenBooks(&config.Config{Books: config.BooksConfig{Backend: "s3"}}, nil)
	assert.Error(t, err)
}
