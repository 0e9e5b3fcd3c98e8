package database

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/logger"

	"gorm.io/gorm"
)

type jsonDocument struct {
	Books  []*model.Book `json:"books"`
	NextID int           `json:"next_id"`
}

func emptyDocument() *jsonDocument {
	return &jsonDocument{Books: []*model.Book{}, NextID: 1}
}

// JSONBookRepository keeps every book in a single JSON document that is read and
// rewritten as a whole on each operation.
type JSONBookRepository struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewJSONBookRepository opens the document at path, creating it when missing.
func NewJSONBookRepository(path string) (*JSONBookRepository, error) {
	r := &JSONBookRepository{path: path, now: time.Now}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := r.write(emptyDocument()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *JSONBookRepository) WithTx(*gorm.DB) BookRepository {
	return r
}

// read loads the document. An unreadable or corrupt file is replaced with an empty one.
func (r *JSONBookRepository) read() (*jsonDocument, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := emptyDocument()
		return doc, r.write(doc)
	}
	if err != nil {
		return nil, err
	}
	doc := &jsonDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		logger.Warningf("books file %s is corrupt, recreating it: %v", r.path, err)
		doc = emptyDocument()
		return doc, r.write(doc)
	}
	if doc.Books == nil {
		doc.Books = []*model.Book{}
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	for _, b := range doc.Books {
		if b.Id >= doc.NextID {
			doc.NextID = b.Id + 1
		}
	}
	return doc, nil
}

// write replaces the document atomically through a temporary file in the same folder.
func (r *JSONBookRepository) write(doc *jsonDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

func (r *JSONBookRepository) find(doc *jsonDocument, ownerID, id int) int {
	for i, b := range doc.Books {
		if b.Id == id && b.UserId == ownerID {
			return i
		}
	}
	return -1
}

func (r *JSONBookRepository) owned(doc *jsonDocument, ownerID int) []*model.Book {
	out := make([]*model.Book, 0)
	for _, b := range doc.Books {
		if b.UserId == ownerID {
			out = append(out, b)
		}
	}
	return out
}

func (r *JSONBookRepository) Create(ctx context.Context, book *model.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return err
	}
	book.Id = doc.NextID
	if book.CreatedAt.IsZero() {
		book.CreatedAt = r.now()
	}
	doc.NextID++
	doc.Books = append(doc.Books, book.Clone())
	return r.write(doc)
}

func (r *JSONBookRepository) Get(ctx context.Context, ownerID, id int) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	i := r.find(doc, ownerID, id)
	if i < 0 {
		return nil, errBookNotFound()
	}
	return doc.Books[i], nil
}

func (r *JSONBookRepository) Update(ctx context.Context, ownerID, id int, patch *model.BookPatch) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	i := r.find(doc, ownerID, id)
	if i < 0 {
		return nil, errBookNotFound()
	}
	// Patch a copy so a failed validation leaves the stored record untouched.
	book := doc.Books[i].Clone()
	if err := patch.Apply(book); err != nil {
		return nil, err
	}
	doc.Books[i] = book
	if err := r.write(doc); err != nil {
		return nil, err
	}
	return book.Clone(), nil
}

func (r *JSONBookRepository) Delete(ctx context.Context, ownerID, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return err
	}
	i := r.find(doc, ownerID, id)
	if i < 0 {
		return errBookNotFound()
	}
	doc.Books = append(doc.Books[:i], doc.Books[i+1:]...)
	return r.write(doc)
}

func containsFold(value *string, term string) bool {
	if value == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*value), strings.ToLower(term))
}

func matches(b *model.Book, q model.BookQuery) bool {
	if q.Search != "" {
		if !containsFold(&b.Title, q.Search) && !containsFold(&b.Author, q.Search) && !containsFold(b.Genre, q.Search) {
			return false
		}
	} else if q.Genre != "" && !containsFold(b.Genre, q.Genre) {
		return false
	}
	if q.Status != "" && b.ReadingStatus != q.Status {
		return false
	}
	if q.MinRating > 0 && b.Rating < q.MinRating {
		return false
	}
	return true
}

// compareBooks orders by the requested key, with NULL years first ascending,
// then by id ascending.
func compareBooks(a, b *model.Book, q model.BookQuery) bool {
	var c int
	switch q.SortBy {
	case model.SortByTitle:
		c = strings.Compare(a.Title, b.Title)
	case model.SortByAuthor:
		c = strings.Compare(a.Author, b.Author)
	case model.SortByYear:
		switch {
		case a.Year == nil && b.Year == nil:
		case a.Year == nil:
			c = -1
		case b.Year == nil:
			c = 1
		default:
			c = cmp.Compare(*a.Year, *b.Year)
		}
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if q.Order != model.Asc {
		c = -c
	}
	if c != 0 {
		return c < 0
	}
	return a.Id < b.Id
}

func (r *JSONBookRepository) Query(ctx context.Context, ownerID int, q model.BookQuery) ([]model.Book, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return nil, 0, err
	}
	var hits []*model.Book
	for _, b := range r.owned(doc, ownerID) {
		if matches(b, q) {
			hits = append(hits, b)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return compareBooks(hits[i], hits[j], q) })

	total := int64(len(hits))
	books := make([]model.Book, 0, q.PerPage)
	start := q.Offset()
	if start < 0 || start >= len(hits) {
		return books, total, nil
	}
	end := start + min(q.PerPage, len(hits)-start)
	for _, b := range hits[start:end] {
		books = append(books, *b)
	}
	return books, total, nil
}

func (r *JSONBookRepository) Genres(ctx context.Context, ownerID int) ([]string, error) {
	return r.distinct(ownerID, func(b *model.Book) *string { return b.Genre })
}

func (r *JSONBookRepository) Authors(ctx context.Context, ownerID int) ([]string, error) {
	return r.distinct(ownerID, func(b *model.Book) *string { return &b.Author })
}

func (r *JSONBookRepository) distinct(ownerID int, field func(*model.Book) *string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	var values []string
	for _, b := range r.owned(doc, ownerID) {
		if v := field(b); v != nil {
			values = append(values, *v)
		}
	}
	return distinctSorted(values), nil
}

func (r *JSONBookRepository) Count(ctx context.Context, ownerID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return 0, err
	}
	return int64(len(r.owned(doc, ownerID))), nil
}

func (r *JSONBookRepository) ListAll(ctx context.Context, ownerID int) ([]model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	owned := r.owned(doc, ownerID)
	q := model.BookQuery{}
	sort.SliceStable(owned, func(i, j int) bool { return compareBooks(owned[i], owned[j], q) })
	books := make([]model.Book, 0, len(owned))
	for _, b := range owned {
		books = append(books, *b)
	}
	return books, nil
}

func (r *JSONBookRepository) DeleteByOwner(ctx context.Context, ownerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.read()
	if err != nil {
		return err
	}
	kept := doc.Books[:0]
	for _, b := range doc.Books {
		if b.UserId != ownerID {
			kept = append(kept, b)
		}
	}
	doc.Books = kept
	return r.write(doc)
}
