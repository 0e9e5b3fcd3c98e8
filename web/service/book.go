package service

import (
	"context"

	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/web/entity"
)

// BookService exposes a user's collection. ownerID is the authenticated user; every
// call without one fails with common.ErrUnauthenticated.
type BookService struct {
	books database.BookRepository
}

func NewBookService(books database.BookRepository) *BookService {
	return &BookService{books: books}
}

func requireOwner(ownerID int) error {
	if ownerID <= 0 {
		return common.NewError(common.ErrUnauthenticated, "errors.unauthenticated")
	}
	return nil
}

func (s *BookService) Create(ctx context.Context, ownerID int, patch *model.BookPatch) (*model.Book, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	book := model.NewBook(ownerID)
	if err := patch.Apply(book); err != nil {
		return nil, err
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *BookService) Get(ctx context.Context, ownerID, id int) (*model.Book, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.books.Get(ctx, ownerID, id)
}

func (s *BookService) Update(ctx context.Context, ownerID, id int, patch *model.BookPatch) (*model.Book, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.books.Update(ctx, ownerID, id, patch)
}

func (s *BookService) Delete(ctx context.Context, ownerID, id int) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	return s.books.Delete(ctx, ownerID, id)
}

// Query returns one page of the owner's books matching q.
func (s *BookService) Query(ctx context.Context, ownerID int, q model.BookQuery) (*entity.BookList, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	books, total, err := s.books.Query(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	return &entity.BookList{
		Books:      books,
		Pagination: entity.NewPagination(total, q.Page, q.PerPage),
	}, nil
}

func (s *BookService) Genres(ctx context.Context, ownerID int) ([]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.books.Genres(ctx, ownerID)
}

func (s *BookService) Authors(ctx context.Context, ownerID int) ([]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.books.Authors(ctx, ownerID)
}

func (s *BookService) Stats(ctx context.Context, ownerID int) (*entity.Stats, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	total, err := s.books.Count(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	genres, err := s.books.Genres(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	authors, err := s.books.Authors(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &entity.Stats{
		TotalBooks:   total,
		TotalGenres:  len(genres),
		TotalAuthors: len(authors),
	}, nil
}
