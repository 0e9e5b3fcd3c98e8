package database

import (
	"context"
	"strings"

	"github.com/bookshelf/bookshelf/database/model"

	"gorm.io/gorm"
)

// SQLBookRepository keeps books in the relational store.
type SQLBookRepository struct {
	db *gorm.DB
}

func NewSQLBookRepository(db *gorm.DB) *SQLBookRepository {
	return &SQLBookRepository{db: db}
}

func (r *SQLBookRepository) WithTx(tx *gorm.DB) BookRepository {
	return &SQLBookRepository{db: tx}
}

func (r *SQLBookRepository) Create(ctx context.Context, book *model.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}
	book.Id = 0
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *SQLBookRepository) Get(ctx context.Context, ownerID, id int) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(book).Error
	if IsNotFound(err) {
		return nil, errBookNotFound()
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (r *SQLBookRepository) Update(ctx context.Context, ownerID, id int, patch *model.BookPatch) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(book).Error
		if IsNotFound(err) {
			return errBookNotFound()
		}
		if err != nil {
			return err
		}
		if err := patch.Apply(book); err != nil {
			return err
		}
		return tx.Save(book).Error
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (r *SQLBookRepository) Delete(ctx context.Context, ownerID, id int) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&model.Book{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errBookNotFound()
	}
	return nil
}

// likeEscape is portable across SQLite, PostgreSQL and MySQL string literal rules.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(term string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(term)) + "%"
}

func filterScope(ownerID int, q model.BookQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", ownerID)
		if q.Search != "" {
			p := containsPattern(q.Search)
			db = db.Where("(LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(author) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(genre) LIKE ? ESCAPE '"+likeEscape+"')", p, p, p)
		} else if q.Genre != "" {
			db = db.Where("LOWER(genre) LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(q.Genre))
		}
		if q.Status != "" {
			db = db.Where("reading_status = ?", q.Status)
		}
		if q.MinRating > 0 {
			db = db.Where("rating >= ?", q.MinRating)
		}
		return db
	}
}

// orderClause sorts by the requested column with id as the tie breaker. Missing
// years come first ascending and last descending on every dialect.
func orderClause(q model.BookQuery) string {
	col := string(model.SortByCreatedAt)
	if q.SortBy.IsValid() {
		col = string(q.SortBy)
	}
	dir, nulls := "DESC", "ASC"
	if q.Order == model.Asc {
		dir, nulls = "ASC", "DESC"
	}
	order := col + " " + dir + ", id ASC"
	if q.SortBy == model.SortByYear {
		order = col + " IS NULL " + nulls + ", " + order
	}
	return order
}

func (r *SQLBookRepository) Query(ctx context.Context, ownerID int, q model.BookQuery) ([]model.Book, int64, error) {
	db := r.db.WithContext(ctx)
	scope := filterScope(ownerID, q)

	var total int64
	if err := db.Model(&model.Book{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	books := make([]model.Book, 0, q.PerPage)
	if total == 0 || q.Offset() < 0 || int64(q.Offset()) >= total {
		return books, total, nil
	}
	err := db.Scopes(scope).
		Order(orderClause(q)).
		Offset(q.Offset()).
		Limit(q.PerPage).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *SQLBookRepository) distinct(ctx context.Context, ownerID int, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&model.Book{}).
		Where("user_id = ? AND "+column+" IS NOT NULL", ownerID).
		Distinct().
		Pluck(column, &values).Error
	if err != nil {
		return nil, err
	}
	return distinctSorted(values), nil
}

func (r *SQLBookRepository) Genres(ctx context.Context, ownerID int) ([]string, error) {
	return r.distinct(ctx, ownerID, "genre")
}

func (r *SQLBookRepository) Authors(ctx context.Context, ownerID int) ([]string, error) {
	return r.distinct(ctx, ownerID, "author")
}

func (r *SQLBookRepository) Count(ctx context.Context, ownerID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Book{}).Where("user_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (r *SQLBookRepository) ListAll(ctx context.Context, ownerID int) ([]model.Book, error) {
	books := []model.Book{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order(orderClause(model.BookQuery{})).
		Find(&books).Error
	return books, err
}

func (r *SQLBookRepository) DeleteByOwner(ctx context.Context, ownerID int) error {
	return r.db.WithContext(ctx).Where("user_id = ?", ownerID).Delete(&model.Book{}).Error
}
