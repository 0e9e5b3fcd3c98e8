// Package entity defines the request and response shapes of the bookshelf HTTP API.
package entity

import (
	"time"

	"github.com/bookshelf/bookshelf/database/model"
)

// Msg is the body of plain acknowledgement responses.
type Msg struct {
	Message string `json:"message"`
}

// ErrorMsg is the body of every error response.
type ErrorMsg struct {
	Error string `json:"error"`
}

// Credentials is the login and registration payload.
type Credentials struct {
	Nickname string `json:"nickname" form:"nickname"`
	Password string `json:"password" form:"password"`
}

// User is the public shape of an account. The password hash never leaves the server.
type User struct {
	Id         int       `json:"id"`
	Nickname   string    `json:"nickname"`
	CreatedAt  time.Time `json:"created_at"`
	TotalBooks int64     `json:"total_books"`
}

func NewUser(u *model.User, totalBooks int64) *User {
	return &User{
		Id:         u.Id,
		Nickname:   u.Nickname,
		CreatedAt:  u.CreatedAt,
		TotalBooks: totalBooks,
	}
}

type RegisterResult struct {
	Message string `json:"message"`
	UserId  int    `json:"user_id"`
}

type LoginResult struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

// CurrentUser answers GET /api/current-user; User is omitted for anonymous callers.
type CurrentUser struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// BookList is one page of a listing with its pagination envelope.
type BookList struct {
	Books      []model.Book `json:"books"`
	Pagination Pagination   `json:"pagination"`
}

// Stats summarizes a user's collection.
type Stats struct {
	TotalBooks   int64 `json:"total_books"`
	TotalGenres  int   `json:"total_genres"`
	TotalAuthors int   `json:"total_authors"`
}

// MetadataBook is one normalized Google Books volume.
type MetadataBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Year          *int   `json:"year"`
	Description   string `json:"description"`
	Genre         string `json:"genre"`
	// imageLinks.thumbnail, or smallThumbnail
	Thumbnail     string `json:"thumbnail"`
	// same image, named after the book field
	CoverImageURL string `json:"cover_image_url"`
	Publisher     string `json:"publisher"`
	// ISBN_13 when present, else ISBN_10
	ISBN          string `json:"isbn"`
}

type MetadataResult struct {
	Success    bool           `json:"success"`
	TotalItems int            `json:"totalItems"`
	Books      []MetadataBook `json:"books"`
}

// ExportBook is a book as written to an export file.
type ExportBook struct {
	model.Book
	ReadingStatusLabel string `json:"reading_status_label"`
}

// ExportDocument is the body of a JSON export.
type ExportDocument struct {
	User       string       `json:"user"`
	ExportedAt time.Time    `json:"exported_at"`
	TotalBooks int          `json:"total_books"`
	Books      []ExportBook `json:"books"`
}

// Export is a rendered download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}
