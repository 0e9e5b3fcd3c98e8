package model

import (
	"strings"
	"time"

	"github.com/bookshelf/bookshelf/util/common"
)

type ReadingStatus string

const (
	WantToRead ReadingStatus = "want_to_read"
	Reading    ReadingStatus = "reading"
	Read       ReadingStatus = "read"
)

// ReadingStatuses lists every status in display order.
var ReadingStatuses = []ReadingStatus{WantToRead, Reading, Read}

func (s ReadingStatus) IsValid() bool {
	switch s {
	case WantToRead, Reading, Read:
		return true
	}
	return false
}

const (
	MinRating = 0
	MaxRating = 5
)

type User struct {
	Id           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Nickname     string    `json:"nickname" gorm:"size:80;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;size:255;not null"`
	CreatedAt    time.Time `json:"created_at"`
	Books        []Book    `json:"-" gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

type Book struct {
	Id            int           `json:"id" gorm:"primaryKey;autoIncrement"`
	Title         string        `json:"title" gorm:"size:255;not null"`
	Author        string        `json:"author" gorm:"size:255;not null"`
	Year          *int          `json:"year"`
	Genre         *string       `json:"genre" gorm:"size:255"`
	Description   *string       `json:"description" gorm:"type:text"`
	CreatedAt     time.Time     `json:"created_at"`
	UserId        int           `json:"user_id" gorm:"not null;index"`
	CoverImageURL *string       `json:"cover_image_url" gorm:"column:cover_image_url;size:500"`
	Rating        int           `json:"rating" gorm:"not null"`
	ReadingStatus ReadingStatus `json:"reading_status" gorm:"size:20;not null"`
}

// NewBook returns a book owned by ownerID with the default rating and status.
func NewBook(ownerID int) *Book {
	return &Book{UserId: ownerID, ReadingStatus: WantToRead}
}

// Validate checks the fields every stored book must satisfy.
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return common.NewError(common.ErrValidation, "errors.titleRequired")
	}
	if strings.TrimSpace(b.Author) == "" {
		return common.NewError(common.ErrValidation, "errors.authorRequired")
	}
	if b.Rating < MinRating || b.Rating > MaxRating {
		return common.NewError(common.ErrValidation, "errors.ratingRange")
	}
	if !b.ReadingStatus.IsValid() {
		return common.NewError(common.ErrValidation, "errors.invalidStatus", "Status=="+string(b.ReadingStatus))
	}
	return nil
}

// Clone returns a deep copy of b.
func (b *Book) Clone() *Book {
	c := *b
	c.Year = clonePtr(b.Year)
	c.Genre = clonePtr(b.Genre)
	c.Description = clonePtr(b.Description)
	c.CoverImageURL = clonePtr(b.CoverImageURL)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
