package model

import "math"

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByAuthor    SortField = "author"
	SortByYear      SortField = "year"
	SortByCreatedAt SortField = "created_at"
)

func (f SortField) IsValid() bool {
	switch f {
	case SortByTitle, SortByAuthor, SortByYear, SortByCreatedAt:
		return true
	}
	return false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// BookQuery is a normalized listing request. Empty Search, Genre and Status disable
// their filter and MinRating <= 0 disables the rating filter.
type BookQuery struct {
	Search    string
	Genre     string
	Status    ReadingStatus
	MinRating int
	SortBy    SortField
	Order     SortOrder
	Page      int
	PerPage   int
}

// MaxPage is the highest page whose offset fits in an int for the given page size.
func MaxPage(perPage int) int {
	if perPage < 1 {
		return math.MaxInt
	}
	return math.MaxInt / perPage
}

// Offset returns the number of rows skipped before the current page. It saturates at
// math.MaxInt instead of overflowing.
func (q BookQuery) Offset() int {
	if q.Page <= 1 || q.PerPage < 1 {
		return 0
	}
	if q.Page-1 > MaxPage(q.PerPage) {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PerPage
}
