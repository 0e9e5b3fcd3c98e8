package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/bookshelf/bookshelf/database/model"
)

// allGenres are the genre values that mean "no genre filter".
var allGenres = []string{"all", "todos"}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// ParseBookQuery turns listing parameters into a normalized query. Unknown or malformed
// values fall back to their defaults instead of failing the request.
func ParseBookQuery(values url.Values) model.BookQuery {
	q := model.BookQuery{
		Search:  strings.TrimSpace(values.Get("search")),
		Genre:   strings.TrimSpace(values.Get("genre")),
		SortBy:  model.SortField(strings.ToLower(strings.TrimSpace(values.Get("sort_by")))),
		Order:   model.SortOrder(strings.ToLower(strings.TrimSpace(values.Get("order")))),
		Page:    atoiOr(values.Get("page"), 1),
		PerPage: atoiOr(values.Get("per_page"), model.DefaultPerPage),
	}

	for _, all := range allGenres {
		if strings.EqualFold(q.Genre, all) {
			q.Genre = ""
		}
	}
	if q.Search != "" {
		q.Genre = ""
	}

	if status := model.ReadingStatus(strings.TrimSpace(values.Get("status"))); status.IsValid() {
		q.Status = status
	}
	if rating := atoiOr(values.Get("min_rating"), 0); rating > 0 {
		q.MinRating = rating
	}

	if !q.SortBy.IsValid() {
		q.SortBy = model.SortByCreatedAt
	}
	if q.Order != model.Asc {
		q.Order = model.Desc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = model.DefaultPerPage
	}
	if q.PerPage > model.MaxPerPage {
		q.PerPage = model.MaxPerPage
	}
	if q.Page > model.MaxPage(q.PerPage) {
		q.Page = model.MaxPage(q.PerPage)
	}
	return q
}
