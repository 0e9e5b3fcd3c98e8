package entity

// Pagination describes the position of a page within a listing. NextNum and PrevNum
// are null when there is no such page.
type Pagination struct {
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
	NextNum     *int  `json:"next_num"`
	PrevNum     *int  `json:"prev_num"`
}

func NewPagination(total int64, page, perPage int) Pagination {
	p := Pagination{
		Total:       total,
		CurrentPage: page,
		PerPage:     perPage,
	}
	if perPage > 0 {
		p.Pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	p.HasPrev = page > 1
	p.HasNext = page < p.Pages
	if p.HasNext {
		next := page + 1
		p.NextNum = &next
	}
	if p.HasPrev {
		prev := page - 1
		p.PrevNum = &prev
	}
	return p
}
