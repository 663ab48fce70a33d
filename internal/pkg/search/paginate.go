package search

import "github.com/ManuelReschke/ImmoMap/app/models"

// Page is one slice of a filtered, sorted result set.
type Page struct {
	Properties      []models.Property `json:"properties"`
	TotalCount      int               `json:"totalCount"`
	Page            int               `json:"page"`
	PageSize        int               `json:"pageSize"`
	HasNextPage     bool              `json:"hasNextPage"`
	HasPreviousPage bool              `json:"hasPreviousPage"`
}

// Paginate slices [(page-1)*pageSize, page*pageSize) out of props. Pages
// past the end are empty.
func Paginate(props []models.Property, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(props)
	items := []models.Property{}
	hasNext := false
	// page-1 is compared before multiplying so huge pages cannot overflow.
	if page-1 <= total/pageSize {
		start := (page - 1) * pageSize
		remaining := total - start
		end := start + min(pageSize, remaining)
		if end > start {
			items = props[start:end:end]
		}
		hasNext = remaining > pageSize
	}

	return Page{
		Properties:      items,
		TotalCount:      total,
		Page:            page,
		PageSize:        pageSize,
		HasNextPage:     hasNext,
		HasPreviousPage: page > 1,
	}
}
