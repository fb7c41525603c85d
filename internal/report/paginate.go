package report

// PageSize is the fixed client-side page size.
const PageSize = 20

// Paginate returns the 1-based page of rows and the page count. The page
// index is clamped into the valid range; an empty set yields one empty page.
func Paginate(rows []Row, page int) (pageRows []Row, clamped, totalPages int) {
	totalPages = (len(rows) + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], page, totalPages
}
