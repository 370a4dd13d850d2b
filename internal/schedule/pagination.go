package schedule

// Page — одна страница элементов с метаданными для списочных ручек.
type Page[T any] struct {
	Items    []T
	Page     int // номер страницы, с 1
	PageSize int
	HasNext  bool
	HasPrev  bool
	Total    int
}

// NewPage оборачивает уже отобранную страницу items метаданными.
// total — общее количество элементов в выборке (до пагинации).
func NewPage[T any](items []T, page, pageSize int, total int) Page[T] {
	const defaultPageSize = 20

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	end := (page-1)*pageSize + len(items)

	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}
