package pkg

// Pager 页码分页，page 从 0 开始
type Pager struct {
	DefaultSize int
	MaxSize     int
}

// Normalize 修正页码和页大小：page<0 视为 0，size<=0 用默认值，超过上限截断
func (p Pager) Normalize(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = p.DefaultSize
	}
	if size > p.MaxSize {
		size = p.MaxSize
	}
	return page, size
}

// Offset 返回 (offset, limit)
func (p Pager) Offset(page, size int) (int, int) {
	page, size = p.Normalize(page, size)
	return page * size, size
}
