package postgres

// Pagination encapsulates an offset/limit-style paginated list response. No
// listing endpoint returns it; each handler builds its own response shape.
type Pagination struct {
	Items any `json:"items"`
	Limit int `json:"limit" example:"20"`
	Offset int `json:"offset" example:"0"`
}

// SetItems sets the page's items.
func (p *Pagination) SetItems(items any) {
	p.Items = items
}
