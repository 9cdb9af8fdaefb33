package model

// Product is a catalog item used for retrieval and recommendation. The AI
// pipeline never mutates products.
type Product struct {
	ID          string            `json:"id"`
	CompanyID   string            `json:"company_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       float64           `json:"price"`
	Currency    string            `json:"currency,omitempty"`
	InStock     bool              `json:"in_stock"`
	Images      []string          `json:"images,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	Priority    int               `json:"priority"`
	Active      bool              `json:"active"`
}

// ProductFilters are the structured bounds extracted from a query before
// searching. Zero values mean "no bound".
type ProductFilters struct {
	MinPrice    float64 `json:"min_price,omitempty"`
	MaxPrice    float64 `json:"max_price,omitempty"`
	InStockOnly bool    `json:"in_stock_only,omitempty"`
}
