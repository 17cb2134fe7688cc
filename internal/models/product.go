package models

// Product is a catalog entry. Code doubles as the cart line item ID.
type Product struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Price       Money  `json:"price"`
	Category    string `json:"category"`
	Brand       string `json:"brand,omitempty"`
	Image       string `json:"image,omitempty"`
	Stock       *int   `json:"stock,omitempty"`
	Description string `json:"description,omitempty"`
}

// LineItem converts the product into a cart line item with the given
// quantity.
func (p Product) LineItem(qty int) CartLineItem {
	return CartLineItem{
		ID:    p.Code,
		Name:  p.Name,
		Image: p.Image,
		Price: p.Price,
		Qty:   qty,
		Stock: p.Stock,
		Metadata: map[string]string{
			"brand":    p.Brand,
			"category": p.Category,
		},
	}
}
