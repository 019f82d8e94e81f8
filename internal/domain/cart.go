package domain

// CartItem is a desired (product, quantity) pair. A cart holds at most one
// item per product; adding an existing product merges quantities instead of
// appending a second line.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// LineQuantity returns the quantity already in the cart for productID, or 0
// when the product has no line yet.
func (c *Cart) LineQuantity(productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// LineView is a cart or order line rendered for a caller: the product's name
// and price are resolved from the catalog at render time, not stored with
// the line.
type LineView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

type CartView struct {
	CartID string     `json:"cart_id"`
	UserID string     `json:"user_id"`
	Items  []LineView `json:"items"`
}

// TotalPrice sums price*quantity over rendered lines.
func TotalPrice(items []LineView) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}
