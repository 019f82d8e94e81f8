package domain

// Product is the engine's read/write view of a catalog record. Price is in
// cents. Quantity is the stock available for commitment and never goes
// negative.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}
