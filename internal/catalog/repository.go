package catalog

import (
	"context"
	"database/sql"

	"github.com/maktba/fulfillment/internal/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so product lookups can
// run inside an engine transaction or standalone.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindProduct returns nil when no product exists with the given id.
func FindProduct(ctx context.Context, q Querier, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := q.QueryRowContext(ctx, `
		SELECT id, name, price, quantity
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.Price, &product.Quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return product, nil
}

// DecrementStock atomically takes quantity units off the product's stock.
// It returns false when the product has fewer units than requested; the
// conditional update means stock can never go below zero, and concurrent
// decrements of the same product serialize on the row lock.
func DecrementStock(ctx context.Context, q Querier, id string, quantity int) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2
	`, id, quantity)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// ProductRepository serves the read-only catalog views exposed by the
// service layer.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, quantity
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.Quantity); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return FindProduct(ctx, r.db, id)
}
