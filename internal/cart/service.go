package cart

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/maktba/fulfillment/internal/catalog"
	"github.com/maktba/fulfillment/internal/domain"
	"github.com/maktba/fulfillment/internal/messaging"
)

var meter = otel.Meter("fulfillment/cart")

// Service is the cart manager: it mutates the per-user cart and converts a
// confirmed cart into a pending order. Each public operation runs as a
// single database transaction. Stock is checked, never reserved; the final
// check happens when the order is prepared.
type Service struct {
	db            *sql.DB
	producer      *messaging.Producer
	logger        *slog.Logger
	ordersCreated metric.Int64Counter
}

// NewService builds the cart manager. producer may be nil when event
// publishing is not configured.
func NewService(db *sql.DB, producer *messaging.Producer, logger *slog.Logger) (*Service, error) {
	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created from confirmed carts"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:            db,
		producer:      producer,
		logger:        logger,
		ordersCreated: ordersCreated,
	}, nil
}

// AddToCart merges quantity into the user's line for the product, creating
// the cart lazily. The merged quantity must not exceed the product's
// current stock.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*domain.LineView, error) {
	if quantity <= 0 {
		return nil, domain.InvalidInput("cart", "quantity must be greater than zero")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add to cart: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := catalog.FindProduct(ctx, tx, productID)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil, domain.NotFound("product", productID)
	}

	cartID, err := ensureCart(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure cart: %w", err)
	}

	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		FOR UPDATE
	`, cartID, productID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load cart line: %w", err)
	}

	merged := existing + quantity
	if product.Quantity < merged {
		return nil, domain.InsufficientStock(product.Name)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = $3
	`, cartID, productID, merged)
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add to cart: %w", err)
	}

	return &domain.LineView{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    merged,
		Price:       product.Price,
	}, nil
}

// RemoveFromCart deletes the line for productID. A product not in the cart
// is a no-op; a missing cart is an error.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove from cart: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := findCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove from cart: %w", err)
	}

	return nil
}

// ResetCart clears every line from the user's cart. The cart row itself is
// kept.
func (s *Service) ResetCart(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset cart: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := findCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1
	`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset cart: %w", err)
	}

	return nil
}

// ConfirmCart re-checks every line against current stock, snapshots the
// cart into a pending order priced at the current catalog prices, and
// clears the cart. Stock is not decremented here.
func (s *Service) ConfirmCart(ctx context.Context, userID string) (*domain.OrderView, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm cart: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := findCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, p.name, p.price, p.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}

	var items []domain.LineView
	for rows.Next() {
		var line domain.LineView
		var stock int
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.ProductName, &line.Price, &stock); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if stock < line.Quantity {
			_ = rows.Close()
			return nil, domain.InsufficientStock(line.ProductName)
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	_ = rows.Close()

	if len(items) == 0 {
		return nil, domain.InvalidInput("cart", "cart is empty")
	}

	orderID := uuid.New().String()
	total := domain.TotalPrice(items)
	createdAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, userID, total, domain.OrderStatusPending, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)
		`, uuid.New().String(), orderID, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm cart: %w", err)
	}

	s.ordersCreated.Add(ctx, 1)

	order := &domain.OrderView{
		OrderID:   orderID,
		UserID:    userID,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatusPending,
		CreatedAt: createdAt,
	}

	s.publishCreated(ctx, order)

	return order, nil
}

// GetCartByUser renders the user's cart with live catalog prices. When no
// cart exists yet the returned view is transient: nothing is persisted.
func (s *Service) GetCartByUser(ctx context.Context, userID string) (*domain.CartView, error) {
	var cartID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cartID)
	if err == sql.ErrNoRows {
		return &domain.CartView{UserID: userID, Items: []domain.LineView{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, p.name, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []domain.LineView{}
	for rows.Next() {
		var line domain.LineView
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.ProductName, &line.Price); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return &domain.CartView{CartID: cartID, UserID: userID, Items: items}, nil
}

func (s *Service) publishCreated(ctx context.Context, order *domain.OrderView) {
	if s.producer == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Total:     order.Total,
		Timestamp: order.CreatedAt,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if err := s.producer.Publish(ctx, order.OrderID, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.OrderID)
	}
}

// ensureCart returns the id of the user's cart, creating the row on first
// use.
func ensureCart(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var cartID string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, uuid.New().String(), userID).Scan(&cartID)
	if err != nil {
		return "", err
	}
	return cartID, nil
}

func findCart(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var cartID string
	err := tx.QueryRowContext(ctx, `
		SELECT id
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&cartID)
	if err == sql.ErrNoRows {
		return "", domain.NotFound("cart", userID)
	}
	if err != nil {
		return "", fmt.Errorf("find cart: %w", err)
	}
	return cartID, nil
}

func touchCart(ctx context.Context, tx *sql.Tx, cartID string) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE carts SET updated_at = NOW() WHERE id = $1
	`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
