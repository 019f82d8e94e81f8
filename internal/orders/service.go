package orders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/maktba/fulfillment/internal/catalog"
	"github.com/maktba/fulfillment/internal/domain"
	"github.com/maktba/fulfillment/internal/messaging"
)

var meter = otel.Meter("fulfillment/orders")

// Service is the order lifecycle manager: it edits pending orders, commits
// them against catalog stock, and cancels them. PrepareOrder is the only
// place inventory is mutated. Each public operation runs as a single
// database transaction; multi-product operations touch products in
// ascending product-id order so concurrent commits cannot deadlock.
type Service struct {
	db              *sql.DB
	producer        *messaging.Producer
	logger          *slog.Logger
	ordersProcessed metric.Int64Counter
	stockConflicts  metric.Int64Counter
}

// NewService builds the lifecycle manager. producer may be nil when event
// publishing is not configured.
func NewService(db *sql.DB, producer *messaging.Producer, logger *slog.Logger) (*Service, error) {
	ordersProcessed, err := meter.Int64Counter("orders_processed_total",
		metric.WithDescription("Orders committed against catalog stock"),
	)
	if err != nil {
		return nil, err
	}

	stockConflicts, err := meter.Int64Counter("stock_conflicts_total",
		metric.WithDescription("Order commits rejected for insufficient stock"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:              db,
		producer:        producer,
		logger:          logger,
		ordersProcessed: ordersProcessed,
		stockConflicts:  stockConflicts,
	}, nil
}

// ModifyOrder replaces the order's line set with updates: lines absent from
// the mapping are deleted, listed lines are set to exactly the given
// quantity. No stock check happens here; stock is enforced when the order
// is prepared. The total is recomputed from current catalog prices and the
// status becomes modified even when the net effect is a no-op.
func (s *Service) ModifyOrder(ctx context.Context, userID, orderID string, updates map[string]int) (*domain.OrderView, error) {
	if len(updates) == 0 {
		return nil, domain.InvalidInput("order", "update set is empty")
	}
	for _, quantity := range updates {
		if quantity <= 0 {
			return nil, domain.InvalidInput("order", "quantity must be greater than zero")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin modify order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := findOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.InvalidTransition(orderID, "order belongs to another user")
	}
	if !order.Mutable() {
		return nil, domain.InvalidTransition(orderID, "order already processed")
	}

	productIDs := make([]string, 0, len(updates))
	for productID := range updates {
		productIDs = append(productIDs, productID)
	}
	sort.Strings(productIDs)

	items := make([]domain.LineView, 0, len(productIDs))
	for _, productID := range productIDs {
		product, err := catalog.FindProduct(ctx, tx, productID)
		if err != nil {
			return nil, fmt.Errorf("find product: %w", err)
		}
		if product == nil {
			return nil, domain.NotFound("product", productID)
		}
		items = append(items, domain.LineView{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    updates[productID],
			Price:       product.Price,
		})
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM order_items WHERE order_id = $1
	`, orderID); err != nil {
		return nil, fmt.Errorf("delete order lines: %w", err)
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

	total := domain.TotalPrice(items)
	updatedAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET total = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, orderID, total, domain.OrderStatusModified, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit modify order: %w", err)
	}

	return &domain.OrderView{
		OrderID:   orderID,
		UserID:    order.UserID,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatusModified,
		CreatedAt: order.CreatedAt,
		UpdatedAt: &updatedAt,
	}, nil
}

// PrepareOrder commits the order: every line's quantity is taken off
// catalog stock in one atomic unit and the order becomes processed. If any
// line would drive stock negative the whole commit rolls back, naming the
// first insufficient product.
func (s *Service) PrepareOrder(ctx context.Context, orderID string) (*domain.OrderView, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin prepare order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := findOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Mutable() {
		return nil, domain.InvalidTransition(orderID, "order already processed")
	}

	items, err := loadOrderLines(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		ok, err := catalog.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if !ok {
			s.stockConflicts.Add(ctx, 1)
			return nil, domain.InsufficientStock(item.ProductName)
		}
	}

	updatedAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
	`, orderID, domain.OrderStatusProcessed, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit prepare order: %w", err)
	}

	s.ordersProcessed.Add(ctx, 1)

	view := &domain.OrderView{
		OrderID:   orderID,
		UserID:    order.UserID,
		Items:     items,
		Total:     order.Total,
		Status:    domain.OrderStatusProcessed,
		CreatedAt: order.CreatedAt,
		UpdatedAt: &updatedAt,
	}

	s.publishProcessed(ctx, view)

	return view, nil
}

// RemoveOrder cancels a not-yet-processed order by deleting it permanently.
func (s *Service) RemoveOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := findOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !order.Mutable() {
		return domain.InvalidTransition(orderID, "cannot remove processed order")
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1
	`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove order: %w", err)
	}

	return nil
}

// AdminOrders lists every order still awaiting fulfillment. Iteration
// order is not guaranteed beyond the store's; callers wanting a stable
// order sort by created_at.
func (s *Service) AdminOrders(ctx context.Context) ([]domain.OrderView, error) {
	statuses := []string{string(domain.OrderStatusPending), string(domain.OrderStatusModified)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total, status, created_at, updated_at
		FROM orders
		WHERE status = ANY($1)
	`, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.OrderView)
	var orderIDs []string

	for rows.Next() {
		var view domain.OrderView
		var updatedAt sql.NullTime
		if err := rows.Scan(&view.OrderID, &view.UserID, &view.Total, &view.Status, &view.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if updatedAt.Valid {
			view.UpdatedAt = &updatedAt.Time
		}
		view.Items = []domain.LineView{}
		orderMap[view.OrderID] = &view
		orderIDs = append(orderIDs, view.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []domain.OrderView{}, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, p.name, p.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.product_id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var line domain.LineView
		if err := itemRows.Scan(&orderID, &line.ProductID, &line.Quantity, &line.ProductName, &line.Price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		orderMap[orderID].Items = append(orderMap[orderID].Items, line)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	orders := make([]domain.OrderView, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (s *Service) publishProcessed(ctx context.Context, order *domain.OrderView) {
	if s.producer == nil {
		return
	}

	event := domain.OrderProcessedEvent{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Timestamp: *order.UpdatedAt,
	}

	if err := s.producer.Publish(ctx, order.OrderID, event); err != nil {
		s.logger.Error("failed to publish order processed event", "error", err, "order_id", order.OrderID)
	}
}

// findOrderForUpdate locks the order row for the rest of the transaction,
// serializing concurrent lifecycle operations on the same order.
func findOrderForUpdate(ctx context.Context, tx *sql.Tx, orderID string) (*domain.Order, error) {
	order := &domain.Order{}
	var updatedAt sql.NullTime

	err := tx.QueryRowContext(ctx, `
		SELECT id, user_id, total, status, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.UserID, &order.Total, &order.Status, &order.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if updatedAt.Valid {
		order.UpdatedAt = &updatedAt.Time
	}

	return order, nil
}

// loadOrderLines renders the order's lines with current catalog names and
// prices, in ascending product-id order to match the stock lock order.
func loadOrderLines(ctx context.Context, q catalog.Querier, orderID string) ([]domain.LineView, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.product_id, oi.quantity, p.name, p.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []domain.LineView
	for rows.Next() {
		var line domain.LineView
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.ProductName, &line.Price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return items, nil
}
