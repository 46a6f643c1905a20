package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"payfort-gateway/internal/core/domain"
)

// orderNumberOffset keeps order numbers visually distinct from raw basket
// ids, matching the storefront's numbering scheme.
const orderNumberOffset = 100000

// Repository implements the BasketRepository, ResponseRecorder and
// OrderPlacer ports on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository instance and verifies the
// connection actually works.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return &Repository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// BasketByID loads a basket with its lines.
func (r *Repository) BasketByID(ctx context.Context, id int64) (*domain.Basket, error) {
	const basketSQL = `
		SELECT id, owner_id, owner_email, owner_name, status, total, currency
		FROM baskets
		WHERE id = $1
	`
	var (
		basket   domain.Basket
		totalRaw string
	)
	err := r.pool.QueryRow(ctx, basketSQL, id).Scan(
		&basket.ID,
		&basket.OwnerID,
		&basket.OwnerEmail,
		&basket.OwnerName,
		&basket.Status,
		&totalRaw,
		&basket.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: basket %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load basket %d: %w", id, err)
	}
	basket.Total, err = decimal.NewFromString(totalRaw)
	if err != nil {
		return nil, fmt.Errorf("basket %d has an unreadable total: %w", id, err)
	}

	const linesSQL = `
		SELECT quantity, currency, course_id, parent_course_id, title, parent_title
		FROM basket_lines
		WHERE basket_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, linesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines for basket %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.BasketLine
		if err := rows.Scan(
			&line.Quantity,
			&line.Currency,
			&line.CourseID,
			&line.ParentCourseID,
			&line.Title,
			&line.ParentTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line for basket %d: %w", id, err)
		}
		basket.Lines = append(basket.Lines, line)
	}
	return &basket, rows.Err()
}

// Record appends a processor response to the audit log. Records are
// insert-only; nothing ever updates or deletes them.
func (r *Repository) Record(ctx context.Context, rec domain.ProcessorResponse) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal processor response payload: %w", err)
	}

	const sql = `
		INSERT INTO processor_responses
		    (id, endpoint, transaction_id, basket_id, payload, created_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, sql,
		rec.ID,
		rec.Endpoint,
		rec.TransactionID,
		rec.BasketID,
		payload,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record processor response: %w", err)
	}
	return nil
}

// ResponsesByBasket returns the audit trail for one basket, newest first.
func (r *Repository) ResponsesByBasket(ctx context.Context, basketID int64) ([]domain.ProcessorResponse, error) {
	const sql = `
		SELECT id, endpoint, transaction_id, basket_id, payload, created_at
		FROM processor_responses
		WHERE basket_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, sql, basketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses for basket %d: %w", basketID, err)
	}
	defer rows.Close()

	var records []domain.ProcessorResponse
	for rows.Next() {
		var (
			rec        domain.ProcessorResponse
			payloadRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.TransactionID, &rec.BasketID, &payloadRaw, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response for basket %d: %w", basketID, err)
		}
		if err := json.Unmarshal(payloadRaw, &rec.Payload); err != nil {
			return nil, fmt.Errorf("response %s has an unreadable payload: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PlaceOrder finalizes a paid basket inside one transaction. The row lock on
// the basket makes the status check and the order creation atomic with
// respect to a concurrent notification for the same basket: the second
// caller blocks on the lock, then sees Submitted and backs off with
// domain.ErrAlreadySubmitted.
func (r *Repository) PlaceOrder(ctx context.Context, basketID int64, transactionID, recordID string, payload domain.CallbackPayload) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		status   domain.BasketStatus
		totalRaw string
		currency string
	)
	err = tx.QueryRow(ctx,
		`SELECT status, total, currency FROM baskets WHERE id = $1 FOR UPDATE`,
		basketID,
	).Scan(&status, &totalRaw, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: basket %d", domain.ErrNotFound, basketID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock basket %d: %w", basketID, err)
	}
	if status == domain.BasketSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}

	total, err := decimal.NewFromString(totalRaw)
	if err != nil {
		return nil, fmt.Errorf("basket %d has an unreadable total: %w", basketID, err)
	}

	placedAt := time.Now().UTC()

	// Payment handling and order creation live in the same transaction so a
	// partial failure never leaves an order half-created.
	_, err = tx.Exec(ctx, `
		INSERT INTO payments (basket_id, transaction_id, response_record_id, amount, currency, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		basketID, transactionID, recordID, payload["amount"], currency, placedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store payment for basket %d: %w", basketID, err)
	}

	order := domain.Order{
		Number:   orderNumber(basketID),
		BasketID: basketID,
		Total:    total,
		Currency: currency,
		PlacedAt: placedAt,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (number, basket_id, total, currency, placed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		order.Number, order.BasketID, order.Total.String(), order.Currency, order.PlacedAt,
	).Scan(&order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create order for basket %d: %w", basketID, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE baskets SET status = $1 WHERE id = $2`,
		domain.BasketSubmitted, basketID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to submit basket %d: %w", basketID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order for basket %d: %w", basketID, err)
	}
	return &order, nil
}

// OrderByBasket returns the order created for a submitted basket.
func (r *Repository) OrderByBasket(ctx context.Context, basketID int64) (*domain.Order, error) {
	const sql = `
		SELECT id, number, basket_id, total, currency, placed_at
		FROM orders
		WHERE basket_id = $1
	`
	var (
		order    domain.Order
		totalRaw string
	)
	err := r.pool.QueryRow(ctx, sql, basketID).Scan(
		&order.ID,
		&order.Number,
		&order.BasketID,
		&totalRaw,
		&order.Currency,
		&order.PlacedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order for basket %d", domain.ErrNotFound, basketID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order for basket %d: %w", basketID, err)
	}
	order.Total, err = decimal.NewFromString(totalRaw)
	if err != nil {
		return nil, fmt.Errorf("order for basket %d has an unreadable total: %w", basketID, err)
	}
	return &order, nil
}

func orderNumber(basketID int64) string {
	return "EDX-" + strconv.FormatInt(orderNumberOffset+basketID, 10)
}
