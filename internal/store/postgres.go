package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"pedidos/internal/model"
)

const uniqueViolation = "23505"

// PostgresStore is an OrderStore over the orders table. saved selects
// which of the two collections this instance sees.
type PostgresStore struct {
	db    *sql.DB
	saved bool
}

func NewPostgresStore(db *sql.DB, saved bool) *PostgresStore {
	return &PostgresStore{db: db, saved: saved}
}

const selectColumns = `id, customer_name, items, address, notes, total, created_at_ms, original_message, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scan(row rowScanner) (model.Order, error) {
	var (
		o       model.Order
		items   []byte
		address sql.NullString
		notes   sql.NullString
		status  string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &items, &address, &notes, &o.Total, &o.Timestamp, &o.OriginalMessage, &status); err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("decode items: %w", err)
	}
	o.Address = address.String
	o.Notes = notes.String
	o.Status = model.Status(status)
	o.Saved = s.saved
	return o, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM orders
		WHERE saved = $1
		ORDER BY created_at_ms DESC
	`, s.saved)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Order, error) {
	if !validID(id) {
		return model.Order{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM orders WHERE id = $1 AND saved = $2`, id, s.saved)
	o, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresStore) Append(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, saved, customer_name, items, address, notes, total, created_at_ms, original_message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, s.saved, o.CustomerName, items, nullable(o.Address), nullable(o.Notes), o.Total, o.Timestamp, o.OriginalMessage, string(o.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("append %s: %w", o.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1 AND saved = $2`, id, s.saved)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectOneRow(res, "remove", id)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !validID(id) {
		return fmt.Errorf("update status %s: %w", id, ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND saved = $3`, string(status), id, s.saved)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return expectOneRow(res, "update status", id)
}

func (s *PostgresStore) UpdateFields(ctx context.Context, id string, p model.OrderPatch) (model.Order, error) {
	if !validID(id) {
		return model.Order{}, fmt.Errorf("update fields %s: %w", id, ErrNotFound)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM orders WHERE id = $1 AND saved = $2 FOR UPDATE`, id, s.saved)
	o, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("update fields %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("lock order: %w", err)
	}

	p.Apply(&o)

	items, err := json.Marshal(o.Items)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode items: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET customer_name = $1, items = $2, address = $3, notes = $4, total = $5
		WHERE id = $6
	`, o.CustomerName, items, nullable(o.Address), nullable(o.Notes), o.Total, id)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE saved = $1`, s.saved).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// validID guards the UUID column against cast errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
