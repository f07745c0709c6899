package store

import (
	"context"
	"database/sql"
	"time"

	"live-sync/internal/models"

	"github.com/jmoiron/sqlx"
)

// OrdersByCustomer retrieves a customer's orders, newest first, items filled.
func (s *Store) OrdersByCustomer(ctx context.Context, customerID string) ([]models.OrderRow, error) {
	var orders []models.OrderRow
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	if err != nil {
		return nil, err
	}
	return s.fillItems(ctx, orders)
}

// OrdersByRider retrieves the orders assigned to a rider, newest first,
// items filled.
func (s *Store) OrdersByRider(ctx context.Context, riderID string) ([]models.OrderRow, error) {
	var orders []models.OrderRow
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE rider_id = $1 ORDER BY created_at DESC", riderID)
	if err != nil {
		return nil, err
	}
	return s.fillItems(ctx, orders)
}

// fillItems attaches line items to each order in one query.
func (s *Store) fillItems(ctx context.Context, orders []models.OrderRow) ([]models.OrderRow, error) {
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItemRow
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	byOrder := make(map[string][]models.OrderItemRow, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

// TransactionsByUser retrieves a user's ledger entries, newest first.
func (s *Store) TransactionsByUser(ctx context.Context, userID string) ([]models.TransactionRow, error) {
	var txs []models.TransactionRow
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return txs, err
}

// WalletByUser retrieves a user's wallet, or nil when none exists yet.
func (s *Store) WalletByUser(ctx context.Context, userID string) (*models.WalletRow, error) {
	var wallet models.WalletRow
	err := s.db.GetContext(ctx, &wallet, "SELECT * FROM wallets WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SessionsByUser retrieves a user's active login sessions, current first.
func (s *Store) SessionsByUser(ctx context.Context, userID string) ([]models.SessionRow, error) {
	var sessions []models.SessionRow
	err := s.db.SelectContext(ctx, &sessions,
		"SELECT * FROM sessions WHERE user_id = $1 ORDER BY is_current DESC, last_active DESC", userID)
	return sessions, err
}

// SecurityByUser retrieves a user's security settings, or nil when absent.
func (s *Store) SecurityByUser(ctx context.Context, userID string) (*models.SecurityRow, error) {
	var sec models.SecurityRow
	err := s.db.GetContext(ctx, &sec,
		"SELECT * FROM security_profiles WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// SessionExpiry returns the expiry timestamp of the user's current session,
// or nil when no current session has an expiry.
func (s *Store) SessionExpiry(ctx context.Context, userID string) (*time.Time, error) {
	var expiry sql.NullTime
	err := s.db.GetContext(ctx, &expiry,
		"SELECT expires_at FROM sessions WHERE user_id = $1 AND is_current = true LIMIT 1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !expiry.Valid {
		return nil, nil
	}
	return &expiry.Time, nil
}
