package models

import "time"

// OrderRow is the raw order row as stored in the transactional store and
// carried on the change feed. Money fields are integer minor units.
type OrderRow struct {
	ID                string         `db:"id" json:"id"`
	OrderNumber       string         `db:"order_number" json:"order_number"`
	Kind              string         `db:"kind" json:"kind"`
	Status            string         `db:"status" json:"status"`
	PaymentMethod     string         `db:"payment_method" json:"payment_method"`
	Subtotal          int64          `db:"subtotal" json:"subtotal"`
	DeliveryFee       int64          `db:"delivery_fee" json:"delivery_fee"`
	Discount          int64          `db:"discount" json:"discount"`
	Total             int64          `db:"total" json:"total"`
	Address           string         `db:"address" json:"address"`
	CustomerID        string         `db:"customer_id" json:"customer_id"`
	RiderID           *string        `db:"rider_id" json:"rider_id,omitempty"`
	EstimatedDelivery *time.Time     `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	Notes             string         `db:"notes" json:"notes"`
	Items             []OrderItemRow `db:"-" json:"items,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderItemRow is a single line item of an order.
type OrderItemRow struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Available bool   `db:"available" json:"available"`
}

// TransactionRow is a wallet ledger entry row.
type TransactionRow struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Direction   string    `db:"direction" json:"direction"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WalletRow holds the authoritative wallet balance for a user.
type WalletRow struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionRow is an active login session for the account-security view.
type SessionRow struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Device     string     `db:"device" json:"device"`
	Location   string     `db:"location" json:"location"`
	LastActive time.Time  `db:"last_active" json:"last_active"`
	IsCurrent  bool       `db:"is_current" json:"is_current"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// SecurityRow holds per-user security settings.
type SecurityRow struct {
	UserID              string    `db:"user_id" json:"user_id"`
	TwoFactorEnabled    bool      `db:"two_factor_enabled" json:"two_factor_enabled"`
	PasswordChangedAt   time.Time `db:"password_changed_at" json:"password_changed_at"`
	PasswordChangeCount int       `db:"password_change_count" json:"password_change_count"`
}

// OrderView is the normalized, UI-facing order model produced by the mapper.
type OrderView struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"order_number"`
	Kind              OrderKind       `json:"kind"`
	Status            OrderStatus     `json:"status"`
	CustomerStep      int             `json:"customer_step"`
	RiderStatus       RiderStatus     `json:"rider_status"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Subtotal          int64           `json:"subtotal"`
	DeliveryFee       int64           `json:"delivery_fee"`
	Discount          int64           `json:"discount"`
	Total             int64           `json:"total"`
	Address           string          `json:"address"`
	CustomerName      string          `json:"customer_name"`
	CustomerPhone     string          `json:"customer_phone"`
	Landmark          string          `json:"landmark"`
	RiderID           string          `json:"rider_id,omitempty"`
	ETAMinutes        *int            `json:"eta_minutes,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Items             []OrderItemView `json:"items"`
	CreatedAt         time.Time       `json:"created_at"`
}

// OrderItemView is the normalized line item.
type OrderItemView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Available bool   `json:"available"`
}

// TransactionView is the normalized ledger entry.
type TransactionView struct {
	ID          string      `json:"id"`
	Direction   TxDirection `json:"direction"`
	Amount      int64       `json:"amount"`
	Description string      `json:"description"`
	Status      TxStatus    `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// WalletView carries the wallet balance. The balance is only ever replaced
// wholesale from the store's authoritative value, never adjusted locally.
type WalletView struct {
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionView is a login session as shown on the security panel.
type SessionView struct {
	ID         string `json:"id"`
	Device     string `json:"device"`
	Location   string `json:"location"`
	LastActive string `json:"last_active"`
	IsCurrent  bool   `json:"is_current"`
}

// SecurityView is the account-security panel model.
type SecurityView struct {
	TwoFactorEnabled    bool          `json:"two_factor_enabled"`
	Sessions            []SessionView `json:"sessions"`
	PasswordChangedAt   time.Time     `json:"password_changed_at"`
	PasswordChangeCount int           `json:"password_change_count"`
	SessionExpiresAt    *time.Time    `json:"session_expires_at,omitempty"`
}

// BatchOrder is one stop inside a delivery batch, with its 1-based sequence.
type BatchOrder struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Sequence    int         `json:"sequence"`
	Address     string      `json:"address"`
	RiderStatus RiderStatus `json:"rider_status"`
}

// BatchGroup is a zone with two or more active orders grouped into one run.
// Distance and duration are display estimates, not routing output.
type BatchGroup struct {
	ZoneID          string       `json:"zone_id"`
	ZoneLabel       string       `json:"zone_label"`
	Orders          []BatchOrder `json:"orders"`
	DistanceKm      float64      `json:"distance_km"`
	DurationMinutes int          `json:"duration_minutes"`
}

// EarningsSummary is derived purely from the completed-order count.
type EarningsSummary struct {
	DeliveredCount int   `json:"delivered_count"`
	BasePay        int64 `json:"base_pay"`
	BonusPay       int64 `json:"bonus_pay"`
	BonusThreshold int   `json:"bonus_threshold"`
	Total          int64 `json:"total"`
}
