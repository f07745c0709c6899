// Package mapper converts raw store rows into normalized view models. All
// functions are pure: they take the row and a clock value, and never fail.
// Malformed or missing optional fields are replaced with safe defaults.
package mapper

import (
	"fmt"
	"math"
	"strings"
	"time"

	"live-sync/internal/models"
)

const (
	defaultCustomerName = "Customer"
	defaultItemName     = "Item"
)

// OrderView maps a raw order row to the normalized view model. The same
// view carries both collapsed status vocabularies: the 6-step customer
// progress and the rider's 3-state model.
func OrderView(row models.OrderRow, now time.Time) models.OrderView {
	status := models.ParseOrderStatus(row.Status)
	notes := ParseNotes(row.Notes)

	name := notes["name"]
	if name == "" {
		name = defaultCustomerName
	}

	riderID := ""
	if row.RiderID != nil {
		riderID = *row.RiderID
	}

	items := make([]models.OrderItemView, 0, len(row.Items))
	for _, it := range row.Items {
		items = append(items, OrderItemView(it))
	}

	return models.OrderView{
		ID:                row.ID,
		OrderNumber:       row.OrderNumber,
		Kind:              models.ParseOrderKind(row.Kind),
		Status:            status,
		CustomerStep:      status.CustomerStep(),
		RiderStatus:       status.RiderStatus(),
		PaymentMethod:     models.ParsePaymentMethod(row.PaymentMethod),
		Subtotal:          row.Subtotal,
		DeliveryFee:       row.DeliveryFee,
		Discount:          row.Discount,
		Total:             row.Total,
		Address:           row.Address,
		CustomerName:      name,
		CustomerPhone:     notes["phone"],
		Landmark:          notes["landmark"],
		RiderID:           riderID,
		ETAMinutes:        ETAMinutes(row.EstimatedDelivery, now),
		EstimatedDelivery: row.EstimatedDelivery,
		Items:             items,
		CreatedAt:         row.CreatedAt,
	}
}

// OrderItemView maps a line item, defaulting a missing name.
func OrderItemView(row models.OrderItemRow) models.OrderItemView {
	name := row.Name
	if name == "" {
		name = defaultItemName
	}
	return models.OrderItemView{
		ID:        row.ID,
		Name:      name,
		Quantity:  row.Quantity,
		UnitPrice: row.UnitPrice,
		Available: row.Available,
	}
}

// ETAMinutes computes the minutes-to-delivery estimate, clamped at zero, or
// nil when the row carries no estimate.
func ETAMinutes(estimated *time.Time, now time.Time) *int {
	if estimated == nil {
		return nil
	}
	mins := int(math.Round(estimated.Sub(now).Minutes()))
	if mins < 0 {
		mins = 0
	}
	return &mins
}

// ParseNotes recovers structured sub-fields from the free-form notes blob.
// The blob holds "key: value" pairs separated by newlines or semicolons.
// Absent keys and unparsable fragments are silently dropped; callers get an
// empty string for anything missing.
func ParseNotes(notes string) map[string]string {
	fields := map[string]string{}
	if notes == "" {
		return fields
	}
	split := func(r rune) bool { return r == '\n' || r == ';' }
	for _, part := range strings.FieldsFunc(notes, split) {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			fields[key] = value
		}
	}
	return fields
}

// TransactionView maps a ledger entry row.
func TransactionView(row models.TransactionRow) models.TransactionView {
	return models.TransactionView{
		ID:          row.ID,
		Direction:   models.ParseTxDirection(row.Direction),
		Amount:      row.Amount,
		Description: row.Description,
		Status:      models.ParseTxStatus(row.Status),
		CreatedAt:   row.CreatedAt,
	}
}

// WalletView maps the wallet row. The balance is taken as-is from the store.
func WalletView(row models.WalletRow) models.WalletView {
	return models.WalletView{
		Balance:   row.Balance,
		UpdatedAt: row.UpdatedAt,
	}
}

// SessionView maps a login session, rendering last-active as relative time.
func SessionView(row models.SessionRow, now time.Time) models.SessionView {
	return models.SessionView{
		ID:         row.ID,
		Device:     row.Device,
		Location:   row.Location,
		LastActive: RelativeTime(row.LastActive, now),
		IsCurrent:  row.IsCurrent,
	}
}

// SecurityView maps the security settings plus the current session list.
func SecurityView(row models.SecurityRow, sessions []models.SessionRow, now time.Time) models.SecurityView {
	views := make([]models.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView(s, now))
	}
	return models.SecurityView{
		TwoFactorEnabled:    row.TwoFactorEnabled,
		Sessions:            views,
		PasswordChangedAt:   row.PasswordChangedAt,
		PasswordChangeCount: row.PasswordChangeCount,
	}
}

// RelativeTime renders a timestamp as a coarse "time ago" label.
func RelativeTime(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
