package engine

import (
	"time"

	"live-sync/internal/models"
)

// Bundled demo data shown while a scope has no live rows. IDs carry a
// "demo-" prefix so they can never collide with store rows.

func demoOrders(key Key, now time.Time) []models.OrderRow {
	rider := "demo-rider"
	eta := now.Add(18 * time.Minute)

	orders := []models.OrderRow{
		{
			ID:                "demo-ord-1",
			OrderNumber:       "ORD-1042",
			Kind:              "food",
			Status:            "out_for_delivery",
			PaymentMethod:     "upi",
			Subtotal:          24000,
			DeliveryFee:       2000,
			Discount:          1000,
			Total:             25000,
			Address:           "Room 214, Nehru Hall",
			CustomerID:        key.Identity,
			RiderID:           &rider,
			EstimatedDelivery: &eta,
			Notes:             "name: Demo Customer; landmark: near the mess gate",
			Items: []models.OrderItemRow{
				{ID: "demo-item-1", OrderID: "demo-ord-1", Name: "Veg Thali", Quantity: 1, UnitPrice: 12000, Available: true},
				{ID: "demo-item-2", OrderID: "demo-ord-1", Name: "Masala Dosa", Quantity: 2, UnitPrice: 6000, Available: true},
			},
			CreatedAt: now.Add(-25 * time.Minute),
			UpdatedAt: now.Add(-2 * time.Minute),
		},
		{
			ID:            "demo-ord-2",
			OrderNumber:   "ORD-1043",
			Kind:          "store",
			Status:        "preparing",
			PaymentMethod: "cash",
			Subtotal:      8000,
			DeliveryFee:   1500,
			Total:         9500,
			Address:       "Room 310, Nehru Hall",
			CustomerID:    key.Identity,
			RiderID:       &rider,
			Notes:         "name: Demo Customer",
			Items: []models.OrderItemRow{
				{ID: "demo-item-3", OrderID: "demo-ord-2", Name: "Notebook Pack", Quantity: 1, UnitPrice: 8000, Available: true},
			},
			CreatedAt: now.Add(-12 * time.Minute),
			UpdatedAt: now.Add(-5 * time.Minute),
		},
		{
			ID:            "demo-ord-3",
			OrderNumber:   "ORD-1038",
			Kind:          "food",
			Status:        "delivered",
			PaymentMethod: "wallet",
			Subtotal:      15000,
			DeliveryFee:   2000,
			Total:         17000,
			Address:       "Room 12, Azad Hall",
			CustomerID:    key.Identity,
			RiderID:       &rider,
			Items: []models.OrderItemRow{
				{ID: "demo-item-4", OrderID: "demo-ord-3", Name: "Chicken Biryani", Quantity: 1, UnitPrice: 15000, Available: true},
			},
			CreatedAt: now.Add(-3 * time.Hour),
			UpdatedAt: now.Add(-2 * time.Hour),
		},
	}

	if key.Kind == ViewRider {
		for i := range orders {
			orders[i].RiderID = &rider
		}
	}
	return orders
}

func demoTransactions(identity string, now time.Time) []models.TransactionRow {
	return []models.TransactionRow{
		{
			ID:          "demo-tx-1",
			UserID:      identity,
			Direction:   "credit",
			Amount:      50000,
			Description: "Wallet top-up",
			Status:      "completed",
			CreatedAt:   now.Add(-48 * time.Hour),
		},
		{
			ID:          "demo-tx-2",
			UserID:      identity,
			Direction:   "debit",
			Amount:      17000,
			Description: "Order ORD-1038",
			Status:      "completed",
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			ID:          "demo-tx-3",
			UserID:      identity,
			Direction:   "refund",
			Amount:      9500,
			Description: "Refund for ORD-1021",
			Status:      "pending",
			CreatedAt:   now.Add(-30 * time.Minute),
		},
	}
}

func demoWallet(identity string, now time.Time) models.WalletRow {
	return models.WalletRow{
		UserID:    identity,
		Balance:   33000,
		UpdatedAt: now.Add(-2 * time.Hour),
	}
}

func demoSecurity(identity string, now time.Time) (models.SecurityRow, []models.SessionRow) {
	profile := models.SecurityRow{
		UserID:              identity,
		TwoFactorEnabled:    false,
		PasswordChangedAt:   now.Add(-40 * 24 * time.Hour),
		PasswordChangeCount: 2,
	}
	sessions := []models.SessionRow{
		{
			ID:         "demo-sess-1",
			UserID:     identity,
			Device:     "Chrome on Windows",
			Location:   "Campus Network",
			LastActive: now.Add(-1 * time.Minute),
			IsCurrent:  true,
		},
		{
			ID:         "demo-sess-2",
			UserID:     identity,
			Device:     "Android App",
			Location:   "Hostel Wi-Fi",
			LastActive: now.Add(-26 * time.Hour),
			IsCurrent:  false,
		},
	}
	return profile, sessions
}
