package models

// OrderStatus is the source status vocabulary used by the transactional store.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// ParseOrderStatus maps a raw status string onto the source enum. Unknown
// strings map to pending rather than failing the row.
func ParseOrderStatus(raw string) OrderStatus {
	switch OrderStatus(raw) {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return OrderStatus(raw)
	default:
		return StatusPending
	}
}

// IsTerminal reports whether no further transitions follow this status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// customerSteps is the 6-step customer-facing progress model. Cancelled is
// not a step; it is rendered as a terminal error state (step 0).
var customerSteps = map[OrderStatus]int{
	StatusPending:        1,
	StatusConfirmed:      2,
	StatusPreparing:      3,
	StatusReady:          4,
	StatusOutForDelivery: 5,
	StatusDelivered:      6,
}

// CustomerStep returns the 1-based progress step for the customer tracking
// view, or 0 for cancelled orders.
func (s OrderStatus) CustomerStep() int {
	return customerSteps[s]
}

// RiderStatus is the rider dashboard's collapsed 3-state vocabulary. It is a
// separate table from the customer steps and must not be derived from it:
// the two views intentionally collapse different source states together.
type RiderStatus string

const (
	RiderPreparing      RiderStatus = "preparing"
	RiderOutForDelivery RiderStatus = "out_for_delivery"
	RiderCompleted      RiderStatus = "completed"
)

var riderStatuses = map[OrderStatus]RiderStatus{
	StatusPending:        RiderPreparing,
	StatusConfirmed:      RiderPreparing,
	StatusPreparing:      RiderPreparing,
	StatusReady:          RiderPreparing,
	StatusOutForDelivery: RiderOutForDelivery,
	StatusDelivered:      RiderCompleted,
	StatusCancelled:      RiderCompleted,
}

// RiderStatus collapses the source status into the rider's 3-state model.
func (s OrderStatus) RiderStatus() RiderStatus {
	if rs, ok := riderStatuses[s]; ok {
		return rs
	}
	return RiderPreparing
}

// OrderKind distinguishes food orders from store orders.
type OrderKind string

const (
	KindFood  OrderKind = "food"
	KindStore OrderKind = "store"
)

// ParseOrderKind defaults unknown kinds to food.
func ParseOrderKind(raw string) OrderKind {
	if OrderKind(raw) == KindStore {
		return KindStore
	}
	return KindFood
}

// PaymentMethod is the normalized payment vocabulary.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentUPI    PaymentMethod = "upi"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentOther  PaymentMethod = "other"
)

var paymentMethods = map[string]PaymentMethod{
	"cash":             PaymentCash,
	"cod":              PaymentCash,
	"cash_on_delivery": PaymentCash,
	"upi":              PaymentUPI,
	"card":             PaymentCard,
	"credit_card":      PaymentCard,
	"debit_card":       PaymentCard,
	"wallet":           PaymentWallet,
}

// ParsePaymentMethod normalizes the store-side payment vocabulary.
func ParsePaymentMethod(raw string) PaymentMethod {
	if pm, ok := paymentMethods[raw]; ok {
		return pm
	}
	return PaymentOther
}

// TxDirection is the ledger entry direction.
type TxDirection string

const (
	TxCredit TxDirection = "credit"
	TxDebit  TxDirection = "debit"
	TxRefund TxDirection = "refund"
)

// ParseTxDirection defaults unknown directions to debit.
func ParseTxDirection(raw string) TxDirection {
	switch TxDirection(raw) {
	case TxCredit, TxDebit, TxRefund:
		return TxDirection(raw)
	default:
		return TxDebit
	}
}

// TxStatus is the ledger entry settlement status.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// ParseTxStatus defaults unknown statuses to pending.
func ParseTxStatus(raw string) TxStatus {
	switch TxStatus(raw) {
	case TxPending, TxCompleted, TxFailed:
		return TxStatus(raw)
	default:
		return TxPending
	}
}
