package aggregate

import (
	"math"

	"live-sync/internal/models"
)

// LedgerTotals are filtered sums over the full transaction list.
type LedgerTotals struct {
	Credits  int64 `json:"credits"`
	Debits   int64 `json:"debits"`
	Refunds  int64 `json:"refunds"`
	Pending  int   `json:"pending"`
	Cashback int64 `json:"cashback"`
}

// Ledger recomputes the wallet view sums from the full transaction list.
// Cashback is a fixed rate applied to completed credit volume.
func Ledger(txs []models.TransactionView, cashbackRate float64) LedgerTotals {
	var t LedgerTotals
	var creditVolume int64
	for _, tx := range txs {
		if tx.Status == models.TxPending {
			t.Pending++
		}
		if tx.Status != models.TxCompleted {
			continue
		}
		switch tx.Direction {
		case models.TxCredit:
			t.Credits += tx.Amount
			creditVolume += tx.Amount
		case models.TxDebit:
			t.Debits += tx.Amount
		case models.TxRefund:
			t.Refunds += tx.Amount
		}
	}
	t.Cashback = int64(math.Round(cashbackRate * float64(creditVolume)))
	return t
}
