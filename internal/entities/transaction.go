package entities

import "time"

// TransactionKind is the closed set of ledger entry types the dashboard lists.
type TransactionKind string

const (
	TransactionRecharge     TransactionKind = "recharge"
	TransactionCommission   TransactionKind = "commission"
	TransactionPlanPurchase TransactionKind = "plan_purchase"
	TransactionModuleQuery  TransactionKind = "module_query"
	TransactionRefund       TransactionKind = "refund"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionRecharge, TransactionCommission, TransactionPlanPurchase,
		TransactionModuleQuery, TransactionRefund:
		return true
	}
	return false
}

// Transaction is a read-only projection of a ledger entry fetched from the
// wallet service. The gateway never writes these back; amounts are centavos.
type Transaction struct {
	ID            string          `json:"id" db:"id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Kind          TransactionKind `json:"kind" db:"kind"`
	Amount        int64           `json:"amount" db:"amount"`
	Description   string          `json:"description" db:"description"`
	RelatedUser   string          `json:"related_user,omitempty" db:"related_user"`
	PaymentMethod string          `json:"payment_method,omitempty" db:"payment_method"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
