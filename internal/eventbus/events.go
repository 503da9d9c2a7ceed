package eventbus

import "time"

// RechargeCompleted fires when a PIX/recharge payment settles in this
// session. Amount is in centavos.
type RechargeCompleted struct {
	AccountID string
	Amount    int64
	Method    string
}

// PlanPurchaseCompleted fires when a panel plan is bought.
type PlanPurchaseCompleted struct {
	AccountID string
	PlanID    string
	Amount    int64
}

// CommissionEarned fires when a referral commission lands on the account.
type CommissionEarned struct {
	AccountID string
	Referred  string
	Amount    int64
}

// SessionKicked signals that upstream rejected our token because the account
// logged in elsewhere. Deadline is when the local sign-out fires.
type SessionKicked struct {
	AccountID string
	Device    string
	Location  string
	Deadline  time.Time
}

// SignedOut signals that the local session was invalidated.
type SignedOut struct {
	AccountID string
	Reason    string
}
