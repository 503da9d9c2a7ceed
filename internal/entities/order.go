package entities

import (
	"fmt"
	"time"
)

// OrderKind identifies the document-generation product an order was placed for.
type OrderKind string

const (
	OrderKindPDFRG    OrderKind = "pdf_rg"
	OrderKindQRCodeRG OrderKind = "qrcode_rg"
)

func (k OrderKind) Valid() bool {
	switch k {
	case OrderKindPDFRG, OrderKindQRCodeRG:
		return true
	}
	return false
}

// OrderStatus is one stage of the fixed document-production pipeline.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusDelivered:
		return true
	}
	return false
}

// Order is a tracked document-generation request. The gateway never invents
// transitions: status advances only when upstream reports one or an admin
// command is forwarded and acknowledged.
type Order struct {
	ID          string                     `json:"id" db:"id"`
	AccountID   string                     `json:"account_id" db:"account_id"`
	Kind        OrderKind                  `json:"kind" db:"kind"`
	DocumentNo  string                     `json:"document_number" db:"document_number"`
	Requester   string                     `json:"requester" db:"requester"`
	Status      OrderStatus                `json:"status" db:"status"`
	StatusTimes map[OrderStatus]*time.Time `json:"status_times" db:"-"`
	AmountPaid  int64                      `json:"amount_paid" db:"amount_paid"`
	Artifact    string                     `json:"artifact,omitempty" db:"artifact"`
	CreatedAt   time.Time                  `json:"created_at" db:"created_at"`
}

// ReachedAt returns when the order entered the given stage, nil if it never did.
func (o *Order) ReachedAt(s OrderStatus) *time.Time {
	if o.StatusTimes == nil {
		return nil
	}
	return o.StatusTimes[s]
}

// MarkReached records the stage entry timestamp once. A stage timestamp is
// never overwritten, matching the append-only history reported upstream.
func (o *Order) MarkReached(s OrderStatus, at time.Time) {
	if o.StatusTimes == nil {
		o.StatusTimes = make(map[OrderStatus]*time.Time)
	}
	if o.StatusTimes[s] == nil {
		t := at
		o.StatusTimes[s] = &t
	}
}

// ErrStatusRegression is returned when a transition would move an order to an
// earlier pipeline position.
type ErrStatusRegression struct {
	From, To OrderStatus
}

func (e *ErrStatusRegression) Error() string {
	return fmt.Sprintf("order status cannot regress from %q to %q", e.From, e.To)
}
