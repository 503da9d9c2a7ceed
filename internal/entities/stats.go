package entities

// Counter names one dashboard aggregate. The set is closed; the optimistic
// updater routes events to counters by these keys.
type Counter string

const (
	CounterCashBalance     Counter = "cash_balance"
	CounterRechargeTotal   Counter = "recharge_total"
	CounterCommissionTotal Counter = "commission_total"
	CounterPlanSales       Counter = "plan_sales"
)

// Counters returns every known counter in display order.
func Counters() []Counter {
	return []Counter{
		CounterCashBalance,
		CounterRechargeTotal,
		CounterCommissionTotal,
		CounterPlanSales,
	}
}

// Stats maps counter names to centavo values.
type Stats map[Counter]int64

// Clone returns an independent copy so callers can't mutate shared state.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
