package domain

import (
	"encoding/json"
	"strings"
)

// OrderStatus values are persisted; do not renumber.
type OrderStatus int16

const (
	StatusPendingPayment OrderStatus = 0
	StatusPaid           OrderStatus = 1
	StatusCompleted      OrderStatus = 2
	StatusCancelled      OrderStatus = 3
	StatusRefunded       OrderStatus = 4
)

var statusNames = map[OrderStatus]string{
	StatusPendingPayment: "PENDING_PAYMENT",
	StatusPaid:           "PAID",
	StatusCompleted:      "COMPLETED",
	StatusCancelled:      "CANCELLED",
	StatusRefunded:       "REFUNDED",
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func ParseStatus(raw string) (OrderStatus, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for status, name := range statusNames {
		if name == raw {
			return status, true
		}
	}
	return 0, false
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusCompleted, StatusRefunded},
	StatusCompleted:      {StatusRefunded},
}

// CanTransition reports whether an order may move from current to target.
// CANCELLED and REFUNDED have no outgoing transitions.
func CanTransition(current, target OrderStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) CanPay() bool { return s == StatusPendingPayment }

func (s OrderStatus) CanCancel() bool { return s == StatusPendingPayment }

func (s OrderStatus) CanComplete() bool { return s == StatusPaid }

func (s OrderStatus) CanRefund() bool { return s == StatusPaid || s == StatusCompleted }

func (s OrderStatus) IsTerminal() bool { return s == StatusCancelled || s == StatusRefunded }
