package razorpay

import "strings"

// EventKind is the closed set of internal handlers a provider event maps to.
type EventKind string

const (
	KindPaymentAuthorized   EventKind = "payment_authorized"
	KindPaymentCaptured     EventKind = "payment_captured"
	KindPaymentFailed       EventKind = "payment_failed"
	KindRefund              EventKind = "refund"
	KindOrderPaid           EventKind = "order_paid"
	KindSubscriptionCharged EventKind = "subscription_charged"

	// KindSubscriptionNotice covers lifecycle notices that carry no money
	// movement and are acknowledged without a ledger mutation.
	KindSubscriptionNotice EventKind = "subscription_notice"

	// KindUnknown acknowledges any event name outside the dispatch table.
	KindUnknown EventKind = "unknown"
)

// dispatch is the single source of truth for which provider events move
// money. Adding a new event type is a one-line edit here.
var dispatch = map[string]EventKind{
	"payment.authorized":     KindPaymentAuthorized,
	"payment.captured":       KindPaymentCaptured,
	"payment.failed":         KindPaymentFailed,
	"refund.created":         KindRefund,
	"refund.processed":       KindRefund,
	"order.paid":             KindOrderPaid,
	"subscription.charged":   KindSubscriptionCharged,
	"subscription.completed": KindSubscriptionNotice,
	"subscription.halted":    KindSubscriptionNotice,
	"subscription.cancelled": KindSubscriptionNotice,
}

// Classify maps a provider event name to its internal handler kind.
func Classify(eventName string) EventKind {
	if kind, ok := dispatch[strings.TrimSpace(eventName)]; ok {
		return kind
	}
	return KindUnknown
}

// MovesMoney reports whether the kind mutates the transaction ledger.
func (k EventKind) MovesMoney() bool {
	switch k {
	case KindPaymentAuthorized, KindPaymentCaptured, KindPaymentFailed,
		KindRefund, KindOrderPaid, KindSubscriptionCharged:
		return true
	default:
		return false
	}
}
