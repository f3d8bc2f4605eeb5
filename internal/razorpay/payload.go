package razorpay

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidPayload = errors.New("invalid_payload")
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrMissingEntity  = errors.New("missing_entity")
)

// Event is the top-level webhook envelope sent by Razorpay.
type Event struct {
	Entity    string       `json:"entity"`
	AccountID string       `json:"account_id"`
	Name      string       `json:"event"`
	Contains  []string     `json:"contains"`
	CreatedAt int64        `json:"created_at"`
	Payload   EventPayload `json:"payload"`
}

type EventPayload struct {
	Payment      *PaymentWrapper      `json:"payment"`
	Order        *OrderWrapper        `json:"order"`
	Refund       *RefundWrapper       `json:"refund"`
	Subscription *SubscriptionWrapper `json:"subscription"`
}

type PaymentWrapper struct {
	Entity *PaymentEntity `json:"entity"`
}

type OrderWrapper struct {
	Entity *OrderEntity `json:"entity"`
}

type RefundWrapper struct {
	Entity *RefundEntity `json:"entity"`
}

type SubscriptionWrapper struct {
	Entity *SubscriptionEntity `json:"entity"`
}

// PaymentEntity is the provider payment object nested inside payment-family
// events. Amount is in currency minor units (paise).
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	InvoiceID        string `json:"invoice_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	Description      string `json:"description"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Notes            Notes  `json:"notes"`
	CreatedAt        int64  `json:"created_at"`
}

type OrderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

type SubscriptionEntity struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	Quantity   int    `json:"quantity"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

// Notes is the provider's free-form key/value bag. Razorpay serializes an
// empty bag as [] instead of {}, so unmarshalling must accept both.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, "[") {
		*n = nil
		return nil
	}

	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Notes, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	*n = out
	return nil
}

// Get returns the first non-empty note among the given keys.
func (n Notes) Get(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(n[key]); v != "" {
			return v
		}
	}
	return ""
}

// ParseEvent decodes a webhook body into the typed envelope.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(event.Name) == "" {
		return nil, ErrInvalidEvent
	}
	return &event, nil
}

// Payment returns the nested payment entity, or ErrMissingEntity.
func (e *Event) Payment() (*PaymentEntity, error) {
	if e == nil || e.Payload.Payment == nil || e.Payload.Payment.Entity == nil {
		return nil, ErrMissingEntity
	}
	if strings.TrimSpace(e.Payload.Payment.Entity.ID) == "" {
		return nil, ErrMissingEntity
	}
	return e.Payload.Payment.Entity, nil
}

// Order returns the nested order entity, or ErrMissingEntity.
func (e *Event) Order() (*OrderEntity, error) {
	if e == nil || e.Payload.Order == nil || e.Payload.Order.Entity == nil {
		return nil, ErrMissingEntity
	}
	if strings.TrimSpace(e.Payload.Order.Entity.ID) == "" {
		return nil, ErrMissingEntity
	}
	return e.Payload.Order.Entity, nil
}

// Refund returns the nested refund entity, or ErrMissingEntity.
func (e *Event) Refund() (*RefundEntity, error) {
	if e == nil || e.Payload.Refund == nil || e.Payload.Refund.Entity == nil {
		return nil, ErrMissingEntity
	}
	if strings.TrimSpace(e.Payload.Refund.Entity.ID) == "" {
		return nil, ErrMissingEntity
	}
	return e.Payload.Refund.Entity, nil
}

// Subscription returns the nested subscription entity, or ErrMissingEntity.
func (e *Event) Subscription() (*SubscriptionEntity, error) {
	if e == nil || e.Payload.Subscription == nil || e.Payload.Subscription.Entity == nil {
		return nil, ErrMissingEntity
	}
	if strings.TrimSpace(e.Payload.Subscription.Entity.ID) == "" {
		return nil, ErrMissingEntity
	}
	return e.Payload.Subscription.Entity, nil
}

// Fingerprint identifies a delivery for the webhook event log. Razorpay does
// not send a stable event id on every event family, so the fingerprint falls
// back to event name + primary entity id.
func (e *Event) Fingerprint() string {
	if e == nil {
		return ""
	}
	id := ""
	switch {
	case e.Payload.Payment != nil && e.Payload.Payment.Entity != nil:
		id = e.Payload.Payment.Entity.ID
	case e.Payload.Refund != nil && e.Payload.Refund.Entity != nil:
		id = e.Payload.Refund.Entity.ID
	case e.Payload.Order != nil && e.Payload.Order.Entity != nil:
		id = e.Payload.Order.Entity.ID
	case e.Payload.Subscription != nil && e.Payload.Subscription.Entity != nil:
		id = e.Payload.Subscription.Entity.ID
	}
	return e.Name + ":" + id
}
