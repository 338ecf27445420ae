package event

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates the membership lifecycle events published to the broker
type Type string

const (
	TypeSubscriptionCreated   Type = "subscription.created"
	TypeSubscriptionCancelled Type = "subscription.cancelled"
	TypePaymentSettled        Type = "payment.settled"
	TypeMemberCheckedIn       Type = "member.checked_in"
)

// MembershipEvent is the JSON envelope consumed by downstream services
// (billing reminders, the front-desk display, etc.)
type MembershipEvent struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	OccurredAt     time.Time `json:"occurredAt"`
	MemberID       int64     `json:"memberId,omitempty"`
	SubscriptionID int64     `json:"subscriptionId,omitempty"`
	PaymentID      int64     `json:"paymentId,omitempty"`
	Status         string    `json:"status,omitempty"`
}

// New returns an event envelope with the id and timestamp populated
func New(t Type) MembershipEvent {
	return MembershipEvent{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// Producer defines a producer sending membership events via message broker
type Producer interface {
	Close()
	PublishMembershipEvent(ev MembershipEvent) error
}

type discard struct{}

func (discard) Close() {}

func (discard) PublishMembershipEvent(MembershipEvent) error { return nil }

// Discard returns a Producer that drops every event, for development and tests
func Discard() Producer {
	return discard{}
}
