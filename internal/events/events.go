// Package events is the notification sink of the ledger. Publishing is
// fire-and-forget: sinks must never fail an operation that has already
// committed, and no delivery or ordering guarantee is offered beyond
// "emitted after the corresponding state mutation commits".
package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics emitted by the ledger.
const (
	TopicAgreementCreated      = "agreement_created"
	TopicAgreementStatusChange = "agreement_status_changed"
	TopicRentPaid              = "rent_paid"
	TopicRegistryInitialized   = "registry_initialized"
	TopicPropertyRegistered    = "property_registered"
	TopicPropertyVerified      = "property_verified"
	TopicObligationMinted      = "obligation_minted"
	TopicObligationTransferred = "obligation_transferred"
)

// Publisher delivers a structured event to whoever is listening.
type Publisher interface {
	Publish(topic string, payload any)
}

// AgreementCreated is emitted once per successful agreement creation.
type AgreementCreated struct {
	AgreementID string `json:"agreement_id"`
}

// AgreementStatusChanged is emitted on every lifecycle transition.
type AgreementStatusChanged struct {
	AgreementID string `json:"agreement_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// RentPaid is emitted once per settled payment.
type RentPaid struct {
	AgreementID    string `json:"agreement_id"`
	PaymentNumber  uint32 `json:"payment_number"`
	Token          string `json:"token"`
	Amount         int64  `json:"amount"`
	LandlordAmount int64  `json:"landlord_amount"`
	AgentAmount    int64  `json:"agent_amount"`
	Tenant         string `json:"tenant"`
	Landlord       string `json:"landlord"`
	Agent          string `json:"agent,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// RegistryInitialized is emitted once, when the registry admin is set.
type RegistryInitialized struct {
	Admin string `json:"admin"`
}

// PropertyRegistered is emitted when a property enters the registry.
type PropertyRegistered struct {
	PropertyID string `json:"property_id"`
	Landlord   string `json:"landlord"`
}

// PropertyVerified is emitted when the admin verifies a property.
type PropertyVerified struct {
	PropertyID string `json:"property_id"`
	Admin      string `json:"admin"`
}

// ObligationMinted is emitted when a rent obligation token is created.
type ObligationMinted struct {
	AgreementID string `json:"agreement_id"`
	Landlord    string `json:"landlord"`
	MintedAt    int64  `json:"minted_at"`
}

// ObligationTransferred is emitted when obligation ownership moves.
type ObligationTransferred struct {
	AgreementID string `json:"agreement_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// LogPublisher writes every event to the global zap logger.
type LogPublisher struct{}

var _ Publisher = LogPublisher{}

func (LogPublisher) Publish(topic string, payload any) {
	zap.L().Info("Event published",
		zap.String("event_id", uuid.New().String()),
		zap.String("topic", topic),
		zap.Any("payload", payload))
}

// Multi fans an event out to several sinks in order.
type Multi []Publisher

func (m Multi) Publish(topic string, payload any) {
	for _, p := range m {
		p.Publish(topic, payload)
	}
}

// Recorder captures events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Recorded is one captured event.
type Recorded struct {
	Topic   string
	Payload any
}

var _ Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Payload: payload})
}

// Events returns a copy of everything captured so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}
