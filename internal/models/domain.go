package models

// AgreementStatus tracks where a rent agreement sits in its lifecycle.
// Only Active agreements accept rent payments.
type AgreementStatus string

const (
	StatusDraft      AgreementStatus = "draft"
	StatusPending    AgreementStatus = "pending"
	StatusActive     AgreementStatus = "active"
	StatusCompleted  AgreementStatus = "completed"
	StatusCancelled  AgreementStatus = "cancelled"
	StatusTerminated AgreementStatus = "terminated"
	StatusDisputed   AgreementStatus = "disputed"
)

// Valid reports whether s is one of the known lifecycle statuses.
func (s AgreementStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusCompleted,
		StatusCancelled, StatusTerminated, StatusDisputed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s AgreementStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusTerminated:
		return true
	}
	return false
}

// RentAgreement is a rent contract between a tenant and a landlord,
// optionally mediated by a commissioned agent. Principals are referenced
// by identifier only; the ledger never owns them.
//
// TotalRentPaid and PaymentCount are running aggregates maintained by the
// payment processor. They only ever grow.
type RentAgreement struct {
	AgreementID     string          `json:"agreement_id"`
	Landlord        string          `json:"landlord"`
	Tenant          string          `json:"tenant"`
	Agent           string          `json:"agent,omitempty"` // empty when no agent mediates
	MonthlyRent     int64           `json:"monthly_rent"`
	SecurityDeposit int64           `json:"security_deposit"`
	StartDate       int64           `json:"start_date"` // unix seconds
	EndDate         int64           `json:"end_date"`   // unix seconds
	CommissionRate  uint32          `json:"commission_rate_bps"`
	Status          AgreementStatus `json:"status"`
	TotalRentPaid   int64           `json:"total_rent_paid"`
	PaymentCount    uint32          `json:"payment_count"`
}

// HasAgent reports whether a commissioned agent mediates the agreement.
func (a *RentAgreement) HasAgent() bool { return a.Agent != "" }

// PaymentRecord is the immutable audit entry for one settled rent payment.
// Amount == LandlordAmount + AgentAmount always holds.
type PaymentRecord struct {
	AgreementID    string `json:"agreement_id"`
	PaymentNumber  uint32 `json:"payment_number"` // 1-based sequence within the agreement
	Amount         int64  `json:"amount"`
	LandlordAmount int64  `json:"landlord_amount"`
	AgentAmount    int64  `json:"agent_amount"`
	Timestamp      int64  `json:"timestamp"` // settlement time, unix seconds
	Tenant         string `json:"tenant"`    // payer identity, kept for audit
}

// PropertyDetails is a property listed in the on-ledger registry.
type PropertyDetails struct {
	PropertyID   string `json:"property_id"`
	Landlord     string `json:"landlord"`
	MetadataHash string `json:"metadata_hash"` // off-ledger metadata reference
	Verified     bool   `json:"verified"`
	RegisteredAt int64  `json:"registered_at"`
}

// RegistryState holds the property registry's admin configuration.
type RegistryState struct {
	Admin       string `json:"admin"`
	Initialized bool   `json:"initialized"`
}

// RentObligation is a transferable token representing ownership of the
// right to receive rent for a given agreement.
type RentObligation struct {
	AgreementID string `json:"agreement_id"`
	Owner       string `json:"owner"`
	MintedAt    int64  `json:"minted_at"`
}
