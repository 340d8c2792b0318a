package rental

import (
	"context"
	"fmt"
	"time"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/events"
	"rent-ledger-go/internal/models"
	"rent-ledger-go/internal/store"
	"rent-ledger-go/internal/token"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service orchestrates the agreement lifecycle and rent settlement.
// All mutations run inside a single store transaction; events are
// published only after the transaction commits. No state is written
// before every validation and authorization check has passed.
type Service struct {
	store  store.Store
	tokens token.Transferer
	auth   authz.Verifier
	events events.Publisher
	now    func() time.Time
}

func NewService(st store.Store, tokens token.Transferer, auth authz.Verifier, pub events.Publisher) *Service {
	return &Service{
		store:  st,
		tokens: tokens,
		auth:   auth,
		events: pub,
		now:    time.Now,
	}
}

// CreateAgreementParams carries everything needed to create an agreement.
type CreateAgreementParams struct {
	AgreementID     string
	Landlord        string
	Tenant          string
	Agent           string // empty when no agent mediates
	MonthlyRent     int64
	SecurityDeposit int64
	StartDate       int64 // unix seconds
	EndDate         int64 // unix seconds
	CommissionRate  uint32
}

// CreateAgreement persists a new agreement in Draft status. The tenant
// must authorize creation: a landlord or third party cannot fabricate an
// agreement obligating a tenant who never consented. Creation is not
// idempotent; a duplicate identifier is rejected and the first agreement
// is left untouched.
func (s *Service) CreateAgreement(ctx context.Context, params CreateAgreementParams) error {
	if params.AgreementID == "" {
		return ErrMissingAgreementID
	}
	if params.Landlord == "" || params.Tenant == "" {
		return fmt.Errorf("%w: landlord and tenant are required", ErrMissingPrincipal)
	}

	if err := s.auth.Verify(ctx, params.Tenant); err != nil {
		return err
	}

	if err := validateAgreementParams(
		params.MonthlyRent,
		params.SecurityDeposit,
		params.StartDate,
		params.EndDate,
		params.CommissionRate,
	); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		exists, err := tx.Has(ctx, store.Persistent, agreementKey(params.AgreementID))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAgreementExists, params.AgreementID)
		}

		agreement := models.RentAgreement{
			AgreementID:     params.AgreementID,
			Landlord:        params.Landlord,
			Tenant:          params.Tenant,
			Agent:           params.Agent,
			MonthlyRent:     params.MonthlyRent,
			SecurityDeposit: params.SecurityDeposit,
			StartDate:       params.StartDate,
			EndDate:         params.EndDate,
			CommissionRate:  params.CommissionRate,
			Status:          models.StatusDraft,
			TotalRentPaid:   0,
			PaymentCount:    0,
		}
		if err := tx.Set(ctx, store.Persistent, agreementKey(params.AgreementID), &agreement); err != nil {
			return err
		}

		count, err := readCounter(ctx, tx, agreementCountKey())
		if err != nil {
			return err
		}
		return tx.Set(ctx, store.Instance, agreementCountKey(), count+1)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Agreement created",
		zap.String("agreement_id", params.AgreementID),
		zap.String("tenant", params.Tenant),
		zap.String("landlord", params.Landlord),
		zap.Int64("monthly_rent", params.MonthlyRent))
	s.events.Publish(events.TopicAgreementCreated, events.AgreementCreated{
		AgreementID: params.AgreementID,
	})
	return nil
}

// legalTransitions is the lifecycle table. Completed, Cancelled and
// Terminated are terminal.
var legalTransitions = map[models.AgreementStatus][]models.AgreementStatus{
	models.StatusDraft:    {models.StatusPending, models.StatusActive, models.StatusCancelled},
	models.StatusPending:  {models.StatusActive, models.StatusCancelled},
	models.StatusActive:   {models.StatusCompleted, models.StatusTerminated, models.StatusDisputed},
	models.StatusDisputed: {models.StatusActive, models.StatusTerminated},
}

func transitionAllowed(from, to models.AgreementStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an agreement to the next lifecycle status. The
// landlord authorizes transitions: the tenant consented at creation, the
// landlord accepts and administers the agreement from there.
func (s *Service) UpdateStatus(ctx context.Context, agreementID string, next models.AgreementStatus) error {
	if agreementID == "" {
		return ErrMissingAgreementID
	}
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	var from models.AgreementStatus
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var agreement models.RentAgreement
		ok, err := tx.Get(ctx, store.Persistent, agreementKey(agreementID), &agreement)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgreementNotFound, agreementID)
		}

		if err := s.auth.Verify(ctx, agreement.Landlord); err != nil {
			return err
		}
		if !transitionAllowed(agreement.Status, next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, agreement.Status, next)
		}

		from = agreement.Status
		agreement.Status = next
		return tx.Set(ctx, store.Persistent, agreementKey(agreementID), &agreement)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Agreement status changed",
		zap.String("agreement_id", agreementID),
		zap.String("from", string(from)),
		zap.String("to", string(next)))
	s.events.Publish(events.TopicAgreementStatusChange, events.AgreementStatusChanged{
		AgreementID: agreementID,
		From:        string(from),
		To:          string(next),
	})
	return nil
}

// PayRent settles one rent cycle: it validates the agreement, splits the
// gross amount by the stored commission rate, moves both shares from the
// tenant, appends the immutable payment record and bumps the running
// aggregates. Either every effect lands or the caller observes no change.
func (s *Service) PayRent(ctx context.Context, agreementID, tokenSymbol string, amount int64) error {
	if agreementID == "" {
		return ErrMissingAgreementID
	}
	if tokenSymbol == "" {
		return fmt.Errorf("%w: settlement token is required", ErrMissingPrincipal)
	}

	var paid events.RentPaid
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var agreement models.RentAgreement
		ok, err := tx.Get(ctx, store.Persistent, agreementKey(agreementID), &agreement)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgreementNotFound, agreementID)
		}

		if agreement.Status != models.StatusActive {
			return fmt.Errorf("%w: status is %s", ErrAgreementNotActive, agreement.Status)
		}
		// Exactly the monthly rent; no partial or over-payments.
		if amount != agreement.MonthlyRent {
			return fmt.Errorf("%w: payment %d does not match monthly rent %d",
				ErrInvalidAmount, amount, agreement.MonthlyRent)
		}
		if err := s.auth.Verify(ctx, agreement.Tenant); err != nil {
			return err
		}

		landlordAmount, agentAmount := splitPayment(amount, agreement.CommissionRate)

		if err := s.tokens.Transfer(ctx, tx, tokenSymbol,
			agreement.Tenant, agreement.Landlord, decimal.NewFromInt(landlordAmount)); err != nil {
			return fmt.Errorf("landlord transfer failed: %w", err)
		}
		if agreement.HasAgent() && agentAmount > 0 {
			if err := s.tokens.Transfer(ctx, tx, tokenSymbol,
				agreement.Tenant, agreement.Agent, decimal.NewFromInt(agentAmount)); err != nil {
				return fmt.Errorf("agent transfer failed: %w", err)
			}
		}

		record := models.PaymentRecord{
			AgreementID:    agreementID,
			PaymentNumber:  agreement.PaymentCount + 1,
			Amount:         amount,
			LandlordAmount: landlordAmount,
			AgentAmount:    agentAmount,
			Timestamp:      s.now().Unix(),
			Tenant:         agreement.Tenant,
		}

		agreement.TotalRentPaid += amount
		agreement.PaymentCount++

		if err := tx.Set(ctx, store.Persistent, agreementKey(agreementID), &agreement); err != nil {
			return err
		}
		if err := tx.Set(ctx, store.Persistent,
			paymentRecordKey(agreementID, record.PaymentNumber), &record); err != nil {
			return err
		}

		// Global audit index: record number paymentCount+1 overall.
		globalCount, err := readCounter(ctx, tx, paymentCountKey())
		if err != nil {
			return err
		}
		if err := tx.Set(ctx, store.Persistent, paymentKey(globalCount+1), &record); err != nil {
			return err
		}
		if err := tx.Set(ctx, store.Instance, paymentCountKey(), globalCount+1); err != nil {
			return err
		}

		paid = events.RentPaid{
			AgreementID:    agreementID,
			PaymentNumber:  record.PaymentNumber,
			Token:          tokenSymbol,
			Amount:         amount,
			LandlordAmount: landlordAmount,
			AgentAmount:    agentAmount,
			Tenant:         agreement.Tenant,
			Landlord:       agreement.Landlord,
			Agent:          agreement.Agent,
			Timestamp:      record.Timestamp,
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("Rent paid",
		zap.String("agreement_id", agreementID),
		zap.Uint32("payment_number", paid.PaymentNumber),
		zap.Int64("amount", paid.Amount),
		zap.Int64("landlord_amount", paid.LandlordAmount),
		zap.Int64("agent_amount", paid.AgentAmount))
	s.events.Publish(events.TopicRentPaid, paid)
	return nil
}

// readCounter loads a counter, treating a missing entry as zero.
func readCounter(ctx context.Context, g store.Getter, key store.Key) (uint32, error) {
	var count uint32
	if _, err := g.Get(ctx, store.Instance, key, &count); err != nil {
		return 0, err
	}
	return count, nil
}
