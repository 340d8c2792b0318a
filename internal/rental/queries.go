package rental

import (
	"context"
	"fmt"

	"rent-ledger-go/internal/models"
	"rent-ledger-go/internal/store"
)

// Read-only accessors. All of them run outside any transaction; none has
// side effects.

// GetAgreement returns the agreement and whether it exists.
func (s *Service) GetAgreement(ctx context.Context, agreementID string) (*models.RentAgreement, bool, error) {
	var agreement models.RentAgreement
	ok, err := s.store.Get(ctx, store.Persistent, agreementKey(agreementID), &agreement)
	if err != nil || !ok {
		return nil, false, err
	}
	return &agreement, true, nil
}

// HasAgreement reports whether an agreement exists for the identifier.
func (s *Service) HasAgreement(ctx context.Context, agreementID string) (bool, error) {
	return s.store.Has(ctx, store.Persistent, agreementKey(agreementID))
}

// GetAgreementCount returns the total number of agreements ever created.
func (s *Service) GetAgreementCount(ctx context.Context) (uint32, error) {
	return readCounter(ctx, s.store, agreementCountKey())
}

// GetPayment returns the payment at the given global sequence number.
func (s *Service) GetPayment(ctx context.Context, seq uint32) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	ok, err := s.store.Get(ctx, store.Persistent, paymentKey(seq), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: sequence %d", ErrPaymentNotFound, seq)
	}
	return &record, nil
}

// GetPaymentRecord returns the nth payment of one agreement, 1-based.
func (s *Service) GetPaymentRecord(ctx context.Context, agreementID string, n uint32) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	ok, err := s.store.Get(ctx, store.Persistent, paymentRecordKey(agreementID, n), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s #%d", ErrPaymentNotFound, agreementID, n)
	}
	return &record, nil
}

// GetPaymentCount returns the total number of payments ever settled.
func (s *Service) GetPaymentCount(ctx context.Context) (uint32, error) {
	return readCounter(ctx, s.store, paymentCountKey())
}

// GetTotalPaid sums every payment recorded for the agreement by scanning
// the global audit index; unknown agreements yield zero. The scan is
// O(payment count). Callers that just need the total should read the
// agreement's TotalRentPaid accumulator, which is the O(1) authoritative
// source.
func (s *Service) GetTotalPaid(ctx context.Context, agreementID string) (int64, error) {
	count, err := s.GetPaymentCount(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for i := uint32(1); i <= count; i++ {
		var record models.PaymentRecord
		ok, err := s.store.Get(ctx, store.Persistent, paymentKey(i), &record)
		if err != nil {
			return 0, err
		}
		if ok && record.AgreementID == agreementID {
			total += record.Amount
		}
	}
	return total, nil
}
