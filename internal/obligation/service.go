// Package obligation manages rent-obligation tokens: transferable proof
// of the right to receive rent for a given agreement. One obligation per
// agreement, owned by exactly one principal at a time.
package obligation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/events"
	"rent-ledger-go/internal/models"
	"rent-ledger-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrAlreadyInitialized = errors.New("obligation registry already initialized")
	ErrNotInitialized     = errors.New("obligation registry not initialized")
	ErrObligationExists   = errors.New("obligation already minted")
	ErrObligationNotFound = errors.New("obligation not found")
	ErrNotOwner           = errors.New("principal does not own the obligation")
)

const (
	kindInitialized     = "obligation_initialized"
	kindObligation      = "obligation"
	kindOwner           = "obligation_owner"
	kindObligationCount = "obligation_count"
)

func initializedKey() store.Key         { return store.NewKey(kindInitialized) }
func obligationKey(id string) store.Key { return store.NewIDKey(kindObligation, id) }
func ownerKey(id string) store.Key      { return store.NewIDKey(kindOwner, id) }
func obligationCountKey() store.Key     { return store.NewKey(kindObligationCount) }

// Service mints and transfers rent obligations.
type Service struct {
	store  store.Store
	auth   authz.Verifier
	events events.Publisher
	now    func() time.Time
}

func NewService(st store.Store, auth authz.Verifier, pub events.Publisher) *Service {
	return &Service{
		store:  st,
		auth:   auth,
		events: pub,
		now:    time.Now,
	}
}

// Initialize prepares the obligation registry. Runs exactly once per store.
func (s *Service) Initialize(ctx context.Context) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		initialized, err := tx.Has(ctx, store.Persistent, initializedKey())
		if err != nil {
			return err
		}
		if initialized {
			return ErrAlreadyInitialized
		}
		return tx.Set(ctx, store.Persistent, initializedKey(), true)
	})
}

// Mint creates the obligation for an agreement, owned by the landlord.
// The landlord must authorize minting; one obligation per agreement.
func (s *Service) Mint(ctx context.Context, agreementID, landlord string) error {
	if agreementID == "" {
		return fmt.Errorf("%w: empty agreement id", ErrObligationNotFound)
	}
	if err := s.auth.Verify(ctx, landlord); err != nil {
		return err
	}

	mintedAt := s.now().Unix()
	err := s.store.Update(ctx, func(tx store.Tx) error {
		initialized, err := tx.Has(ctx, store.Persistent, initializedKey())
		if err != nil {
			return err
		}
		if !initialized {
			return ErrNotInitialized
		}

		exists, err := tx.Has(ctx, store.Persistent, obligationKey(agreementID))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrObligationExists, agreementID)
		}

		obligation := models.RentObligation{
			AgreementID: agreementID,
			Owner:       landlord,
			MintedAt:    mintedAt,
		}
		if err := tx.Set(ctx, store.Persistent, obligationKey(agreementID), &obligation); err != nil {
			return err
		}
		if err := tx.Set(ctx, store.Persistent, ownerKey(agreementID), landlord); err != nil {
			return err
		}

		var count uint32
		if _, err := tx.Get(ctx, store.Instance, obligationCountKey(), &count); err != nil {
			return err
		}
		return tx.Set(ctx, store.Instance, obligationCountKey(), count+1)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Obligation minted",
		zap.String("agreement_id", agreementID),
		zap.String("landlord", landlord))
	s.events.Publish(events.TopicObligationMinted, events.ObligationMinted{
		AgreementID: agreementID,
		Landlord:    landlord,
		MintedAt:    mintedAt,
	})
	return nil
}

// Transfer moves obligation ownership. Only the current owner may transfer.
func (s *Service) Transfer(ctx context.Context, from, to, agreementID string) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient", ErrNotOwner)
	}
	if err := s.auth.Verify(ctx, from); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		var obligation models.RentObligation
		ok, err := tx.Get(ctx, store.Persistent, obligationKey(agreementID), &obligation)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrObligationNotFound, agreementID)
		}
		if obligation.Owner != from {
			return fmt.Errorf("%w: %s is owned by %s", ErrNotOwner, agreementID, obligation.Owner)
		}

		obligation.Owner = to
		if err := tx.Set(ctx, store.Persistent, obligationKey(agreementID), &obligation); err != nil {
			return err
		}
		return tx.Set(ctx, store.Persistent, ownerKey(agreementID), to)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Obligation transferred",
		zap.String("agreement_id", agreementID),
		zap.String("from", from),
		zap.String("to", to))
	s.events.Publish(events.TopicObligationTransferred, events.ObligationTransferred{
		AgreementID: agreementID,
		From:        from,
		To:          to,
	})
	return nil
}

// GetObligation returns the obligation and whether it exists.
func (s *Service) GetObligation(ctx context.Context, agreementID string) (*models.RentObligation, bool, error) {
	var obligation models.RentObligation
	ok, err := s.store.Get(ctx, store.Persistent, obligationKey(agreementID), &obligation)
	if err != nil || !ok {
		return nil, false, err
	}
	return &obligation, true, nil
}

// GetOwner returns the current owner of an agreement's obligation.
func (s *Service) GetOwner(ctx context.Context, agreementID string) (string, error) {
	var owner string
	ok, err := s.store.Get(ctx, store.Persistent, ownerKey(agreementID), &owner)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObligationNotFound, agreementID)
	}
	return owner, nil
}

// HasObligation reports whether an obligation was minted for the agreement.
func (s *Service) HasObligation(ctx context.Context, agreementID string) (bool, error) {
	return s.store.Has(ctx, store.Persistent, obligationKey(agreementID))
}

// GetObligationCount returns the number of obligations ever minted.
func (s *Service) GetObligationCount(ctx context.Context) (uint32, error) {
	var count uint32
	if _, err := s.store.Get(ctx, store.Instance, obligationCountKey(), &count); err != nil {
		return 0, err
	}
	return count, nil
}
