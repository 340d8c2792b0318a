// Package registry keeps the on-ledger property registry: landlords list
// properties, the registry admin verifies them. It shares the substrate,
// authorization port and event sink with the settlement core.
package registry

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
	ErrAlreadyInitialized = errors.New("registry already initialized")
	ErrNotInitialized     = errors.New("registry not initialized")
	ErrPropertyExists     = errors.New("property already exists")
	ErrPropertyNotFound   = errors.New("property not found")
	ErrAlreadyVerified    = errors.New("property already verified")
	ErrInvalidPropertyID  = errors.New("property id must not be empty")
	ErrInvalidMetadata    = errors.New("metadata hash must not be empty")
)

const (
	kindInitialized   = "registry_initialized"
	kindState         = "registry_state"
	kindProperty      = "property"
	kindPropertyCount = "property_count"
)

func initializedKey() store.Key       { return store.NewKey(kindInitialized) }
func stateKey() store.Key             { return store.NewKey(kindState) }
func propertyKey(id string) store.Key { return store.NewIDKey(kindProperty, id) }
func propertyCountKey() store.Key     { return store.NewKey(kindPropertyCount) }

// Service is the property registry.
type Service struct {
	store  store.Store
	auth   authz.Verifier
	events events.Publisher
	ttl    time.Duration
	now    func() time.Time
}

func NewService(st store.Store, auth authz.Verifier, pub events.Publisher, ttl time.Duration) *Service {
	return &Service{
		store:  st,
		auth:   auth,
		events: pub,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Initialize sets the admin. Runs exactly once per store; the state and
// the initialized marker get their archival lifetime extended so they
// outlive any pruning of stale instance data.
func (s *Service) Initialize(ctx context.Context, admin string) error {
	if admin == "" {
		return fmt.Errorf("%w: empty admin", authz.ErrUnauthorized)
	}
	if err := s.auth.Verify(ctx, admin); err != nil {
		return err
	}

	liveUntil := s.now().Add(s.ttl)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		initialized, err := tx.Has(ctx, store.Persistent, initializedKey())
		if err != nil {
			return err
		}
		if initialized {
			return ErrAlreadyInitialized
		}

		if err := tx.Set(ctx, store.Persistent, initializedKey(), true); err != nil {
			return err
		}
		if err := tx.ExtendTTL(ctx, store.Persistent, initializedKey(), liveUntil); err != nil {
			return err
		}

		state := models.RegistryState{Admin: admin, Initialized: true}
		if err := tx.Set(ctx, store.Instance, stateKey(), &state); err != nil {
			return err
		}
		return tx.ExtendTTL(ctx, store.Instance, stateKey(), liveUntil)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Property registry initialized", zap.String("admin", admin))
	s.events.Publish(events.TopicRegistryInitialized, events.RegistryInitialized{Admin: admin})
	return nil
}

// GetState returns the registry state, or ok=false before initialization.
func (s *Service) GetState(ctx context.Context) (*models.RegistryState, bool, error) {
	var state models.RegistryState
	ok, err := s.store.Get(ctx, store.Instance, stateKey(), &state)
	if err != nil || !ok {
		return nil, false, err
	}
	return &state, true, nil
}

// RegisterProperty lists a new property, unverified at birth. The
// landlord must authorize the listing.
func (s *Service) RegisterProperty(ctx context.Context, landlord, propertyID, metadataHash string) error {
	if propertyID == "" {
		return ErrInvalidPropertyID
	}
	if metadataHash == "" {
		return ErrInvalidMetadata
	}
	if err := s.auth.Verify(ctx, landlord); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		initialized, err := tx.Has(ctx, store.Persistent, initializedKey())
		if err != nil {
			return err
		}
		if !initialized {
			return ErrNotInitialized
		}

		exists, err := tx.Has(ctx, store.Persistent, propertyKey(propertyID))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrPropertyExists, propertyID)
		}

		property := models.PropertyDetails{
			PropertyID:   propertyID,
			Landlord:     landlord,
			MetadataHash: metadataHash,
			Verified:     false,
			RegisteredAt: s.now().Unix(),
		}
		if err := tx.Set(ctx, store.Persistent, propertyKey(propertyID), &property); err != nil {
			return err
		}

		var count uint32
		if _, err := tx.Get(ctx, store.Instance, propertyCountKey(), &count); err != nil {
			return err
		}
		return tx.Set(ctx, store.Instance, propertyCountKey(), count+1)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Property registered",
		zap.String("property_id", propertyID),
		zap.String("landlord", landlord))
	s.events.Publish(events.TopicPropertyRegistered, events.PropertyRegistered{
		PropertyID: propertyID,
		Landlord:   landlord,
	})
	return nil
}

// VerifyProperty marks a property as verified. Admin only.
func (s *Service) VerifyProperty(ctx context.Context, admin, propertyID string) error {
	if propertyID == "" {
		return ErrInvalidPropertyID
	}
	if err := s.auth.Verify(ctx, admin); err != nil {
		return err
	}

	err := s.store.Update(ctx, func(tx store.Tx) error {
		var state models.RegistryState
		ok, err := tx.Get(ctx, store.Instance, stateKey(), &state)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialized
		}
		if state.Admin != admin {
			return fmt.Errorf("%w: %s is not the registry admin", authz.ErrUnauthorized, admin)
		}

		var property models.PropertyDetails
		ok, err = tx.Get(ctx, store.Persistent, propertyKey(propertyID), &property)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrPropertyNotFound, propertyID)
		}
		if property.Verified {
			return fmt.Errorf("%w: %s", ErrAlreadyVerified, propertyID)
		}

		property.Verified = true
		return tx.Set(ctx, store.Persistent, propertyKey(propertyID), &property)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Property verified",
		zap.String("property_id", propertyID),
		zap.String("admin", admin))
	s.events.Publish(events.TopicPropertyVerified, events.PropertyVerified{
		PropertyID: propertyID,
		Admin:      admin,
	})
	return nil
}

// GetProperty returns the property and whether it exists.
func (s *Service) GetProperty(ctx context.Context, propertyID string) (*models.PropertyDetails, bool, error) {
	var property models.PropertyDetails
	ok, err := s.store.Get(ctx, store.Persistent, propertyKey(propertyID), &property)
	if err != nil || !ok {
		return nil, false, err
	}
	return &property, true, nil
}

// HasProperty reports whether a property is listed.
func (s *Service) HasProperty(ctx context.Context, propertyID string) (bool, error) {
	return s.store.Has(ctx, store.Persistent, propertyKey(propertyID))
}

// GetPropertyCount returns the number of properties ever registered.
func (s *Service) GetPropertyCount(ctx context.Context) (uint32, error) {
	var count uint32
	if _, err := s.store.Get(ctx, store.Instance, propertyCountKey(), &count); err != nil {
		return 0, err
	}
	return count, nil
}
