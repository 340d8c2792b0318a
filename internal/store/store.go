package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound = errors.New("entry not found")
	ErrClosed   = errors.New("store is closed")
)

// Durability selects which lifetime class an entry belongs to.
//
// Instance holds short-lived contract bookkeeping (counters, registry
// state); Persistent holds the long-lived entities (agreements, payment
// records, obligations, token balances). Routing an entity to the wrong
// class is a correctness bug, not a tuning knob: the payment processor
// and the query layer agree on the class per key kind.
type Durability int

const (
	Instance Durability = iota
	Persistent
)

func (d Durability) String() string {
	if d == Instance {
		return "instance"
	}
	return "persistent"
}

// Getter is the read half of the substrate.
type Getter interface {
	// Has reports whether a live entry exists at key.
	Has(ctx context.Context, d Durability, key Key) (bool, error)
	// Get decodes the entry at key into out and reports whether it existed.
	Get(ctx context.Context, d Durability, key Key, out any) (bool, error)
}

// Setter is the write half of the substrate.
type Setter interface {
	// Set stores value at key, replacing any previous entry. Entries have
	// no expiry unless one is granted via ExtendTTL.
	Set(ctx context.Context, d Durability, key Key, value any) error
	// ExtendTTL guarantees the entry stays live until at least liveUntil.
	// It never shortens an existing lifetime and is a no-op on a missing key.
	ExtendTTL(ctx context.Context, d Durability, key Key, liveUntil time.Time) error
}

// Tx is the view of the substrate inside one atomic unit. Everything
// written through a Tx commits or rolls back together.
type Tx interface {
	Getter
	Setter
}

// Store defines the contract the key-value substrate must satisfy.
// Reads outside Update are individually consistent; all mutations go
// through Update so one ledger operation is one atomic unit.
type Store interface {
	Getter

	// Update runs fn inside a single transaction. If fn returns an error
	// the transaction is rolled back and the error is returned unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close()
}
