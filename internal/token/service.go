// Package token is the fungible-token transfer primitive the settlement
// core delegates to. Balances live in the same substrate as the rest of
// the ledger, so a transfer commits or rolls back together with the
// payment record it settles.
package token

import (
	"context"
	"errors"
	"fmt"

	"rent-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel errors shared by all transfer outcomes.
var (
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrInvalidTransfer     = errors.New("invalid transfer")
)

// Transferer moves value atomically between two principals, or fails with
// no effect. The settlement core treats failure as propagated, not retried.
type Transferer interface {
	Transfer(ctx context.Context, tx store.Tx, token, from, to string, amount decimal.Decimal) error
}

const kindBalance = "token_balance"

// Token and principal are separate key segments: a delimiter inside either
// identifier must not merge two distinct balance slots.
func balanceKey(token, principal string) store.Key {
	return store.NewIDPairKey(kindBalance, token, principal)
}

// Service keeps per-(token, principal) balances in the persistent class.
type Service struct{}

var _ Transferer = Service{}

func NewService() Service { return Service{} }

// Balance returns the current holdings of principal, zero when no entry exists.
func (Service) Balance(ctx context.Context, g store.Getter, token, principal string) (decimal.Decimal, error) {
	var raw string
	ok, err := g.Get(ctx, store.Persistent, balanceKey(token, principal), &raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance of %s: %w", principal, err)
	}
	return balance, nil
}

// HasAccount reports whether principal ever held this token. A zero
// balance entry still counts; seeding tools use this to avoid crediting
// the same account twice.
func (Service) HasAccount(ctx context.Context, g store.Getter, token, principal string) (bool, error) {
	return g.Has(ctx, store.Persistent, balanceKey(token, principal))
}

// Mint credits freshly issued value to principal. Used when seeding
// accounts; settlement itself only ever moves existing value.
func (s Service) Mint(ctx context.Context, tx store.Tx, token, principal string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: mint amount %s is negative", ErrInvalidTransfer, amount)
	}
	balance, err := s.Balance(ctx, tx, token, principal)
	if err != nil {
		return err
	}
	return tx.Set(ctx, store.Persistent, balanceKey(token, principal), balance.Add(amount).String())
}

// Transfer moves amount from one principal to the other inside the
// caller's transaction. The debit is balance-checked; overdrafts are
// rejected with ErrInsufficientBalance and nothing is written.
func (s Service) Transfer(ctx context.Context, tx store.Tx, token, from, to string, amount decimal.Decimal) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: missing principal", ErrInvalidTransfer)
	}
	if from == to {
		return fmt.Errorf("%w: %s cannot transfer to itself", ErrInvalidTransfer, from)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrInvalidTransfer, amount)
	}
	if amount.IsZero() {
		return nil
	}

	fromBalance, err := s.Balance(ctx, tx, token, from)
	if err != nil {
		return err
	}
	if fromBalance.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s",
			ErrInsufficientBalance, from, fromBalance, token, amount)
	}
	toBalance, err := s.Balance(ctx, tx, token, to)
	if err != nil {
		return err
	}

	if err := tx.Set(ctx, store.Persistent, balanceKey(token, from), fromBalance.Sub(amount).String()); err != nil {
		return err
	}
	if err := tx.Set(ctx, store.Persistent, balanceKey(token, to), toBalance.Add(amount).String()); err != nil {
		return err
	}

	zap.L().Debug("Token transfer applied",
		zap.String("token", token),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return nil
}
