package rental

import "errors"

// Error taxonomy of the agreement/payment core. Every operation surfaces
// exactly one of these (possibly wrapped with detail); a returned error
// always means "no effect occurred" and the call is safe to resubmit
// with corrected input.
var (
	ErrAgreementExists       = errors.New("agreement already exists")
	ErrAgreementNotFound     = errors.New("agreement not found")
	ErrAgreementNotActive    = errors.New("agreement is not active")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDate           = errors.New("invalid date range")
	ErrInvalidCommissionRate = errors.New("invalid commission rate")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrMissingPrincipal      = errors.New("missing principal")
	ErrMissingAgreementID    = errors.New("missing agreement id")
)
