package rental

import "fmt"

// maxCommissionRate is 100% expressed in basis points. The commission
// rate uses basis points everywhere: the bound checked here and the
// divisor in splitPayment are the same scale, so a stored rate always
// means what the splitter assumes it means.
const maxCommissionRate = 10_000

// validateAgreementParams checks creation parameters. Pure: no storage
// access, no side effects. Dates are only validated here; they are never
// re-checked once the agreement exists.
func validateAgreementParams(monthlyRent, securityDeposit, startDate, endDate int64, commissionRate uint32) error {
	if monthlyRent <= 0 {
		return fmt.Errorf("%w: monthly rent %d must be positive", ErrInvalidAmount, monthlyRent)
	}
	if securityDeposit < 0 {
		return fmt.Errorf("%w: security deposit %d must not be negative", ErrInvalidAmount, securityDeposit)
	}
	if startDate >= endDate {
		return fmt.Errorf("%w: start %d must precede end %d", ErrInvalidDate, startDate, endDate)
	}
	if commissionRate > maxCommissionRate {
		return fmt.Errorf("%w: %d basis points exceeds %d", ErrInvalidCommissionRate, commissionRate, maxCommissionRate)
	}
	return nil
}
