package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"
	"rent-ledger-go/internal/rental"

	"go.uber.org/zap"
)

func parseAndValidateFlags() (*rental.CreateAgreementParams, error) {
	idFlag := flag.String("id", "", "Agreement identifier (required)")
	landlordFlag := flag.String("landlord", "", "Landlord principal (required)")
	tenantFlag := flag.String("tenant", "", "Tenant principal (required)")
	agentFlag := flag.String("agent", "", "Agent principal (optional)")
	rentFlag := flag.Int64("rent", 0, "Monthly rent in token base units (required)")
	depositFlag := flag.Int64("deposit", 0, "Security deposit in token base units (required)")
	startFlag := flag.String("start", "", "Lease start date, YYYY-MM-DD (required)")
	endFlag := flag.String("end", "", "Lease end date, YYYY-MM-DD (required)")
	commissionFlag := flag.Uint("commission", 0, "Agent commission in basis points (0-10000)")
	flag.Parse()

	if *idFlag == "" || *landlordFlag == "" || *tenantFlag == "" || *startFlag == "" || *endFlag == "" {
		return nil, fmt.Errorf("required flags: --id, --landlord, --tenant, --rent, --deposit, --start, --end")
	}

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	commission, err := parseCommission(uint64(*commissionFlag))
	if err != nil {
		return nil, err
	}

	return &rental.CreateAgreementParams{
		AgreementID:     *idFlag,
		Landlord:        *landlordFlag,
		Tenant:          *tenantFlag,
		Agent:           *agentFlag,
		MonthlyRent:     *rentFlag,
		SecurityDeposit: *depositFlag,
		StartDate:       start.Unix(),
		EndDate:         end.Unix(),
		CommissionRate:  commission,
	}, nil
}

// parseCommission bounds the flag before the uint32 conversion: an
// oversized value must be rejected here, not silently wrapped into range.
func parseCommission(v uint64) (uint32, error) {
	if v > 10_000 {
		return 0, fmt.Errorf("commission %d exceeds 10000 basis points (100%%)", v)
	}
	return uint32(v), nil
}

func printAgreementSummary(ctx context.Context, services *common.Services, agreementID string) error {
	agreement, found, err := services.Rental.GetAgreement(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to read back agreement: %w", err)
	}
	if !found {
		return fmt.Errorf("agreement %s not found after creation", agreementID)
	}

	common.PrintHeader("RENT AGREEMENT CREATED", common.DefaultWidth)
	fmt.Printf("Agreement ID:     %s\n", agreement.AgreementID)
	fmt.Printf("Landlord:         %s\n", agreement.Landlord)
	fmt.Printf("Tenant:           %s\n", agreement.Tenant)
	if agreement.HasAgent() {
		fmt.Printf("Agent:            %s (%s commission)\n", agreement.Agent, common.FormatCommission(agreement.CommissionRate))
	} else {
		fmt.Printf("Agent:            none\n")
	}
	fmt.Printf("Monthly Rent:     %d\n", agreement.MonthlyRent)
	fmt.Printf("Security Deposit: %d\n", agreement.SecurityDeposit)
	fmt.Printf("Lease Period:     %s to %s\n", common.FormatDate(agreement.StartDate), common.FormatDate(agreement.EndDate))
	fmt.Printf("Status:           %s\n", agreement.Status)
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	params, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	zap.L().Info("Creating rent agreement",
		zap.String("agreement_id", params.AgreementID),
		zap.String("landlord", params.Landlord),
		zap.String("tenant", params.Tenant),
		zap.Int64("monthly_rent", params.MonthlyRent))

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// The tenant consents to the agreement obligating them.
	tenantCtx := authz.WithCaller(ctx, params.Tenant)
	if err := services.Rental.CreateAgreement(tenantCtx, *params); err != nil {
		zap.L().Fatal("Failed to create agreement",
			zap.String("agreement_id", params.AgreementID),
			zap.Error(err))
	}

	if err := printAgreementSummary(ctx, services, params.AgreementID); err != nil {
		zap.L().Fatal("Failed to print agreement summary", zap.Error(err))
	}
}
