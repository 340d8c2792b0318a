package main

import (
	"context"
	"flag"
	"fmt"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"

	"go.uber.org/zap"
)

type paymentRequest struct {
	agreementID string
	token       string
	amount      int64
}

func parseAndValidateFlags(defaultToken string) (*paymentRequest, error) {
	idFlag := flag.String("id", "", "Agreement identifier (required)")
	tokenFlag := flag.String("token", "", "Settlement token symbol (defaults to configuration)")
	amountFlag := flag.Int64("amount", 0, "Payment amount in token base units (required)")
	flag.Parse()

	if *idFlag == "" || *amountFlag == 0 {
		return nil, fmt.Errorf("required flags: --id, --amount")
	}

	token := *tokenFlag
	if token == "" {
		token = defaultToken
	}

	return &paymentRequest{
		agreementID: *idFlag,
		token:       token,
		amount:      *amountFlag,
	}, nil
}

func printPaymentSummary(ctx context.Context, services *common.Services, req *paymentRequest) error {
	agreement, found, err := services.Rental.GetAgreement(ctx, req.agreementID)
	if err != nil {
		return fmt.Errorf("failed to read back agreement: %w", err)
	}
	if !found {
		return fmt.Errorf("agreement %s not found after payment", req.agreementID)
	}

	record, err := services.Rental.GetPaymentRecord(ctx, req.agreementID, agreement.PaymentCount)
	if err != nil {
		return fmt.Errorf("failed to read back payment record: %w", err)
	}

	common.PrintHeader("RENT PAYMENT SETTLED", common.DefaultWidth)
	fmt.Printf("Agreement ID:    %s\n", req.agreementID)
	fmt.Printf("Payment Number:  %d\n", record.PaymentNumber)
	fmt.Printf("Token:           %s\n", req.token)
	fmt.Printf("Amount:          %d\n", record.Amount)
	fmt.Printf("Landlord Share:  %d -> %s\n", record.LandlordAmount, agreement.Landlord)
	if agreement.HasAgent() {
		fmt.Printf("Agent Share:     %d -> %s\n", record.AgentAmount, agreement.Agent)
	}
	fmt.Printf("Total Rent Paid: %d over %d payment(s)\n", agreement.TotalRentPaid, agreement.PaymentCount)
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	req, err := parseAndValidateFlags(services.Config.Ledger.DefaultToken)
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	agreement, found, err := services.Rental.GetAgreement(ctx, req.agreementID)
	if err != nil {
		zap.L().Fatal("Failed to look up agreement", zap.Error(err))
	}
	if !found {
		zap.L().Fatal("Agreement not found", zap.String("agreement_id", req.agreementID))
	}

	zap.L().Info("Paying rent",
		zap.String("agreement_id", req.agreementID),
		zap.String("tenant", agreement.Tenant),
		zap.String("token", req.token),
		zap.Int64("amount", req.amount))

	// The tenant is the only party who can spend their own balance.
	tenantCtx := authz.WithCaller(ctx, agreement.Tenant)
	if err := services.Rental.PayRent(tenantCtx, req.agreementID, req.token, req.amount); err != nil {
		zap.L().Fatal("Payment failed",
			zap.String("agreement_id", req.agreementID),
			zap.Error(err))
	}

	if err := printPaymentSummary(ctx, services, req); err != nil {
		zap.L().Fatal("Failed to print payment summary", zap.Error(err))
	}
}
