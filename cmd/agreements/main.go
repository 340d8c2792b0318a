package main

import (
	"context"
	"flag"
	"fmt"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"
	"rent-ledger-go/internal/models"

	"go.uber.org/zap"
)

func printAgreement(ctx context.Context, services *common.Services, agreementID string) error {
	agreement, found, err := services.Rental.GetAgreement(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to look up agreement: %w", err)
	}
	if !found {
		return fmt.Errorf("agreement %s not found", agreementID)
	}

	totalPaid, err := services.Rental.GetTotalPaid(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to total payments: %w", err)
	}

	common.PrintHeader("RENT AGREEMENT", common.DefaultWidth)
	fmt.Printf("Agreement ID:     %s\n", agreement.AgreementID)
	fmt.Printf("Status:           %s\n", agreement.Status)
	fmt.Printf("Landlord:         %s\n", agreement.Landlord)
	fmt.Printf("Tenant:           %s\n", agreement.Tenant)
	if agreement.HasAgent() {
		fmt.Printf("Agent:            %s (%s commission)\n", agreement.Agent, common.FormatCommission(agreement.CommissionRate))
	}
	fmt.Printf("Monthly Rent:     %d\n", agreement.MonthlyRent)
	fmt.Printf("Security Deposit: %d\n", agreement.SecurityDeposit)
	fmt.Printf("Lease Period:     %s to %s\n", common.FormatDate(agreement.StartDate), common.FormatDate(agreement.EndDate))
	fmt.Printf("Payments Made:    %d\n", agreement.PaymentCount)
	fmt.Printf("Total Rent Paid:  %d\n", totalPaid)
	common.PrintSeparator("=", common.DefaultWidth)

	if agreement.PaymentCount > 0 {
		fmt.Println("\nPayment history:")
		for n := uint32(1); n <= agreement.PaymentCount; n++ {
			record, err := services.Rental.GetPaymentRecord(ctx, agreementID, n)
			if err != nil {
				return fmt.Errorf("failed to read payment %d: %w", n, err)
			}
			fmt.Printf("  #%d  %s  amount=%d  landlord=%d  agent=%d\n",
				record.PaymentNumber, common.FormatDate(record.Timestamp),
				record.Amount, record.LandlordAmount, record.AgentAmount)
		}
	}
	return nil
}

func transitionStatus(ctx context.Context, services *common.Services, agreementID, next string) error {
	status := models.AgreementStatus(next)
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", next)
	}

	agreement, found, err := services.Rental.GetAgreement(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to look up agreement: %w", err)
	}
	if !found {
		return fmt.Errorf("agreement %s not found", agreementID)
	}

	// Lifecycle transitions are the landlord's call.
	landlordCtx := authz.WithCaller(ctx, agreement.Landlord)
	if err := services.Rental.UpdateStatus(landlordCtx, agreementID, status); err != nil {
		return fmt.Errorf("transition to %s failed: %w", status, err)
	}

	fmt.Printf("Agreement %s: %s -> %s\n", agreementID, agreement.Status, status)
	return nil
}

func printCounts(ctx context.Context, services *common.Services) error {
	agreements, err := services.Rental.GetAgreementCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count agreements: %w", err)
	}
	payments, err := services.Rental.GetPaymentCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}

	common.PrintHeader("LEDGER TOTALS", common.DefaultWidth)
	fmt.Printf("Agreements: %d\n", agreements)
	fmt.Printf("Payments:   %d\n", payments)
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	idFlag := flag.String("id", "", "Agreement identifier")
	statusFlag := flag.String("status", "", "Transition the agreement to this status")
	countFlag := flag.Bool("count", false, "Print ledger-wide agreement and payment counts")
	flag.Parse()

	if *idFlag == "" && !*countFlag {
		zap.L().Fatal("Invalid flags", zap.Error(fmt.Errorf("one of --id or --count is required")))
	}

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *countFlag {
		if err := printCounts(ctx, services); err != nil {
			zap.L().Fatal("Failed to print counts", zap.Error(err))
		}
		return
	}

	if *statusFlag != "" {
		if err := transitionStatus(ctx, services, *idFlag, *statusFlag); err != nil {
			zap.L().Fatal("Status transition failed", zap.Error(err))
		}
	}

	if err := printAgreement(ctx, services, *idFlag); err != nil {
		zap.L().Fatal("Failed to print agreement", zap.Error(err))
	}
}
