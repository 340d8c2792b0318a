package main

import (
	"context"
	"flag"
	"fmt"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"

	"go.uber.org/zap"
)

func mintObligation(ctx context.Context, services *common.Services, agreementID, landlord string) error {
	if landlord == "" {
		return fmt.Errorf("mint requires --landlord")
	}

	landlordCtx := authz.WithCaller(ctx, landlord)
	if err := services.Obligations.Mint(landlordCtx, agreementID, landlord); err != nil {
		return fmt.Errorf("mint failed: %w", err)
	}

	fmt.Printf("Obligation minted for agreement %s, owned by %s\n", agreementID, landlord)
	return nil
}

func transferObligation(ctx context.Context, services *common.Services, agreementID, from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("transfer requires --from and --to")
	}

	fromCtx := authz.WithCaller(ctx, from)
	if err := services.Obligations.Transfer(fromCtx, from, to, agreementID); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	fmt.Printf("Obligation for agreement %s transferred %s -> %s\n", agreementID, from, to)
	return nil
}

func printObligation(ctx context.Context, services *common.Services, agreementID string) error {
	obligation, found, err := services.Obligations.GetObligation(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to look up obligation: %w", err)
	}
	if !found {
		return fmt.Errorf("no obligation minted for agreement %s", agreementID)
	}

	owner, err := services.Obligations.GetOwner(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("failed to look up owner: %w", err)
	}

	common.PrintHeader("RENT OBLIGATION", common.DefaultWidth)
	fmt.Printf("Agreement ID: %s\n", obligation.AgreementID)
	fmt.Printf("Owner:        %s\n", owner)
	fmt.Printf("Minted:       %s\n", common.FormatDate(obligation.MintedAt))
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	idFlag := flag.String("id", "", "Agreement identifier (required)")
	mintFlag := flag.Bool("mint", false, "Mint an obligation for the agreement")
	transferFlag := flag.Bool("transfer", false, "Transfer the obligation")
	landlordFlag := flag.String("landlord", "", "Issuing landlord (for --mint)")
	fromFlag := flag.String("from", "", "Current owner (for --transfer)")
	toFlag := flag.String("to", "", "New owner (for --transfer)")
	flag.Parse()

	if *idFlag == "" {
		zap.L().Fatal("Invalid flags", zap.Error(fmt.Errorf("--id is required")))
	}

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	switch {
	case *mintFlag:
		if err := mintObligation(ctx, services, *idFlag, *landlordFlag); err != nil {
			zap.L().Fatal("Failed to mint obligation", zap.Error(err))
		}
	case *transferFlag:
		if err := transferObligation(ctx, services, *idFlag, *fromFlag, *toFlag); err != nil {
			zap.L().Fatal("Failed to transfer obligation", zap.Error(err))
		}
	}

	if err := printObligation(ctx, services, *idFlag); err != nil {
		zap.L().Fatal("Failed to print obligation", zap.Error(err))
	}
}
