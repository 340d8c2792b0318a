package main

import (
	"context"
	"flag"
	"fmt"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"

	"go.uber.org/zap"
)

func registerProperty(ctx context.Context, services *common.Services, landlord, propertyID, metadataHash string) error {
	if landlord == "" || metadataHash == "" {
		return fmt.Errorf("register requires --landlord and --metadata")
	}

	landlordCtx := authz.WithCaller(ctx, landlord)
	if err := services.Registry.RegisterProperty(landlordCtx, landlord, propertyID, metadataHash); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Printf("Property %s registered by %s\n", propertyID, landlord)
	return nil
}

func verifyProperty(ctx context.Context, services *common.Services, admin, propertyID string) error {
	if admin == "" {
		return fmt.Errorf("verify requires --admin")
	}

	adminCtx := authz.WithCaller(ctx, admin)
	if err := services.Registry.VerifyProperty(adminCtx, admin, propertyID); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Printf("Property %s verified\n", propertyID)
	return nil
}

func printProperty(ctx context.Context, services *common.Services, propertyID string) error {
	property, found, err := services.Registry.GetProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to look up property: %w", err)
	}
	if !found {
		return fmt.Errorf("property %s not found", propertyID)
	}

	common.PrintHeader("PROPERTY", common.DefaultWidth)
	fmt.Printf("Property ID:   %s\n", property.PropertyID)
	fmt.Printf("Landlord:      %s\n", property.Landlord)
	fmt.Printf("Metadata Hash: %s\n", property.MetadataHash)
	fmt.Printf("Verified:      %t\n", property.Verified)
	fmt.Printf("Registered:    %s\n", common.FormatDate(property.RegisteredAt))
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func printRegistryState(ctx context.Context, services *common.Services) error {
	state, found, err := services.Registry.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry state: %w", err)
	}
	if !found {
		return fmt.Errorf("registry not initialized")
	}

	count, err := services.Registry.GetPropertyCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count properties: %w", err)
	}

	common.PrintHeader("PROPERTY REGISTRY", common.DefaultWidth)
	fmt.Printf("Admin:      %s\n", state.Admin)
	fmt.Printf("Properties: %d\n", count)
	common.PrintSeparator("=", common.DefaultWidth)
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	idFlag := flag.String("id", "", "Property identifier")
	registerFlag := flag.Bool("register", false, "Register the property")
	verifyFlag := flag.Bool("verify", false, "Verify the property")
	landlordFlag := flag.String("landlord", "", "Landlord principal (for --register)")
	metadataFlag := flag.String("metadata", "", "Off-ledger metadata hash (for --register)")
	adminFlag := flag.String("admin", "", "Registry admin principal (for --verify)")
	stateFlag := flag.Bool("state", false, "Print registry state")
	flag.Parse()

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *stateFlag {
		if err := printRegistryState(ctx, services); err != nil {
			zap.L().Fatal("Failed to print registry state", zap.Error(err))
		}
		return
	}

	if *idFlag == "" {
		zap.L().Fatal("Invalid flags", zap.Error(fmt.Errorf("--id is required unless --state is given")))
	}

	switch {
	case *registerFlag:
		if err := registerProperty(ctx, services, *landlordFlag, *idFlag, *metadataFlag); err != nil {
			zap.L().Fatal("Failed to register property", zap.Error(err))
		}
	case *verifyFlag:
		if err := verifyProperty(ctx, services, *adminFlag, *idFlag); err != nil {
			zap.L().Fatal("Failed to verify property", zap.Error(err))
		}
	}

	if err := printProperty(ctx, services, *idFlag); err != nil {
		zap.L().Fatal("Failed to print property", zap.Error(err))
	}
}
