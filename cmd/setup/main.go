package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/common"
	"rent-ledger-go/internal/obligation"
	"rent-ledger-go/internal/registry"
	"rent-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedStats struct {
	credited int
	skipped  int
}

func seedTokenBalances(ctx context.Context, services *common.Services, tokens []common.TokenConfig) (seedStats, error) {
	var stats seedStats

	for _, tokenCfg := range tokens {
		for _, seed := range tokenCfg.Seeds {
			exists, err := services.Tokens.HasAccount(ctx, services.Store, tokenCfg.Symbol, seed.Principal)
			if err != nil {
				return stats, fmt.Errorf("failed to check account %s/%s: %w", tokenCfg.Symbol, seed.Principal, err)
			}
			if exists {
				fmt.Printf("✓ %s %s: account already seeded\n", tokenCfg.Symbol, seed.Principal)
				stats.skipped++
				continue
			}

			amount, err := decimal.NewFromString(seed.Amount)
			if err != nil {
				return stats, fmt.Errorf("invalid seed amount for %s: %w", seed.Principal, err)
			}
			err = services.Store.Update(ctx, func(tx store.Tx) error {
				return services.Tokens.Mint(ctx, tx, tokenCfg.Symbol, seed.Principal, amount)
			})
			if err != nil {
				return stats, fmt.Errorf("failed to seed %s for %s: %w", tokenCfg.Symbol, seed.Principal, err)
			}

			fmt.Printf("✓ %s %s: credited %s\n", tokenCfg.Symbol, seed.Principal, amount)
			stats.credited++
		}
	}
	return stats, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	adminFlag := flag.String("admin", "", "Initialize the property registry with this admin principal")
	obligationsFlag := flag.Bool("obligations", false, "Initialize the obligation registry")
	pruneFlag := flag.Bool("prune", false, "Remove entries whose archival deadline has passed")
	flag.Parse()

	services, err := common.InitializeServices(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("RENT LEDGER SETUP", common.DefaultWidth)

	tokens, err := common.LoadTokenConfig(services.Config.Ledger.TokensFile)
	if err != nil {
		zap.L().Fatal("Failed to load token config", zap.Error(err))
	}
	zap.L().Info("Token configuration loaded", zap.Int("tokens", len(tokens)))

	stats, err := seedTokenBalances(ctx, services, tokens)
	if err != nil {
		zap.L().Fatal("Failed to seed token balances", zap.Error(err))
	}
	fmt.Printf("\nSeed accounts credited: %d, already present: %d\n", stats.credited, stats.skipped)

	if *adminFlag != "" {
		adminCtx := authz.WithCaller(ctx, *adminFlag)
		err := services.Registry.Initialize(adminCtx, *adminFlag)
		switch {
		case errors.Is(err, registry.ErrAlreadyInitialized):
			fmt.Println("Property registry already initialized")
		case err != nil:
			zap.L().Fatal("Failed to initialize property registry", zap.Error(err))
		default:
			fmt.Printf("Property registry initialized with admin %s\n", *adminFlag)
		}
	}

	if *obligationsFlag {
		err := services.Obligations.Initialize(ctx)
		switch {
		case errors.Is(err, obligation.ErrAlreadyInitialized):
			fmt.Println("Obligation registry already initialized")
		case err != nil:
			zap.L().Fatal("Failed to initialize obligation registry", zap.Error(err))
		default:
			fmt.Println("Obligation registry initialized")
		}
	}

	if *pruneFlag {
		pruned, err := services.Store.Prune(ctx, time.Now())
		if err != nil {
			zap.L().Fatal("Failed to prune expired entries", zap.Error(err))
		}
		fmt.Printf("Pruned %d expired entries\n", pruned)
	}

	common.PrintFooter("Setup complete", common.DefaultWidth)
}
