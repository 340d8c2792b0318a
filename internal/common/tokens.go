package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// SeedBalance funds one principal with an opening balance.
type SeedBalance struct {
	Principal string `yaml:"principal"`
	Amount    string `yaml:"amount"`
}

// TokenConfig describes one settlement token and its seed balances.
type TokenConfig struct {
	Symbol string        `yaml:"symbol"`
	Seeds  []SeedBalance `yaml:"seeds"`
}

type TokensConfig struct {
	Tokens []TokenConfig `yaml:"tokens"`
}

// LoadTokenConfig reads the token seed file used by the setup tool.
func LoadTokenConfig(tokensFile string) ([]TokenConfig, error) {
	var tokensPath string
	if filepath.IsAbs(tokensFile) {
		tokensPath = tokensFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		tokensPath = filepath.Join(wd, tokensFile)
	}

	data, err := os.ReadFile(tokensPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tokensFile, err)
	}

	var config TokensConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", tokensFile, err)
	}

	for i, token := range config.Tokens {
		if token.Symbol == "" {
			return nil, fmt.Errorf("token at index %d missing symbol", i)
		}
		for _, seed := range token.Seeds {
			if seed.Principal == "" {
				return nil, fmt.Errorf("token %s has a seed without a principal", token.Symbol)
			}
			amount, err := decimal.NewFromString(seed.Amount)
			if err != nil {
				return nil, fmt.Errorf("token %s seed for %s has invalid amount %q: %w",
					token.Symbol, seed.Principal, seed.Amount, err)
			}
			if amount.IsNegative() {
				return nil, fmt.Errorf("token %s seed for %s is negative", token.Symbol, seed.Principal)
			}
		}
	}

	return config.Tokens, nil
}
