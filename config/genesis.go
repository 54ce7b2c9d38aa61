package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jarvault/crypto"
	"jarvault/native/jar"
	"jarvault/udecimal"
)

// Genesis is the YAML document describing the products registered on first
// start. Rates are expressed in basis points so the file never carries
// floating point.
type Genesis struct {
	Products []GenesisProduct `yaml:"products" json:"products"`
}

type GenesisProduct struct {
	ID               string       `yaml:"id" json:"id"`
	Enabled          bool         `yaml:"enabled" json:"enabled"`
	CapMin           string       `yaml:"capMin" json:"capMin"`
	CapMax           string       `yaml:"capMax" json:"capMax"`
	Terms            GenesisTerms `yaml:"terms" json:"terms"`
	WithdrawalFee    *GenesisFee  `yaml:"withdrawalFee,omitempty" json:"withdrawalFee,omitempty"`
	AuthorizationKey string       `yaml:"authorizationKey,omitempty" json:"authorizationKey,omitempty"`
}

type GenesisTerms struct {
	Kind        string  `yaml:"kind" json:"kind"`
	LockupDays  int64   `yaml:"lockupDays,omitempty" json:"lockupDays,omitempty"`
	ApyBps      uint64  `yaml:"apyBps,omitempty" json:"apyBps,omitempty"`
	FallbackBps *uint64 `yaml:"fallbackBps,omitempty" json:"fallbackBps,omitempty"`
	ScoreCap    uint64  `yaml:"scoreCap,omitempty" json:"scoreCap,omitempty"`
}

type GenesisFee struct {
	Kind    string `yaml:"kind" json:"kind"`
	Amount  string `yaml:"amount,omitempty" json:"amount,omitempty"`
	RateBps uint64 `yaml:"rateBps,omitempty" json:"rateBps,omitempty"`
}

// LoadGenesis reads and parses a product genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	genesis := &Genesis{}
	if err := yaml.Unmarshal(raw, genesis); err != nil {
		return nil, fmt.Errorf("config: parse genesis %s: %w", path, err)
	}
	return genesis, nil
}

// BuildProducts converts the genesis document into registry products.
func (g *Genesis) BuildProducts() ([]*jar.Product, error) {
	products := make([]*jar.Product, 0, len(g.Products))
	for i := range g.Products {
		product, err := g.Products[i].Build()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// Build converts one product description into a registry product. The RPC
// admin surface reuses it so a product registered at runtime goes through the
// same parsing as one from the genesis file.
func (p *GenesisProduct) Build() (*jar.Product, error) {
	capMin, err := parseAmount(p.CapMin)
	if err != nil {
		return nil, fmt.Errorf("config: product %s: capMin: %w", p.ID, err)
	}
	capMax, err := parseAmount(p.CapMax)
	if err != nil {
		return nil, fmt.Errorf("config: product %s: capMax: %w", p.ID, err)
	}
	terms, err := p.Terms.build()
	if err != nil {
		return nil, fmt.Errorf("config: product %s: %w", p.ID, err)
	}
	product := &jar.Product{
		ID:      jar.ProductID(strings.TrimSpace(p.ID)),
		Cap:     jar.Cap{Min: capMin, Max: capMax},
		Terms:   terms,
		Enabled: p.Enabled,
	}
	if p.WithdrawalFee != nil {
		fee, err := p.WithdrawalFee.build()
		if err != nil {
			return nil, fmt.Errorf("config: product %s: %w", p.ID, err)
		}
		product.WithdrawalFee = fee
	}
	if trimmed := strings.TrimSpace(p.AuthorizationKey); trimmed != "" {
		raw, err := hex.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("config: product %s: authorizationKey: %w", p.ID, err)
		}
		key, err := crypto.PublicKeyFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("config: product %s: authorizationKey: %w", p.ID, err)
		}
		product.AuthorizationKey = key
	}
	return product, nil
}

func (t *GenesisTerms) build() (jar.Terms, error) {
	apy := jar.ConstantApy(bps(t.ApyBps))
	if t.FallbackBps != nil {
		apy = jar.DowngradableApy(bps(t.ApyBps), bps(*t.FallbackBps))
	}
	switch strings.ToLower(strings.TrimSpace(t.Kind)) {
	case "fixed":
		if t.LockupDays <= 0 {
			return nil, fmt.Errorf("fixed terms need lockupDays")
		}
		return jar.FixedTerms{LockupTerm: t.LockupDays * jar.MsInDay, Apy: apy}, nil
	case "flexible":
		return jar.FlexibleTerms{Apy: apy}, nil
	case "score", "score_based":
		if t.LockupDays <= 0 {
			return nil, fmt.Errorf("score-based terms need lockupDays")
		}
		return jar.ScoreBasedTerms{ScoreCap: t.ScoreCap, LockupTerm: t.LockupDays * jar.MsInDay}, nil
	default:
		return nil, fmt.Errorf("unknown terms kind %q", t.Kind)
	}
}

func (f *GenesisFee) build() (*jar.Fee, error) {
	switch strings.ToLower(strings.TrimSpace(f.Kind)) {
	case "fixed":
		amount, err := parseAmount(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("fee amount: %w", err)
		}
		return &jar.Fee{Kind: jar.FeeFixed, Amount: amount}, nil
	case "percent":
		return &jar.Fee{Kind: jar.FeePercent, Rate: bps(f.RateBps)}, nil
	default:
		return nil, fmt.Errorf("unknown fee kind %q", f.Kind)
	}
}

// bps turns basis points into a decimal rate, e.g. 1200 bps is 0.12.
func bps(points uint64) udecimal.UDecimal {
	return udecimal.New(points, 4)
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}
