package state

import (
	"fmt"
	"math/big"
	"sort"

	"jarvault/crypto"
	"jarvault/native/jar"
	"jarvault/udecimal"
)

type storedDecimal struct {
	Significand []byte
	Exponent    uint32
}

type storedApy struct {
	Default     storedDecimal
	HasFallback bool
	Fallback    storedDecimal
}

type storedTerms struct {
	Kind       uint8
	LockupTerm uint64
	Apy        storedApy
	ScoreCap   uint64
}

type storedFee struct {
	Kind   uint8
	Amount *big.Int
	Rate   storedDecimal
}

type storedProduct struct {
	ID      string
	CapMin  *big.Int
	CapMax  *big.Int
	Terms   storedTerms
	HasFee  bool
	Fee     storedFee
	HasKey  bool
	Key     []byte
	Enabled bool
}

func productKey(id jar.ProductID) []byte {
	return append(append([]byte(nil), productPrefix...), []byte(id)...)
}

// GetProduct loads a product, or nil when it was never registered.
func (m *Manager) GetProduct(id jar.ProductID) (*jar.Product, error) {
	var stored storedProduct
	ok, err := m.get(productKey(id), &stored)
	if err != nil {
		return nil, fmt.Errorf("state: load product %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return productFromStored(&stored)
}

// PutProduct persists the product and maintains the listing index.
func (m *Manager) PutProduct(p *jar.Product) error {
	if p == nil {
		return fmt.Errorf("state: nil product")
	}
	stored, err := productToStored(p)
	if err != nil {
		return err
	}
	if err := m.put(productKey(p.ID), stored); err != nil {
		return fmt.Errorf("state: store product %s: %w", p.ID, err)
	}
	return m.indexProduct(string(p.ID))
}

// ListProducts returns every registered product in index order.
func (m *Manager) ListProducts() ([]*jar.Product, error) {
	var index []string
	if _, err := m.get(productIndexKey, &index); err != nil {
		return nil, fmt.Errorf("state: load product index: %w", err)
	}
	products := make([]*jar.Product, 0, len(index))
	for _, id := range index {
		product, err := m.GetProduct(jar.ProductID(id))
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("state: indexed product %s missing", id)
		}
		products = append(products, product)
	}
	return products, nil
}

func (m *Manager) indexProduct(id string) error {
	var index []string
	if _, err := m.get(productIndexKey, &index); err != nil {
		return fmt.Errorf("state: load product index: %w", err)
	}
	for _, existing := range index {
		if existing == id {
			return nil
		}
	}
	index = append(index, id)
	sort.Strings(index)
	if err := m.put(productIndexKey, index); err != nil {
		return fmt.Errorf("state: store product index: %w", err)
	}
	return nil
}

func productToStored(p *jar.Product) (*storedProduct, error) {
	stored := &storedProduct{
		ID:      string(p.ID),
		CapMin:  amountOrZero(p.Cap.Min),
		CapMax:  amountOrZero(p.Cap.Max),
		Enabled: p.Enabled,
	}
	terms, err := termsToStored(p.Terms)
	if err != nil {
		return nil, err
	}
	stored.Terms = terms
	if p.WithdrawalFee != nil {
		stored.HasFee = true
		stored.Fee = storedFee{
			Kind:   uint8(p.WithdrawalFee.Kind),
			Amount: amountOrZero(p.WithdrawalFee.Amount),
			Rate:   decimalToStored(p.WithdrawalFee.Rate),
		}
	}
	if p.AuthorizationKey != nil {
		stored.HasKey = true
		stored.Key = p.AuthorizationKey.Bytes()
	}
	return stored, nil
}

func productFromStored(stored *storedProduct) (*jar.Product, error) {
	terms, err := termsFromStored(stored.Terms)
	if err != nil {
		return nil, fmt.Errorf("state: product %s: %w", stored.ID, err)
	}
	p := &jar.Product{
		ID:      jar.ProductID(stored.ID),
		Cap:     jar.Cap{Min: amountOrZero(stored.CapMin), Max: amountOrZero(stored.CapMax)},
		Terms:   terms,
		Enabled: stored.Enabled,
	}
	if stored.HasFee {
		p.WithdrawalFee = &jar.Fee{
			Kind:   jar.FeeKind(stored.Fee.Kind),
			Amount: amountOrZero(stored.Fee.Amount),
			Rate:   decimalFromStored(stored.Fee.Rate),
		}
	}
	if stored.HasKey {
		key, err := crypto.PublicKeyFromBytes(stored.Key)
		if err != nil {
			return nil, fmt.Errorf("state: product %s: %w", stored.ID, err)
		}
		p.AuthorizationKey = key
	}
	return p, nil
}

func termsToStored(t jar.Terms) (storedTerms, error) {
	switch terms := t.(type) {
	case jar.FixedTerms:
		return storedTerms{
			Kind:       uint8(jar.TermsFixed),
			LockupTerm: uint64(terms.LockupTerm),
			Apy:        apyToStored(terms.Apy),
		}, nil
	case jar.FlexibleTerms:
		return storedTerms{
			Kind: uint8(jar.TermsFlexible),
			Apy:  apyToStored(terms.Apy),
		}, nil
	case jar.ScoreBasedTerms:
		return storedTerms{
			Kind:       uint8(jar.TermsScoreBased),
			LockupTerm: uint64(terms.LockupTerm),
			ScoreCap:   terms.ScoreCap,
		}, nil
	default:
		return storedTerms{}, fmt.Errorf("state: unsupported terms %T", t)
	}
}

func termsFromStored(stored storedTerms) (jar.Terms, error) {
	switch jar.TermsKind(stored.Kind) {
	case jar.TermsFixed:
		return jar.FixedTerms{
			LockupTerm: int64(stored.LockupTerm),
			Apy:        apyFromStored(stored.Apy),
		}, nil
	case jar.TermsFlexible:
		return jar.FlexibleTerms{Apy: apyFromStored(stored.Apy)}, nil
	case jar.TermsScoreBased:
		return jar.ScoreBasedTerms{
			ScoreCap:   stored.ScoreCap,
			LockupTerm: int64(stored.LockupTerm),
		}, nil
	default:
		return nil, fmt.Errorf("unknown terms kind %d", stored.Kind)
	}
}

func apyToStored(a jar.Apy) storedApy {
	stored := storedApy{Default: decimalToStored(a.Default)}
	if a.Fallback != nil {
		stored.HasFallback = true
		stored.Fallback = decimalToStored(*a.Fallback)
	}
	return stored
}

func apyFromStored(stored storedApy) jar.Apy {
	a := jar.Apy{Default: decimalFromStored(stored.Default)}
	if stored.HasFallback {
		fallback := decimalFromStored(stored.Fallback)
		a.Fallback = &fallback
	}
	return a
}

func decimalToStored(d udecimal.UDecimal) storedDecimal {
	return storedDecimal{Significand: d.Bytes(), Exponent: d.Exponent}
}

func decimalFromStored(stored storedDecimal) udecimal.UDecimal {
	return udecimal.FromBytes(stored.Significand, stored.Exponent)
}
