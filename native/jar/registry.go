package jar

import (
	"fmt"
	"strings"

	"jarvault/core/events"
	"jarvault/crypto"
	"jarvault/udecimal"
)

func oneHundredPercent() udecimal.UDecimal { return udecimal.New(1, 0) }

type registryState interface {
	GetProduct(id ProductID) (*Product, error)
	PutProduct(p *Product) error
	ListProducts() ([]*Product, error)
}

// Registry manages persistence and retrieval of deposit products. Products
// are immutable after registration except for the enabled flag and the
// authorization key, which admins may toggle and rotate.
type Registry struct {
	st      registryState
	emitter events.Emitter
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// Register validates and persists a new product.
func (r *Registry) Register(p *Product) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	sanitized, err := sanitizeProduct(p)
	if err != nil {
		return err
	}
	existing, err := r.st.GetProduct(sanitized.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrProductExists, sanitized.ID)
	}
	if err := r.st.PutProduct(sanitized); err != nil {
		return err
	}
	r.emitter.Emit(events.ProductRegistered{
		ProductID: string(sanitized.ID),
		Terms:     termsLabel(sanitized.Terms),
	})
	return nil
}

// SetEnabled toggles whether new deposits under the product are accepted.
func (r *Registry) SetEnabled(id ProductID, enabled bool) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	product, err := r.Get(id)
	if err != nil {
		return err
	}
	product.Enabled = enabled
	if err := r.st.PutProduct(product); err != nil {
		return err
	}
	r.emitter.Emit(events.ProductEnabledChanged{ProductID: string(id), Enabled: enabled})
	return nil
}

// SetPublicKey rotates the product's deposit authorization key.
func (r *Registry) SetPublicKey(id ProductID, key []byte) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	product, err := r.Get(id)
	if err != nil {
		return err
	}
	pub, err := crypto.PublicKeyFromBytes(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	product.AuthorizationKey = pub
	if err := r.st.PutProduct(product); err != nil {
		return err
	}
	r.emitter.Emit(events.ProductKeyRotated{ProductID: string(id), PublicKey: pub.Bytes()})
	return nil
}

// Get returns the product or ErrProductNotFound.
func (r *Registry) Get(id ProductID) (*Product, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	product, err := r.st.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return product, nil
}

// List returns every registered product.
func (r *Registry) List() ([]*Product, error) {
	if r == nil || r.st == nil {
		return nil, ErrNilState
	}
	return r.st.ListProducts()
}

func sanitizeProduct(p *Product) (*Product, error) {
	if p == nil {
		return nil, ErrInvalidProduct
	}
	id := ProductID(strings.TrimSpace(string(p.ID)))
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidProduct)
	}
	if p.Terms == nil {
		return nil, fmt.Errorf("%w: missing terms", ErrInvalidProduct)
	}
	if p.Cap.Min == nil || p.Cap.Max == nil || p.Cap.Min.Sign() < 0 || p.Cap.Min.Cmp(p.Cap.Max) >= 0 {
		return nil, fmt.Errorf("%w: cap min must be below cap max", ErrInvalidProduct)
	}
	if p.Terms.Kind() == TermsScoreBased && p.AuthorizationKey == nil {
		return nil, fmt.Errorf("%w: score-based product requires an authorization key", ErrInvalidProduct)
	}
	if err := sanitizeFee(p.WithdrawalFee, p); err != nil {
		return nil, err
	}
	clone := *p
	clone.ID = id
	return &clone, nil
}

// sanitizeFee enforces "fee cannot exceed principal" at registration time: a
// fixed fee must stay below the smallest accepted deposit and a percentage
// must not exceed 100%.
func sanitizeFee(f *Fee, p *Product) error {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case FeeFixed:
		if f.Amount == nil || f.Amount.Sign() < 0 {
			return fmt.Errorf("%w: fixed fee amount required", ErrInvalidProduct)
		}
		if f.Amount.Cmp(p.Cap.Min) >= 0 {
			return fmt.Errorf("%w: fixed fee exceeds the minimal deposit", ErrInvalidProduct)
		}
	case FeePercent:
		one := oneHundredPercent()
		if f.Rate.Cmp(one) > 0 {
			return fmt.Errorf("%w: percent fee above 100%%", ErrInvalidProduct)
		}
	default:
		return fmt.Errorf("%w: unknown fee kind %d", ErrInvalidProduct, f.Kind)
	}
	return nil
}

func termsLabel(t Terms) string {
	switch t.Kind() {
	case TermsFixed:
		return "fixed"
	case TermsFlexible:
		return "flexible"
	case TermsScoreBased:
		return "score_based"
	default:
		return "unknown"
	}
}
