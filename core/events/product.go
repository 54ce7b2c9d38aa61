package events

import (
	"encoding/hex"

	"jarvault/core/types"
)

const (
	TypeProductRegistered = "product.registered"
	TypeProductEnabled    = "product.enabled_changed"
	TypeProductKeyRotated = "product.key_rotated"
)

// ProductRegistered is emitted when an admin registers a new deposit product.
type ProductRegistered struct {
	ProductID string
	Terms     string
}

func (ProductRegistered) EventType() string { return TypeProductRegistered }

func (e ProductRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeProductRegistered,
		Attributes: map[string]string{
			"product": e.ProductID,
			"terms":   e.Terms,
		},
	}
}

// ProductEnabledChanged is emitted when a product's enabled flag toggles.
type ProductEnabledChanged struct {
	ProductID string
	Enabled   bool
}

func (ProductEnabledChanged) EventType() string { return TypeProductEnabled }

func (e ProductEnabledChanged) Event() *types.Event {
	enabled := "false"
	if e.Enabled {
		enabled = "true"
	}
	return &types.Event{
		Type: TypeProductEnabled,
		Attributes: map[string]string{
			"product": e.ProductID,
			"enabled": enabled,
		},
	}
}

// ProductKeyRotated is emitted when a product's authorization key changes.
type ProductKeyRotated struct {
	ProductID string
	PublicKey []byte
}

func (ProductKeyRotated) EventType() string { return TypeProductKeyRotated }

func (e ProductKeyRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeProductKeyRotated,
		Attributes: map[string]string{
			"product":   e.ProductID,
			"publicKey": hex.EncodeToString(e.PublicKey),
		},
	}
}
