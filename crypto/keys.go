package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable part of a bech32 account address.
type AddressPrefix string

// JarPrefix is the prefix carried by every depositor and module address.
const JarPrefix AddressPrefix = "jar"

// Address represents a 20-byte account address with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != 20 {
		panic("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Equal reports whether two addresses carry the same raw bytes.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.bytes, other.bytes)
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long, got %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// --- Key Management ---

// PrivateKey wraps an Ed25519 signing key. Product authorization tickets are
// Ed25519 signatures over a SHA-256 digest of the ticket material.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey wraps an Ed25519 verification key.
type PublicKey struct {
	key ed25519.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes restores a private key from its 64-byte seed+public form.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return &PrivateKey{key: ed25519.PrivateKey(append([]byte(nil), b...))}, nil
}

func (p *PrivateKey) Bytes() []byte {
	return append([]byte(nil), p.key...)
}

func (p *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: p.key.Public().(ed25519.PublicKey)}
}

// Sign hashes the material with SHA-256 and signs the digest.
func (p *PrivateKey) Sign(material []byte) []byte {
	digest := sha256.Sum256(material)
	return ed25519.Sign(p.key, digest[:])
}

// PublicKeyFromBytes restores a verification key from its raw 32 bytes.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return &PublicKey{key: ed25519.PublicKey(append([]byte(nil), b...))}, nil
}

func (p *PublicKey) Bytes() []byte {
	return append([]byte(nil), p.key...)
}

// Verify checks an Ed25519 signature over the SHA-256 digest of material.
func (p *PublicKey) Verify(material, signature []byte) bool {
	if p == nil || len(p.key) != ed25519.PublicKeySize {
		return false
	}
	digest := sha256.Sum256(material)
	return ed25519.Verify(p.key, digest[:], signature)
}

// Address derives the account address for the key: the first 20 bytes of the
// SHA-256 hash of the public key.
func (p *PublicKey) Address() Address {
	digest := sha256.Sum256(p.key)
	return NewAddress(JarPrefix, digest[:20])
}

func (p *PublicKey) String() string {
	return hex.EncodeToString(p.key)
}
