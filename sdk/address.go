package sdk

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned when a string is not a base58 encoded ed25519 key.
var ErrInvalidAddress = errors.New("invalid address")

// Address is the base58 form of a 32 byte ed25519 public key (or of a derived account hash).
type Address string

// String returns the literal base58 representation.
func (a Address) String() string {
	return string(a)
}

// Short trims the address to head...tail for log lines and terminal output.
// Example payload: sdk.Address("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin").Short()
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// IsValid is a light sanity check: decodes and checks the key length.
func (a Address) IsValid() bool {
	raw, err := base58.Decode(string(a))
	return err == nil && len(raw) == ed25519.PublicKeySize
}

// PublicKey decodes the address back into the ed25519 key used to verify signatures.
func (a Address) PublicKey() (ed25519.PublicKey, error) {
	raw, err := base58.Decode(string(a))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, string(a))
	}
	return ed25519.PublicKey(raw), nil
}

// ParseAddress trims and validates user input.
func ParseAddress(s string) (Address, error) {
	a := Address(strings.TrimSpace(s))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return a, nil
}

// AddressFromPublicKey encodes a raw public key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return Address(base58.Encode(pub))
}

// AddressFromHash encodes a 32 byte digest, used for derived account addresses.
func AddressFromHash(sum [32]byte) Address {
	return Address(base58.Encode(sum[:]))
}

// GenerateKey creates a fresh signer identity.
func GenerateKey() (Address, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	return AddressFromPublicKey(pub), priv, nil
}

// EncodePrivateKey renders a private key the way key files store it.
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return base58.Encode(priv)
}

// DecodePrivateKey parses a key file body and returns the key plus its address.
func DecodePrivateKey(s string) (ed25519.PrivateKey, Address, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, "", fmt.Errorf("decode private key: want %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	return priv, AddressFromPublicKey(priv.Public().(ed25519.PublicKey)), nil
}
