package chain

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	suisigner "github.com/block-vision/sui-go-sdk/signer"
)

const ed25519Flag byte = 0x00

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Signer - ed25519 account key.
type Signer struct {
	key     ed25519.PrivateKey
	address string
}

// NewSigner - accepts a hex seed (optionally 0x-prefixed) or a base64 keystore entry (flag || seed).
func NewSigner(privateKey string) (*Signer, error) {
	seed, err := decodeSeed(strings.TrimSpace(privateKey))
	if err != nil {
		return nil, err
	}

	account := suisigner.NewSigner(seed)

	return &Signer{
		key:     account.PriKey,
		address: account.Address,
	}, nil
}

func decodeSeed(value string) ([]byte, error) {
	if raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x")); err == nil && len(raw) == ed25519.SeedSize {
		return raw, nil
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: neither hex nor base64", ErrInvalidPrivateKey)
	}

	switch {
	case len(raw) == ed25519.SeedSize+1 && raw[0] == ed25519Flag:
		return raw[1:], nil
	case len(raw) == ed25519.SeedSize:
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidPrivateKey, len(raw))
	}
}

func (that *Signer) Address() string {
	return that.address
}
