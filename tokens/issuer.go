package tokens

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// TokenLifetime is the fixed validity window of every minted token.
// Coordinators mint fresh tokens per operation, so nothing in this module
// ever holds a token long enough to see it expire.
const TokenLifetime = time.Hour

// nodeClaims is the exact claim set carried by a node-scoped token:
// issuer = the caller's identity, audience = one node's identity, and a
// unix expiry. Nothing else.
type nodeClaims struct {
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
}

// Valid implements jwt.Claims.
func (c nodeClaims) Valid() error {
	if time.Now().Unix() >= c.ExpiresAt {
		return errors.New("token is expired")
	}
	return nil
}

// Issuer mints short-lived node-scoped bearer tokens signed with the
// caller's ECDSA key. It is stateless: every IssueTokens call signs a fresh
// batch and nothing is cached or refreshed in the background.
type Issuer struct {
	callerID string
	key      *ecdsa.PrivateKey
	now      func() time.Time
}

// NewIssuer creates a token issuer for the given caller identity. The key
// must be a PEM-encoded ECDSA private key; malformed key material is
// reported here, before any operation is attempted.
func NewIssuer(callerID string, keyPEM []byte) (*Issuer, error) {
	if callerID == "" {
		return nil, errors.New("issuer requires a caller identity")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("could not parse signing key: %w", err)
	}
	return &Issuer{callerID: callerID, key: key, now: time.Now}, nil
}

// IssueTokens mints one token per node descriptor, in descriptor order, each
// bound to that node's identity as audience. A token minted for one node
// must be rejected by every other node; the audience claim is what enforces
// that, so it is set per token and never shared.
//
// Any signing problem fails the whole batch with ErrSigningFailure: the
// caller must abort before making network calls.
func (i *Issuer) IssueTokens(nodes []interfaces.NodeDescriptor) ([]interfaces.BearerToken, error) {
	if i.key == nil {
		return nil, fmt.Errorf("%w: no signing key", interfaces.ErrSigningFailure)
	}

	exp := i.now().Add(TokenLifetime).Unix()
	out := make([]interfaces.BearerToken, 0, len(nodes))
	for _, node := range nodes {
		claims := nodeClaims{
			Issuer:    i.callerID,
			Audience:  node.ID.String(),
			ExpiresAt: exp,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(i.key)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s: %v", interfaces.ErrSigningFailure, node.ID, err)
		}
		out = append(out, interfaces.BearerToken(signed))
	}
	return out, nil
}

// PublicKeyPEM returns the issuer's public key in PEM form, for distribution
// to nodes that verify its tokens.
func (i *Issuer) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&i.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("could not marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// GenerateKeyPEM generates a fresh P-256 signing key in PEM form. Intended
// for development setups and tests.
func GenerateKeyPEM() ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
