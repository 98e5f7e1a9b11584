package tokens

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Verifier is the node-side counterpart of Issuer: it checks a presented
// bearer token's signature, expiry and, critically, that the audience claim
// names this node. Audience binding is a hard security invariant - a token
// minted for node A must never be accepted by node B.
type Verifier struct {
	nodeID interfaces.NodeID
	pub    *ecdsa.PublicKey
}

// NewVerifier creates a verifier for one node identity against a PEM-encoded
// ECDSA public key of the trusted caller.
func NewVerifier(nodeID interfaces.NodeID, pubPEM []byte) (*Verifier, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("verifier requires a node identity")
	}
	pub, err := jwt.ParseECPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("could not parse verification key: %w", err)
	}
	return &Verifier{nodeID: nodeID, pub: pub}, nil
}

// Verify validates the token and returns the issuer identity on success.
func (v *Verifier) Verify(token interfaces.BearerToken) (string, error) {
	var claims nodeClaims
	parsed, err := jwt.ParseWithClaims(token.String(), &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.pub, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Audience != v.nodeID.String() {
		return "", fmt.Errorf("token audience %q does not match node %q", claims.Audience, v.nodeID)
	}
	return claims.Issuer, nil
}
