package tokens

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

var testNodes = []interfaces.NodeDescriptor{
	{ID: "node-a", BaseURL: "https://node-a.example"},
	{ID: "node-b", BaseURL: "https://node-b.example"},
	{ID: "node-c", BaseURL: "https://node-c.example"},
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	keyPEM, err := GenerateKeyPEM()
	require.NoError(t, err, "Failed to generate test key")
	issuer, err := NewIssuer("test-caller", keyPEM)
	require.NoError(t, err, "NewIssuer should accept a fresh key")
	return issuer
}

func TestIssuer_NewIssuer(t *testing.T) {
	keyPEM, err := GenerateKeyPEM()
	require.NoError(t, err)

	_, err = NewIssuer("", keyPEM)
	assert.Error(t, err, "Should require a caller identity")

	_, err = NewIssuer("caller", []byte("not a pem"))
	assert.Error(t, err, "Malformed key material must fail before any operation")
}

func TestIssuer_IssueTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	minted, err := issuer.IssueTokens(testNodes)
	require.NoError(t, err)
	require.Len(t, minted, len(testNodes), "Should mint one token per node")

	for i, token := range minted {
		for j, other := range minted {
			if i != j {
				assert.NotEqual(t, token, other, "Tokens for different nodes must differ")
			}
		}
		claims := decodeClaims(t, token)
		assert.Equal(t, "test-caller", claims["iss"], "Issuer claim should carry the caller identity")
		assert.Equal(t, testNodes[i].ID.String(), claims["aud"], "Audience claim should carry node %d identity", i)
	}
}

func TestIssuer_ClaimShape(t *testing.T) {
	issuer := newTestIssuer(t)
	before := time.Now().Add(TokenLifetime).Unix()

	minted, err := issuer.IssueTokens(testNodes[:1])
	require.NoError(t, err)

	claims := decodeClaims(t, minted[0])
	assert.Len(t, claims, 3, "Tokens must carry exactly iss, aud and exp")

	exp, ok := claims["exp"].(float64)
	require.True(t, ok, "exp must be numeric unix time")
	assert.GreaterOrEqual(t, int64(exp), before, "Expiry should be one hour out")
	assert.LessOrEqual(t, int64(exp), time.Now().Add(TokenLifetime).Unix(), "Expiry should not exceed the lifetime")
}

func TestVerifier_AudienceBinding(t *testing.T) {
	issuer := newTestIssuer(t)
	pubPEM, err := issuer.PublicKeyPEM()
	require.NoError(t, err)

	minted, err := issuer.IssueTokens(testNodes)
	require.NoError(t, err)

	verifierA, err := NewVerifier("node-a", pubPEM)
	require.NoError(t, err)
	verifierB, err := NewVerifier("node-b", pubPEM)
	require.NoError(t, err)

	caller, err := verifierA.Verify(minted[0])
	require.NoError(t, err, "Node A must accept its own token")
	assert.Equal(t, "test-caller", caller)

	_, err = verifierB.Verify(minted[0])
	assert.Error(t, err, "Node B must reject a token minted for node A")

	_, err = verifierA.Verify(minted[1])
	assert.Error(t, err, "Node A must reject a token minted for node B")
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-2 * TokenLifetime) }

	minted, err := issuer.IssueTokens(testNodes[:1])
	require.NoError(t, err)

	pubPEM, err := issuer.PublicKeyPEM()
	require.NoError(t, err)
	verifier, err := NewVerifier("node-a", pubPEM)
	require.NoError(t, err)

	_, err = verifier.Verify(minted[0])
	assert.Error(t, err, "Expired tokens must be rejected")
}

func TestVerifier_RejectsForeignKey(t *testing.T) {
	issuer := newTestIssuer(t)
	other := newTestIssuer(t)

	minted, err := other.IssueTokens(testNodes[:1])
	require.NoError(t, err)

	pubPEM, err := issuer.PublicKeyPEM()
	require.NoError(t, err)
	verifier, err := NewVerifier("node-a", pubPEM)
	require.NoError(t, err)

	_, err = verifier.Verify(minted[0])
	assert.Error(t, err, "Tokens signed by an unknown key must be rejected")
}

// decodeClaims pulls the raw claim set out of the compact serialization.
func decodeClaims(t *testing.T, token interfaces.BearerToken) map[string]any {
	t.Helper()
	parts := strings.Split(token.String(), ".")
	require.Len(t, parts, 3, "Token should be a compact JWT")

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err, "Token payload should be base64url")

	var claims map[string]any
	require.NoError(t, json.Unmarshal(payload, &claims), "Token payload should be JSON")
	return claims
}
