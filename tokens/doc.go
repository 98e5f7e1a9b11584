// Package tokens mints and verifies the short-lived node-scoped bearer
// credentials used for every vault operation.
//
// Each token is an ES256-signed JWT with exactly three claims: iss (the
// caller identity), aud (one node's identity) and exp (one hour out).
// Tokens are minted freshly for every coordinator operation - there is no
// cache and no background refresh - and each token is accepted only by the
// node named in its audience claim.
package tokens
