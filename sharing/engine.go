package sharing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"sync"

	"github.com/hashicorp/vault/shamir"
	"golang.org/x/crypto/hkdf"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// sumModulus bounds secret-sum values. Additive shares are summands modulo
// this value, so plaintexts must lie in [0, sumModulus).
const sumModulus = uint64(1) << 32

// versionByte prefixes every split plaintext. Combine checks it, which turns
// most garbage reconstructions into explicit ErrReconstruction instead of a
// silently wrong value.
const versionByte = 0x01

const matchKeyInfo = "secretvault/match-key/v1"

// Engine owns the cluster key and implements interfaces.SecretSharer for a
// fixed node topology. The key is generated lazily on first use, exactly
// once per process; adding or removing nodes requires a new Engine and
// breaks reconstruction of data split under the old key.
type Engine struct {
	nodes int

	initOnce sync.Once
	initErr  error
	key      *clusterKey
}

// clusterKey is the process-wide key material. Immutable once constructed;
// later calls only read it.
type clusterKey struct {
	matchKey []byte // parameterizes deterministic match-share keystreams
}

// NewEngine creates a sharing engine bound to the given node count. The
// cluster key itself is not generated until the first split or combine.
func NewEngine(nodes int) (*Engine, error) {
	if nodes < 2 {
		return nil, fmt.Errorf("sharing requires at least 2 nodes, got %d", nodes)
	}
	if nodes > 255 {
		return nil, fmt.Errorf("sharing supports at most 255 nodes, got %d", nodes)
	}
	return &Engine{nodes: nodes}, nil
}

// Nodes returns the node count the cluster key is bound to.
func (e *Engine) Nodes() int {
	return e.nodes
}

// init generates the cluster key. Guarded by a once so concurrent first
// callers can never observe two different key materials.
func (e *Engine) init() error {
	e.initOnce.Do(func() {
		root := make([]byte, 32)
		if _, err := rand.Read(root); err != nil {
			e.initErr = fmt.Errorf("could not generate cluster key: %w", err)
			return
		}

		matchKey := make([]byte, 32)
		kdf := hkdf.New(sha256.New, root, nil, []byte(matchKeyInfo))
		if _, err := io.ReadFull(kdf, matchKey); err != nil {
			e.initErr = fmt.Errorf("could not derive match key: %w", err)
			return
		}

		e.key = &clusterKey{matchKey: matchKey}
	})
	return e.initErr
}

// Split produces exactly one share per configured node. String values are
// accepted for secret and secret-match fields, int64 for secret-sum fields.
func (e *Engine) Split(kind interfaces.FieldKind, value any) ([]interfaces.Share, error) {
	if err := e.init(); err != nil {
		return nil, err
	}

	switch kind {
	case interfaces.FieldSecret:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		return e.splitOpaque(s)
	case interfaces.FieldSecretMatch:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		return e.splitMatch(s)
	case interfaces.FieldSecretSum:
		n, err := intValue(value)
		if err != nil {
			return nil, err
		}
		return e.splitSum(n)
	default:
		return nil, fmt.Errorf("field kind %s is not splittable", kind)
	}
}

// Combine reconstructs the original value from a complete share set. The
// share count must match the configured node count exactly; anything less
// fails with ErrInsufficientShares rather than silently producing a wrong
// value.
func (e *Engine) Combine(kind interfaces.FieldKind, shares []interfaces.Share) (any, error) {
	if err := e.init(); err != nil {
		return nil, err
	}
	if len(shares) != e.nodes {
		return nil, fmt.Errorf("%w: have %d shares, cluster has %d nodes",
			interfaces.ErrInsufficientShares, len(shares), e.nodes)
	}

	switch kind {
	case interfaces.FieldSecret:
		return e.combineOpaque(shares)
	case interfaces.FieldSecretMatch:
		return e.combineMatch(shares)
	case interfaces.FieldSecretSum:
		return e.combineSum(shares)
	default:
		return nil, fmt.Errorf("field kind %s is not combinable", kind)
	}
}

// splitOpaque shares a value with Shamir splitting at an N-of-N threshold.
// Shares are randomized, so equal plaintexts produce unrelated share sets.
func (e *Engine) splitOpaque(value string) ([]interfaces.Share, error) {
	plain := append([]byte{versionByte}, value...)
	parts, err := shamir.Split(plain, e.nodes, e.nodes)
	if err != nil {
		return nil, fmt.Errorf("could not split value: %w", err)
	}
	shares := make([]interfaces.Share, len(parts))
	for i, p := range parts {
		shares[i] = interfaces.Share(base64.StdEncoding.EncodeToString(p))
	}
	return shares, nil
}

func (e *Engine) combineOpaque(shares []interfaces.Share) (any, error) {
	parts := make([][]byte, len(shares))
	for i, s := range shares {
		raw, err := base64.StdEncoding.DecodeString(s.String())
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", interfaces.ErrBadShare, i, err)
		}
		parts[i] = raw
	}
	plain, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrReconstruction, err)
	}
	return stripVersion(plain)
}

// splitMatch shares a value deterministically: every node's share is a pure
// function of the cluster key and the plaintext, so two records holding the
// same value carry identical shares and node-side equality filters can match
// without reconstruction. The last share is the version-prefixed plaintext
// XORed with every other node's keystream, making the full set combinable.
func (e *Engine) splitMatch(value string) ([]interfaces.Share, error) {
	plain := append([]byte{versionByte}, value...)

	shares := make([]interfaces.Share, e.nodes)
	last := make([]byte, len(plain))
	copy(last, plain)

	for i := 0; i < e.nodes-1; i++ {
		pad, err := e.matchPad(value, i, len(plain))
		if err != nil {
			return nil, err
		}
		for j := range last {
			last[j] ^= pad[j]
		}
		shares[i] = interfaces.Share(base64.StdEncoding.EncodeToString(pad))
	}
	shares[e.nodes-1] = interfaces.Share(base64.StdEncoding.EncodeToString(last))
	return shares, nil
}

func (e *Engine) combineMatch(shares []interfaces.Share) (any, error) {
	var plain []byte
	for i, s := range shares {
		raw, err := base64.StdEncoding.DecodeString(s.String())
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", interfaces.ErrBadShare, i, err)
		}
		if plain == nil {
			plain = make([]byte, len(raw))
		} else if len(raw) != len(plain) {
			return nil, fmt.Errorf("%w: share length mismatch", interfaces.ErrReconstruction)
		}
		for j := range raw {
			plain[j] ^= raw[j]
		}
	}
	return stripVersion(plain)
}

// MatchShare returns the deterministic share node nodeIndex holds for a
// secret-match value. Used to translate caller filters into the share form
// each node can match against.
func (e *Engine) MatchShare(value string, nodeIndex int) (interfaces.Share, error) {
	if err := e.init(); err != nil {
		return "", err
	}
	if nodeIndex < 0 || nodeIndex >= e.nodes {
		return "", fmt.Errorf("node index %d out of range [0,%d)", nodeIndex, e.nodes)
	}
	shares, err := e.splitMatch(value)
	if err != nil {
		return "", err
	}
	return shares[nodeIndex], nil
}

// matchPad derives node i's keystream for a match value. The plaintext is
// bound into the HKDF info so distinct values get unrelated keystreams.
func (e *Engine) matchPad(value string, i, length int) ([]byte, error) {
	info := append([]byte{byte(i)}, value...)
	kdf := hkdf.New(sha256.New, e.key.matchKey, nil, info)
	pad := make([]byte, length)
	if _, err := io.ReadFull(kdf, pad); err != nil {
		return nil, fmt.Errorf("could not derive match keystream: %w", err)
	}
	return pad, nil
}

// splitSum shares an integer additively: N-1 uniformly random summands plus
// one balancing summand, all modulo sumModulus. Nodes (or callers) can sum
// shares across records without reconstructing individual values.
func (e *Engine) splitSum(value int64) ([]interfaces.Share, error) {
	if value < 0 || uint64(value) >= sumModulus {
		return nil, fmt.Errorf("secret-sum value %d out of range [0,%d)", value, sumModulus)
	}

	shares := make([]interfaces.Share, e.nodes)
	acc := uint64(value) % sumModulus
	mod := new(big.Int).SetUint64(sumModulus)
	for i := 0; i < e.nodes-1; i++ {
		r, err := rand.Int(rand.Reader, mod)
		if err != nil {
			return nil, fmt.Errorf("could not generate additive share: %w", err)
		}
		ri := r.Uint64()
		shares[i] = interfaces.Share(strconv.FormatUint(ri, 10))
		acc = (acc + sumModulus - ri) % sumModulus
	}
	shares[e.nodes-1] = interfaces.Share(strconv.FormatUint(acc, 10))
	return shares, nil
}

func (e *Engine) combineSum(shares []interfaces.Share) (any, error) {
	var sum uint64
	for i, s := range shares {
		v, err := strconv.ParseUint(s.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", interfaces.ErrBadShare, i, err)
		}
		if v >= sumModulus {
			return nil, fmt.Errorf("%w: share %d out of range", interfaces.ErrBadShare, i)
		}
		sum = (sum + v) % sumModulus
	}
	return int64(sum), nil
}

func stringValue(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("protected string field got %T", value)
	}
	return s, nil
}

func intValue(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		// JSON decoding hands integers over as float64.
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("secret-sum field got non-integer %v", v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("secret-sum field got %T", value)
	}
}

func stripVersion(plain []byte) (any, error) {
	if len(plain) == 0 || plain[0] != versionByte {
		return nil, fmt.Errorf("%w: bad plaintext framing", interfaces.ErrReconstruction)
	}
	return string(plain[1:]), nil
}
