package sharing

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

func TestEngine_NewEngine(t *testing.T) {
	_, err := NewEngine(1)
	assert.Error(t, err, "Should refuse a single-node topology")

	_, err = NewEngine(0)
	assert.Error(t, err, "Should refuse an empty topology")

	engine, err := NewEngine(3)
	require.NoError(t, err, "Should accept a 3-node topology")
	assert.Equal(t, 3, engine.Nodes(), "Engine should report its node binding")
}

func TestEngine_RoundTrip(t *testing.T) {
	values := []string{
		"All customer data anonymized.",
		"",
		"unicode: žluťoučký kůň 🔐",
		"x",
	}

	for _, nodes := range []int{2, 3, 5} {
		for _, kind := range []interfaces.FieldKind{interfaces.FieldSecret, interfaces.FieldSecretMatch} {
			t.Run(fmt.Sprintf("%s_%d_nodes", kind, nodes), func(t *testing.T) {
				engine, err := NewEngine(nodes)
				require.NoError(t, err)

				for _, value := range values {
					shares, err := engine.Split(kind, value)
					require.NoError(t, err, "Split should succeed for %q", value)
					require.Len(t, shares, nodes, "Should produce one share per node")

					combined, err := engine.Combine(kind, shares)
					require.NoError(t, err, "Combine should succeed for %q", value)
					assert.Equal(t, value, combined, "Round trip should restore the original value")
				}
			})
		}
	}
}

func TestEngine_RoundTripSum(t *testing.T) {
	engine, err := NewEngine(3)
	require.NoError(t, err)

	for _, value := range []int64{0, 1, 42, 1<<32 - 1} {
		shares, err := engine.Split(interfaces.FieldSecretSum, value)
		require.NoError(t, err, "Split should accept %d", value)
		require.Len(t, shares, 3)

		combined, err := engine.Combine(interfaces.FieldSecretSum, shares)
		require.NoError(t, err)
		assert.Equal(t, value, combined, "Round trip should restore the original integer")
	}
}

func TestEngine_ThresholdEnforcement(t *testing.T) {
	for nodes := 2; nodes <= 5; nodes++ {
		t.Run(fmt.Sprintf("%d_nodes", nodes), func(t *testing.T) {
			engine, err := NewEngine(nodes)
			require.NoError(t, err)

			shares, err := engine.Split(interfaces.FieldSecret, "top secret")
			require.NoError(t, err)

			for count := 0; count < nodes; count++ {
				_, err := engine.Combine(interfaces.FieldSecret, shares[:count])
				require.Error(t, err, "Combine with %d of %d shares must fail", count, nodes)
				assert.ErrorIs(t, err, interfaces.ErrInsufficientShares,
					"Sub-threshold combine must fail deterministically, not return a wrong value")
			}

			tooMany := append(append([]interfaces.Share{}, shares...), shares[0])
			_, err = engine.Combine(interfaces.FieldSecret, tooMany)
			assert.ErrorIs(t, err, interfaces.ErrInsufficientShares,
				"A share count above the node count must be rejected too")
		})
	}
}

func TestEngine_OpaqueSharesAreRandomized(t *testing.T) {
	engine, err := NewEngine(3)
	require.NoError(t, err)

	first, err := engine.Split(interfaces.FieldSecret, "same value")
	require.NoError(t, err)
	second, err := engine.Split(interfaces.FieldSecret, "same value")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "Equal plaintexts must not leak equality through opaque shares")
}

func TestEngine_MatchSharesAreDeterministic(t *testing.T) {
	engine, err := NewEngine(3)
	require.NoError(t, err)

	first, err := engine.Split(interfaces.FieldSecretMatch, "EU DPO")
	require.NoError(t, err)
	second, err := engine.Split(interfaces.FieldSecretMatch, "EU DPO")
	require.NoError(t, err)
	assert.Equal(t, first, second, "Equal plaintexts must produce identical match share sets")

	other, err := engine.Split(interfaces.FieldSecretMatch, "US DPO")
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "Distinct plaintexts must produce distinct match shares")

	for i := 0; i < 3; i++ {
		share, err := engine.MatchShare("EU DPO", i)
		require.NoError(t, err)
		assert.Equal(t, first[i], share, "MatchShare must agree with Split for node %d", i)
	}

	_, err = engine.MatchShare("EU DPO", 3)
	assert.Error(t, err, "Node index beyond the topology must be rejected")
}

func TestEngine_SumSharesAreAdditive(t *testing.T) {
	engine, err := NewEngine(3)
	require.NoError(t, err)

	a, err := engine.Split(interfaces.FieldSecretSum, int64(1200))
	require.NoError(t, err)
	b, err := engine.Split(interfaces.FieldSecretSum, int64(34))
	require.NoError(t, err)

	// Summing per-node shares of two records and combining the sums must
	// yield the sum of the plaintexts, without either value being
	// reconstructed on its own.
	summed := make([]interfaces.Share, 3)
	for i := 0; i < 3; i++ {
		av := mustParseShare(t, a[i])
		bv := mustParseShare(t, b[i])
		summed[i] = interfaces.Share(fmt.Sprintf("%d", (av+bv)%(uint64(1)<<32)))
	}

	combined, err := engine.Combine(interfaces.FieldSecretSum, summed)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), combined, "Share-wise sums must combine to the plaintext sum")
}

func TestEngine_SumRange(t *testing.T) {
	engine, err := NewEngine(2)
	require.NoError(t, err)

	_, err = engine.Split(interfaces.FieldSecretSum, int64(-1))
	assert.Error(t, err, "Negative values are outside the additive group")

	_, err = engine.Split(interfaces.FieldSecretSum, int64(1)<<32)
	assert.Error(t, err, "Values at or above the modulus must be rejected")

	_, err = engine.Split(interfaces.FieldSecretSum, "not a number")
	assert.Error(t, err, "Secret-sum fields only accept integers")
}

func TestEngine_CombineRejectsMalformedShares(t *testing.T) {
	engine, err := NewEngine(2)
	require.NoError(t, err)

	shares, err := engine.Split(interfaces.FieldSecret, "value")
	require.NoError(t, err)

	corrupted := []interfaces.Share{shares[0], "!!! not base64 !!!"}
	_, err = engine.Combine(interfaces.FieldSecret, corrupted)
	assert.ErrorIs(t, err, interfaces.ErrBadShare, "Undecodable shares must be reported, not combined")

	matchShares, err := engine.Split(interfaces.FieldSecretMatch, "value")
	require.NoError(t, err)
	truncated := []interfaces.Share{matchShares[0], "AAAA"}
	_, err = engine.Combine(interfaces.FieldSecretMatch, truncated)
	require.Error(t, err, "Length-mismatched match shares must fail")
	assert.True(t, errors.Is(err, interfaces.ErrReconstruction) || errors.Is(err, interfaces.ErrBadShare),
		"Failure must use the reconstruction taxonomy, got: %v", err)
}

func TestEngine_ConcurrentFirstUse(t *testing.T) {
	engine, err := NewEngine(3)
	require.NoError(t, err)

	// All goroutines race the lazy key initialization; match shares are a
	// pure function of the key, so any disagreement means two key materials
	// were created.
	const goroutines = 16
	results := make([][]interfaces.Share, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			shares, err := engine.Split(interfaces.FieldSecretMatch, "raced value")
			assert.NoError(t, err)
			results[g] = shares
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		assert.Equal(t, results[0], results[g],
			"Concurrent first use must settle on a single cluster key")
	}
}

func mustParseShare(t *testing.T, s interfaces.Share) uint64 {
	t.Helper()
	var v uint64
	_, err := fmt.Sscanf(s.String(), "%d", &v)
	require.NoError(t, err, "Additive share should be a decimal string")
	return v
}
