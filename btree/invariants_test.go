package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandomizedOperationSequenceHoldsInvariants drives a long,
// reproducible mix of inserts and deletes and checks the tree's
// structural invariants (Validate) after every single mutation, plus a
// membership check against a parallel Go map at the end.
func TestRandomizedOperationSequenceHoldsInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invariants.db")
	tr, err := Open(path, Options{})
	require.NoError(t, err)
	defer tr.Close()

	rng := rand.New(rand.NewSource(42))
	live := map[int32]bool{}

	const ops = 6000
	for i := 0; i < ops; i++ {
		key := int32(rng.Intn(500))
		if !live[key] {
			require.NoError(t, tr.Insert(testRow(key)), "insert %d at op %d", key, i)
			live[key] = true
		} else if rng.Intn(3) == 0 {
			require.NoError(t, tr.Delete(key), "delete %d at op %d", key, i)
			delete(live, key)
		} else {
			require.ErrorIs(t, tr.Insert(testRow(key)), ErrDuplicateKey)
		}
		require.NoErrorf(t, tr.Validate(), "invariant violated after op %d (key %d)", i, key)
	}

	require.Equal(t, uint32(len(live)), tr.NumRows())

	var want []int32
	for k := range live {
		want = append(want, k)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	var got []int32
	c, err := tr.ScanStart()
	require.NoError(t, err)
	for !c.EndOfTable() {
		k, err := c.Key()
		require.NoError(t, err)
		got = append(got, k)
		require.NoError(t, c.Advance())
	}
	require.Equal(t, want, got, fmt.Sprintf("final scan mismatch, %d live keys", len(live)))
}
