package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tinysqlite/row"
)

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	tr, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func testRow(id int32) row.Row {
	return row.Row{ID: id, Username: "user", Email: "user@example.com"}
}

func TestInsertAndFindRoundTrip(t *testing.T) {
	tr := openTestTree(t)

	require.NoError(t, tr.Insert(testRow(1)))
	require.NoError(t, tr.Insert(testRow(2)))
	require.NoError(t, tr.Insert(testRow(3)))

	c, err := tr.Find(2)
	require.NoError(t, err)
	require.False(t, c.EndOfTable())
	key, err := c.Key()
	require.NoError(t, err)
	require.Equal(t, int32(2), key)
	val, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, "user", val.Username)

	require.Equal(t, uint32(3), tr.NumRows())
	require.NoError(t, tr.Validate())
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	tr := openTestTree(t)
	require.NoError(t, tr.Insert(testRow(5)))
	require.ErrorIs(t, tr.Insert(testRow(5)), ErrDuplicateKey)
}

func TestInsertOutOfOrderKeepsScanSorted(t *testing.T) {
	tr := openTestTree(t)
	ids := []int32{50, 10, 30, 20, 40, 5, 45}
	for _, id := range ids {
		require.NoError(t, tr.Insert(testRow(id)))
	}
	require.NoError(t, tr.Validate())

	c, err := tr.ScanStart()
	require.NoError(t, err)
	var seen []int32
	for !c.EndOfTable() {
		k, err := c.Key()
		require.NoError(t, err)
		seen = append(seen, k)
		require.NoError(t, c.Advance())
	}
	require.Equal(t, []int32{5, 10, 20, 30, 40, 45, 50}, seen)
}

func TestFindMissingKeyReportsNotFoundViaDelete(t *testing.T) {
	tr := openTestTree(t)
	require.NoError(t, tr.Insert(testRow(1)))
	require.ErrorIs(t, tr.Delete(99), ErrKeyNotFound)
}

func TestLeafSplitAcrossBoundary(t *testing.T) {
	tr := openTestTree(t)
	// Fill the root leaf to exactly LeafMaxCells, then push it one over.
	for i := int32(0); i < LeafMaxCells; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(LeafMaxCells), tr.NumRows())

	require.NoError(t, tr.Insert(testRow(LeafMaxCells)))
	require.NoError(t, tr.Validate())

	c, err := tr.ScanStart()
	require.NoError(t, err)
	count := 0
	for !c.EndOfTable() {
		count++
		require.NoError(t, c.Advance())
	}
	require.Equal(t, int(LeafMaxCells)+1, count)
}

func TestManyInsertsTriggerInternalSplitsAndRemainValid(t *testing.T) {
	tr := openTestTree(t)
	// Sequential inserts leave about seven cells per leaf, so 5000 keys need
	// more than InternalMaxChildren leaves and force the root internal to split.
	const n = 5000
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(n), tr.NumRows())

	c, err := tr.ScanStart()
	require.NoError(t, err)
	var prev int32 = -1
	count := 0
	for !c.EndOfTable() {
		k, err := c.Key()
		require.NoError(t, err)
		require.Greater(t, k, prev)
		prev = k
		count++
		require.NoError(t, c.Advance())
	}
	require.Equal(t, n, count)
}

func TestDeleteAndRebalance(t *testing.T) {
	tr := openTestTree(t)
	const n = 200
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())

	for i := int32(0); i < n; i += 2 {
		require.NoError(t, tr.Delete(i))
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(n/2), tr.NumRows())

	for i := int32(1); i < n; i += 2 {
		_, err := tr.Find(i)
		require.NoError(t, err)
	}
	for i := int32(0); i < n; i += 2 {
		require.ErrorIs(t, tr.Delete(i), ErrKeyNotFound)
	}
}

func TestDeleteToMinCellsThenOneMore(t *testing.T) {
	tr := openTestTree(t)
	for i := int32(0); i < LeafMaxCells*3; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())

	// Delete from the front until the first leaf must rebalance.
	for i := int32(0); i < LeafMaxCells; i++ {
		require.NoError(t, tr.Delete(i))
		require.NoError(t, tr.Validate())
	}
}

func TestDeleteAllThenReinsert(t *testing.T) {
	tr := openTestTree(t)
	const n = 500
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Delete(i))
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(0), tr.NumRows())
	require.True(t, isLeafRoot(tr))

	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(n), tr.NumRows())
}

// isLeafRoot is a test-only helper for asserting the tree collapsed all
// the way back to a single leaf root.
func isLeafRoot(tr *Tree) bool {
	pg, err := tr.getPage(tr.RootPageNum())
	if err != nil {
		return false
	}
	return isLeaf(pg.Data[:])
}

func TestRootCollapseCascade(t *testing.T) {
	tr := openTestTree(t)
	const n = 3000
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Validate())
	// Root splits reuse the root page, so the root is still page 1.
	require.Equal(t, uint32(1), tr.RootPageNum())

	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Delete(i))
		if i%97 == 0 {
			require.NoError(t, tr.Validate())
		}
	}
	require.NoError(t, tr.Validate())
	require.Equal(t, uint32(0), tr.NumRows())
	require.True(t, isLeafRoot(tr))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	tr, err := Open(path, Options{})
	require.NoError(t, err)
	for i := int32(0); i < 500; i++ {
		require.NoError(t, tr.Insert(testRow(i)))
	}
	require.NoError(t, tr.Close())

	reopened, err := Open(path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint32(500), reopened.NumRows())
	require.NoError(t, reopened.Validate())

	c, err := reopened.ScanStart()
	require.NoError(t, err)
	count := 0
	for !c.EndOfTable() {
		count++
		require.NoError(t, c.Advance())
	}
	require.Equal(t, 500, count)

	require.NoError(t, reopened.Insert(testRow(9999)))
	_, err = reopened.Find(9999)
	require.NoError(t, err)
}
