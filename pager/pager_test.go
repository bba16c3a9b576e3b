package pager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestOpenEmptyFile(t *testing.T) {
	path := tempPath(t, "empty.db")

	p, err := Open(path, Options{})
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, 0, p.NumPages())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, fi.Size())
}

func TestOpenRejectsNonPageMultipleLength(t *testing.T) {
	path := tempPath(t, "partial.db")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0600))

	_, err := Open(path, Options{})
	require.Error(t, err)
}

func TestGetPageGrowsTableAndZeroFills(t *testing.T) {
	path := tempPath(t, "grow.db")
	p, err := Open(path, Options{})
	require.NoError(t, err)
	defer p.Close()

	pg, err := p.GetPage(3)
	require.NoError(t, err)
	require.Equal(t, 4, p.NumPages())
	require.Equal(t, byte(0), pg.Data[0])
}

func TestGetPageRejectsBeyondTableMaxPages(t *testing.T) {
	path := tempPath(t, "oob.db")
	p, err := Open(path, Options{TableMaxPages: 2})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetPage(2)
	require.Error(t, err)
}

func TestAllocatePageIsMonotonic(t *testing.T) {
	path := tempPath(t, "alloc.db")
	p, err := Open(path, Options{})
	require.NoError(t, err)
	defer p.Close()

	first, err := p.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, uint32(0), first)

	second, err := p.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, uint32(1), second)
}

func TestFlushWritesResidentPageToDisk(t *testing.T) {
	path := tempPath(t, "flush.db")
	p, err := Open(path, Options{})
	require.NoError(t, err)
	defer p.Close()

	n, err := p.AllocatePage()
	require.NoError(t, err)
	pg, err := p.GetPage(n)
	require.NoError(t, err)
	pg.Data[0] = 0xAB
	pg.Data[PageSize-1] = 0xCD

	require.NoError(t, p.Flush(n))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, PageSize)
	require.Equal(t, byte(0xAB), data[0])
	require.Equal(t, byte(0xCD), data[PageSize-1])
}

func TestCloseFlushesEveryResidentPageUnconditionally(t *testing.T) {
	path := tempPath(t, "close.db")
	p, err := Open(path, Options{})
	require.NoError(t, err)

	n, err := p.AllocatePage()
	require.NoError(t, err)
	pg, err := p.GetPage(n)
	require.NoError(t, err)
	pg.Data[42] = 0x7F

	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(0x7F), data[42])
}

func TestReopenLoadsExistingPageContent(t *testing.T) {
	path := tempPath(t, "reopen.db")

	p1, err := Open(path, Options{})
	require.NoError(t, err)
	n, err := p1.AllocatePage()
	require.NoError(t, err)
	pg, err := p1.GetPage(n)
	require.NoError(t, err)
	pg.Data[0] = 0x42
	require.NoError(t, p1.Close())

	p2, err := Open(path, Options{})
	require.NoError(t, err)
	defer p2.Close()

	require.Equal(t, 1, p2.NumPages())
	pg2, err := p2.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), pg2.Data[0])
}

func TestGetPageReturnsSameInstanceOnRepeatedCalls(t *testing.T) {
	path := tempPath(t, "sameinstance.db")
	p, err := Open(path, Options{})
	require.NoError(t, err)
	defer p.Close()

	n, err := p.AllocatePage()
	require.NoError(t, err)
	first, err := p.GetPage(n)
	require.NoError(t, err)
	second, err := p.GetPage(n)
	require.NoError(t, err)
	require.Same(t, first, second)
}
