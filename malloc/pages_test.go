package malloc

import "testing"
import "unsafe"

import "github.com/bnclabs/goalloc/osalloc"
import "github.com/stretchr/testify/require"

func TestBlockpages(t *testing.T) {
	pagesize := int64(256)
	pages, err := newblockpages(make([]byte, 8*pagesize+Alignment), pagesize)
	require.NoError(t, err)
	require.Equal(t, int64(8), pages.npages)
	require.Equal(t, uintptr(0), uintptr(pages.base)%uintptr(Alignment))

	a, ok := pages.acquire(3)
	require.True(t, ok)
	b, ok := pages.acquire(3)
	require.True(t, ok)
	c, ok := pages.acquire(2)
	require.True(t, ok)
	require.Equal(t, unsafe.Add(a, 3*pagesize), b)
	require.Equal(t, unsafe.Add(b, 3*pagesize), c)
	_, ok = pages.acquire(1)
	require.False(t, ok)

	pages.release(a, 3)
	pages.release(c, 2)
	_, ok = pages.acquire(4)
	require.False(t, ok)
	require.Panics(t, func() { pages.release(a, 1) })

	// middle release coalesces both neighbours.
	pages.release(b, 3)
	require.Equal(t, []pagerun{{first: 0, count: 8}}, pages.freeruns)
	x, ok := pages.acquire(8)
	require.True(t, ok)
	require.Equal(t, a, x)

	require.Equal(t, 8*pagesize, pages.footprint())
	require.Equal(t, int64(0), pages.collect())

	_, err = newblockpages(make([]byte, pagesize), pagesize*2)
	require.Equal(t, ErrorInvalidBlock, err)
	_, err = newblockpages(nil, pagesize)
	require.Equal(t, ErrorInvalidBlock, err)
}

func TestOspages(t *testing.T) {
	pagesize := int64(osalloc.Pagesize())
	pages := newospages(osalloc.Ensure(), pagesize, 4*pagesize)
	defer pages.close()

	a, ok := pages.acquire(2)
	require.True(t, ok)
	b, ok := pages.acquire(2)
	require.True(t, ok)
	_, ok = pages.acquire(1)
	require.False(t, ok)
	require.Equal(t, 4*pagesize, pages.footprint())

	// released runs are cached, and reused on exact match.
	pages.release(a, 2)
	x, ok := pages.acquire(2)
	require.True(t, ok)
	require.Equal(t, a, x)

	pages.release(x, 2)
	pages.release(b, 2)
	_, ok = pages.acquire(3)
	require.False(t, ok)
	require.Equal(t, 4*pagesize, pages.collect())
	require.Equal(t, int64(0), pages.footprint())
	y, ok := pages.acquire(3)
	require.True(t, ok)
	pages.release(y, 3)
}
