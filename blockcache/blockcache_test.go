package blockcache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/blockcache"
)

type fakeDevice struct {
	sectors map[uint32][]byte
	reads   int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{sectors: make(map[uint32][]byte)}
}

func (d *fakeDevice) ReadSector(sectorNo uint32, buf []byte) error {
	d.reads++
	data, ok := d.sectors[sectorNo]
	if !ok {
		data = make([]byte, geekos.SectorSize)
	}
	copy(buf, data)
	return nil
}

func (d *fakeDevice) WriteSector(sectorNo uint32, buf []byte) error {
	cp := make([]byte, geekos.SectorSize)
	copy(cp, buf)
	d.sectors[sectorNo] = cp
	return nil
}

func TestReadIsCachedOnSecondAccess(t *testing.T) {
	dev := newFakeDevice()
	dev.sectors[3] = append(make([]byte, geekos.SectorSize-1), 0xAB)
	c := blockcache.New()

	buf := make([]byte, geekos.SectorSize)
	require.NoError(t, c.Read(dev, 3, buf))
	require.Equal(t, byte(0xAB), buf[geekos.SectorSize-1])
	require.Equal(t, 1, dev.reads)

	require.NoError(t, c.Read(dev, 3, buf))
	require.Equal(t, 1, dev.reads, "second read should hit the cache")
}

func TestWriteIsAlwaysThrough(t *testing.T) {
	dev := newFakeDevice()
	c := blockcache.New()

	data := make([]byte, geekos.SectorSize)
	data[0] = 0x42
	require.NoError(t, c.Write(dev, 5, data))
	require.Equal(t, byte(0x42), dev.sectors[5][0])

	buf := make([]byte, geekos.SectorSize)
	require.NoError(t, c.Read(dev, 5, buf))
	require.Equal(t, byte(0x42), buf[0])
}

func TestEvictionIsLeastRecentlyUsed(t *testing.T) {
	dev := newFakeDevice()
	c := blockcache.New()
	buf := make([]byte, geekos.SectorSize)

	for i := uint32(0); i < blockcache.MaxSlots; i++ {
		require.NoError(t, c.Read(dev, i, buf))
	}
	require.Equal(t, blockcache.MaxSlots, dev.reads)

	// Touch every slot but 0 again, so it becomes the LRU victim.
	for i := uint32(1); i < blockcache.MaxSlots; i++ {
		require.NoError(t, c.Read(dev, i, buf))
	}
	require.Equal(t, blockcache.MaxSlots, dev.reads, "touches should all be cache hits")

	// One more distinct sector forces an eviction; it must be sector 0.
	require.NoError(t, c.Read(dev, blockcache.MaxSlots, buf))
	require.Equal(t, blockcache.MaxSlots+1, dev.reads)

	require.NoError(t, c.Read(dev, 0, buf))
	require.Equal(t, blockcache.MaxSlots+2, dev.reads, "sector 0 should have been evicted")
}
