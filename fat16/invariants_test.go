package fat16

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/geekostest"
)

// This file is a white-box (package fat16) test suite: it reaches into
// FsInfo/ChainManager's unexported fields directly to check the named
// invariants against the volume's true internal state, not just its
// observable behavior through the geekos.MountPoint contract.

const invariantTestSectors = 2880

func TestFormatMountCycle(t *testing.T) {
	dev := geekostest.NewMemoryDevice(invariantTestSectors)
	driver := NewDriver()
	require.NoError(t, driver.Format(dev, invariantTestSectors))

	mp, err := driver.Mount(dev)
	require.NoError(t, err)
	fs := mp.(*MountPointImpl).fs

	for i, e := range fs.RootEntries {
		require.False(t, e.IsLive(), "root entry %d must be empty after format", i)
	}
	for sector, next := range fs.Fat.Table() {
		require.Zero(t, next, "FAT entry %d must be zero after format", sector)
	}
}

func TestChainAcyclic(t *testing.T) {
	cm := NewChainManager()
	head, err := cm.Alloc()
	require.NoError(t, err)

	tail := head
	for i := 0; i < 30; i++ {
		next, err := cm.Extend(tail)
		require.NoError(t, err)
		tail = next
	}

	seen := make(map[uint32]bool)
	cm.Walk(head, func(sector uint32) bool {
		require.False(t, seen[sector], "chain must not revisit sector %d", sector)
		seen[sector] = true
		return true
	})
	require.Equal(t, EndOfChain, cm.Next(tail), "chain must terminate at EndOfChain")
}

func TestRootBitsetConsistency(t *testing.T) {
	dev := geekostest.NewMemoryDevice(invariantTestSectors)
	driver := NewDriver()
	require.NoError(t, driver.Format(dev, invariantTestSectors))

	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		f, err := mp.Open("/"+name, geekos.OWRITE|geekos.OCREATE)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	fs := mp.(*MountPointImpl).fs
	for i, e := range fs.RootEntries {
		require.Equal(t, e.IsLive(), fs.entryFree.Get(i), "root slot %d bitset disagrees with liveness", i)
	}
}

func TestBitsetConsistency(t *testing.T) {
	dev := geekostest.NewMemoryDevice(invariantTestSectors)
	driver := NewDriver()
	require.NoError(t, driver.Format(dev, invariantTestSectors))

	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	f, err := mp.Open("/multi.bin", geekos.OWRITE|geekos.OCREATE)
	require.NoError(t, err)
	payload := make([]byte, 3*geekos.SectorSize+17) // spans several sectors
	_, err = f.Write(payload)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, mp.Sync())

	// Remount so the free bitset is rebuilt fresh from the live directory
	// entries, exercising the same path Mount takes on a cold start.
	driver2 := NewDriver()
	mp2, err := driver2.Mount(dev)
	require.NoError(t, err)
	fs := mp2.(*MountPointImpl).fs

	reachable := make(map[uint32]bool)
	for _, e := range fs.RootEntries {
		if !e.IsLive() {
			continue
		}
		fs.Fat.Walk(uint32(e.FirstCluster), func(sector uint32) bool {
			reachable[sector] = true
			return true
		})
	}

	for i := uint32(FirstDataBlock); i < MaxSector; i++ {
		require.Equal(t, reachable[i], fs.Fat.free.Get(int(i)), "sector %d bitset disagrees with reachability", i)
	}
}
