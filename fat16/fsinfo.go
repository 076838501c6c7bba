package fat16

import (
	"sync"

	"github.com/boljen/go-bitmap"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/blockcache"
	"github.com/little-csd/geekos/errors"
)

// FsInfo holds everything known about one mounted volume: its boot sector,
// the two FAT copies (kept identical), the in-memory root directory
// snapshot, and the device/cache it reads and writes through.
//
// Lock ordering: a FileHandle's mutex, when held, is always acquired before
// FsInfo.mu. FsInfo.mu is always acquired before the block cache's internal
// mutex (which callers never see directly; blockcache.Cache manages it
// itself). Code in this package must never acquire FsInfo.mu and then block
// waiting on a FileHandle's mutex.
type FsInfo struct {
	mu sync.Mutex

	Device geekos.BlockDevice
	Cache  *blockcache.Cache

	Boot        BootSector
	Fat         *ChainManager
	FatBackup   *ChainManager
	RootEntries []DirEntry

	// entryFree tracks which root-entry slots are occupied (a set bit means
	// the slot is in use), mirroring the
	// original driver's entryBitset (Find_First_Free_Bit over
	// info->entryBitset). Kept in sync with RootEntries' liveness on
	// every mutation rather than recomputed from scratch each lookup.
	entryFree bitmap.Bitmap

	dirty bool
}

// initEntryBitsetLocked (re)builds entryFree from the current contents of
// RootEntries. Called once, right after a volume is mounted.
func (fs *FsInfo) initEntryBitsetLocked() {
	fs.entryFree = bitmap.New(len(fs.RootEntries))
	for i, e := range fs.RootEntries {
		fs.entryFree.Set(i, e.IsLive())
	}
}

// withLock runs fn while holding the volume mutex.
func (fs *FsInfo) withLock(fn func() error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fn()
}

// readSector reads one sector through the shared cache.
func (fs *FsInfo) readSector(sectorNo uint32) ([]byte, error) {
	buf := make([]byte, geekos.SectorSize)
	if err := fs.Cache.Read(fs.Device, sectorNo, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeSector writes one full sector through the shared cache.
func (fs *FsInfo) writeSector(sectorNo uint32, data []byte) error {
	return fs.Cache.Write(fs.Device, sectorNo, data)
}

// resolveLocked runs the path resolver against this volume's current state.
// Caller must hold fs.mu.
func (fs *FsInfo) resolveLocked(path string) (LookupResult, error) {
	return Resolve(path, fs.RootEntries, fs.readSector)
}

// findFreeRootSlot returns the index of the first free root entry slot, or
// -1 if the root directory is full.
func (fs *FsInfo) findFreeRootSlot() int {
	for i := 0; i < len(fs.RootEntries); i++ {
		if !fs.entryFree.Get(i) {
			return i
		}
	}
	return -1
}

// putRootEntryLocked writes entry into slot idx of the in-memory root
// snapshot, marks that slot occupied in entryFree, and marks the volume
// dirty. Sync clears the flag; it flushes the root area whether or not the
// flag is set. Caller must hold fs.mu.
func (fs *FsInfo) putRootEntryLocked(idx int, entry DirEntry) {
	fs.RootEntries[idx] = entry
	fs.entryFree.Set(idx, entry.IsLive())
	fs.dirty = true
}

// allocSectorLocked grabs one free data sector from both FAT copies,
// keeping them identical. Caller must hold fs.mu.
func (fs *FsInfo) allocSectorLocked() (uint32, error) {
	sector, err := fs.Fat.Alloc()
	if err != nil {
		return 0, err
	}
	if _, err := fs.FatBackup.Alloc(); err != nil {
		// Should be unreachable: both tables started identical and are
		// always mutated together, so they can't disagree on free space.
		fs.Fat.FreeChain(sector)
		return 0, errors.ErrIOFailed.WithMessage("FAT copies diverged")
	}
	fs.dirty = true
	return sector, nil
}

// extendChainLocked appends a sector to both FAT copies' chains.
func (fs *FsInfo) extendChainLocked(tail uint32) (uint32, error) {
	next, err := fs.Fat.Extend(tail)
	if err != nil {
		return 0, err
	}
	if _, err := fs.FatBackup.Extend(tail); err != nil {
		return 0, errors.ErrIOFailed.WithMessage("FAT copies diverged")
	}
	fs.dirty = true
	return next, nil
}
