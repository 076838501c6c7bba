// Package blockcache implements the filesystem's block-level read cache: a
// fixed pool of sector-sized slots, shared across every mounted volume and
// evicted by least-recently-used timestamp, exactly as described for the
// FAT16 driver's cache layer. It sits directly on top of a geekos.BlockDevice
// and carries every sector read and write of a mounted volume; only Format,
// which runs before a volume is mounted, writes to the device directly.
package blockcache

import (
	"sync"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/errors"
)

// MaxSlots is the fixed number of sector buffers the cache holds, regardless
// of how many devices or volumes share it.
const MaxSlots = 200

type slot struct {
	device    geekos.BlockDevice
	blockNo   uint32
	occupied  bool
	timestamp uint64
	data      [geekos.SectorSize]byte
}

// Cache is a process-wide, write-through block cache. The zero value is an
// empty cache ready for use, which is what New returns. A single Cache can
// back multiple devices
// at once since every slot is keyed on (device, blockNo).
type Cache struct {
	mu    sync.Mutex
	slots [MaxSlots]slot
	clock uint64
}

// New creates an empty Cache. Typically constructed once, lazily, and shared
// for the lifetime of the process.
func New() *Cache {
	return &Cache{}
}

// findLocked returns the index of the slot holding (dev, blockNo), or -1 if
// it isn't cached. Caller must hold c.mu.
func (c *Cache) findLocked(dev geekos.BlockDevice, blockNo uint32) int {
	for i := range c.slots {
		s := &c.slots[i]
		if s.occupied && s.device == dev && s.blockNo == blockNo {
			return i
		}
	}
	return -1
}

// evictLocked finds the occupied-or-not slot with the smallest timestamp.
// Empty slots have a timestamp of 0, so they're always picked first. Caller
// must hold c.mu.
func (c *Cache) evictLocked() int {
	victim := 0
	minStamp := c.slots[0].timestamp
	for i := 1; i < MaxSlots; i++ {
		if c.slots[i].timestamp < minStamp {
			minStamp = c.slots[i].timestamp
			victim = i
		}
	}
	return victim
}

// Read fills out (exactly geekos.SectorSize bytes) with the contents of
// sector blockNo on dev, fetching from dev only on a cache miss.
func (c *Cache) Read(dev geekos.BlockDevice, blockNo uint32, out []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	stamp := c.clock

	if idx := c.findLocked(dev, blockNo); idx >= 0 {
		s := &c.slots[idx]
		copy(out, s.data[:])
		s.timestamp = stamp
		return nil
	}

	idx := c.evictLocked()
	s := &c.slots[idx]

	var buf [geekos.SectorSize]byte
	if err := dev.ReadSector(blockNo, buf[:]); err != nil {
		// The slot must not be marked as holding this block on failure.
		return errors.ErrIOFailed.WrapError(err)
	}

	s.device = dev
	s.blockNo = blockNo
	s.occupied = true
	s.timestamp = stamp
	s.data = buf
	copy(out, s.data[:])
	return nil
}

// Write copies in (exactly geekos.SectorSize bytes) into the cache slot for
// (dev, blockNo) if one exists, then writes through to dev unconditionally.
func (c *Cache) Write(dev geekos.BlockDevice, blockNo uint32, in []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.findLocked(dev, blockNo); idx >= 0 {
		copy(c.slots[idx].data[:], in)
	}

	if err := dev.WriteSector(blockNo, in); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}
