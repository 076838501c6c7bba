package fat16

import (
	"github.com/boljen/go-bitmap"

	"github.com/little-csd/geekos/errors"
)

// EndOfChain marks the last sector in an allocation chain.
const EndOfChain uint32 = 0

// ChainManager owns one FAT table's worth of next-sector links, plus a
// bitset tracking which data sectors are in use. A volume keeps two
// ChainManagers in sync (the primary and backup copies); ChainManager itself
// knows nothing about that redundancy, only about the single table it holds.
type ChainManager struct {
	fat  []uint16
	free bitmap.Bitmap
}

// NewChainManager builds an empty table with every data sector free.
func NewChainManager() *ChainManager {
	return &ChainManager{
		fat:  make([]uint16, MaxSector),
		free: bitmap.New(MaxSector),
	}
}

// LoadChainManager wraps a decoded FAT table (as read off disk) in a
// ChainManager with every data sector initially marked free. The caller
// must then call MarkUsedChain once per live directory entry's first
// cluster to recover which sectors are actually in use — see the
// commentary on MarkUsedChain for why this is done from known chain heads
// rather than inferred from the table's contents alone.
func LoadChainManager(fat []uint16) *ChainManager {
	cm := &ChainManager{
		fat:  make([]uint16, MaxSector),
		free: bitmap.New(MaxSector),
	}
	copy(cm.fat, fat)
	return cm
}

// MarkUsedChain walks the chain starting at start and marks every sector in
// it occupied.
//
// The original driver instead inferred occupancy from the table's contents
// alone (`initFatRecursive`, triggered for any index i with fat[i] != 0),
// which cannot distinguish a single-sector chain (whose sole entry is
// EndOfChain, i.e. 0) from a sector that was never allocated at all — both
// read as zero. Walking from each directory entry's recorded FirstCluster,
// the only authoritative source of which sectors are chain heads, avoids
// that ambiguity entirely. The walk itself is iterative for the same reason
// FreeChain is: a chain can be up to MaxSector sectors long, and the
// original's recursive equivalent would overflow the stack at that depth.
func (cm *ChainManager) MarkUsedChain(start uint32) {
	cm.Walk(start, func(sector uint32) bool {
		cm.free.Set(int(sector), true)
		return true
	})
}

// Table returns the raw next-pointer array, for serialization.
func (cm *ChainManager) Table() []uint16 {
	return cm.fat
}

// Next returns the sector following i in its chain, or EndOfChain.
func (cm *ChainManager) Next(i uint32) uint32 {
	return uint32(cm.fat[i])
}

// Alloc finds a single free data sector, marks it used with EndOfChain, and
// returns it. The search is restricted to [FirstDataBlock, MaxSector), fixing
// the original allocator's bug of scanning from sector 0 and potentially
// handing out a sector inside the boot/FAT/root-directory area.
func (cm *ChainManager) Alloc() (uint32, error) {
	for i := FirstDataBlock; i < MaxSector; i++ {
		if !cm.free.Get(i) {
			cm.free.Set(i, true)
			cm.fat[i] = uint16(EndOfChain)
			return uint32(i), nil
		}
	}
	return 0, errors.ErrNoSpaceOnDevice.WithMessage("no free data sector")
}

// Extend allocates a new sector and appends it to the chain currently ending
// at tail, returning the new sector.
func (cm *ChainManager) Extend(tail uint32) (uint32, error) {
	next, err := cm.Alloc()
	if err != nil {
		return 0, err
	}
	cm.fat[tail] = uint16(next)
	return next, nil
}

// FreeChain walks the chain starting at start and releases every sector in
// it, iteratively. Calling it on an already-free chain (start == EndOfChain)
// is a no-op, making the operation idempotent.
func (cm *ChainManager) FreeChain(start uint32) {
	for start != EndOfChain {
		next := cm.Next(start)
		cm.fat[start] = uint16(EndOfChain)
		cm.free.Set(int(start), false)
		start = next
	}
}

// Walk calls fn once per sector in the chain starting at start, in order.
// Stops early if fn returns false.
func (cm *ChainManager) Walk(start uint32, fn func(sector uint32) bool) {
	for start != EndOfChain {
		if !fn(start) {
			return
		}
		start = cm.Next(start)
	}
}

// ChainLength returns the number of sectors in the chain starting at start.
func (cm *ChainManager) ChainLength(start uint32) int {
	n := 0
	cm.Walk(start, func(uint32) bool {
		n++
		return true
	})
	return n
}
