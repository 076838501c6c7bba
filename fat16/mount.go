package fat16

import (
	"github.com/hashicorp/go-multierror"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/blockcache"
	"github.com/little-csd/geekos/errors"
)

// Driver is the package's entry point: it satisfies geekos.Filesystem and is
// what a kernel's filesystem registry would hold under the name "fat16".
type Driver struct {
	Cache *blockcache.Cache
}

// NewDriver builds a Driver with its own private block cache. Sharing one
// Cache across multiple Drivers is safe (Cache keys on device identity) and
// is how a real kernel would wire things, but tests usually want isolation.
func NewDriver() *Driver {
	return &Driver{Cache: blockcache.New()}
}

var _ geekos.Filesystem = (*Driver)(nil)

// Format lays down an empty volume: a zeroed boot sector (patched with the
// fixed geometry constants), two zeroed FAT copies, and a zeroed root
// directory area.
func (d *Driver) Format(dev geekos.BlockDevice, totalSectors uint32) error {
	if totalSectors < FirstDataBlock {
		return errors.ErrArgumentOutOfRange.WithMessage("volume too small for fat16 metadata")
	}

	zero := make([]byte, geekos.SectorSize)
	for i := uint32(1); i < FirstDirBlock+DirBlocks; i++ {
		if err := dev.WriteSector(i, zero); err != nil {
			return errors.ErrIOFailed.WrapError(err)
		}
	}

	boot := NewBootSector(0)
	encoded, err := boot.Encode()
	if err != nil {
		return err
	}
	if err := dev.WriteSector(0, encoded); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Mount reads an already-formatted volume's metadata into memory: the boot
// sector, both FAT copies (rebuilding their free bitsets iteratively), and
// the root directory snapshot.
func (d *Driver) Mount(dev geekos.BlockDevice) (geekos.MountPoint, error) {
	cache := d.Cache
	if cache == nil {
		cache = blockcache.New()
	}

	fs := &FsInfo{Device: dev, Cache: cache}

	bootRaw, err := fs.readSector(0)
	if err != nil {
		return nil, err
	}
	boot, err := DecodeBootSector(bootRaw)
	if err != nil {
		return nil, err
	}
	fs.Boot = boot

	fatTable, err := readFatTable(fs, 1)
	if err != nil {
		return nil, err
	}
	fatBackupTable, err := readFatTable(fs, 1+SectorPerFatTable)
	if err != nil {
		return nil, err
	}
	fs.Fat = LoadChainManager(fatTable)
	fs.FatBackup = LoadChainManager(fatBackupTable)

	entries, err := readRootEntries(fs)
	if err != nil {
		return nil, err
	}
	fs.RootEntries = entries
	fs.initEntryBitsetLocked()

	if err := markLiveChainsUsed(fs, entries, MaxDirDeep); err != nil {
		return nil, err
	}

	return &MountPointImpl{fs: fs}, nil
}

// markLiveChainsUsed walks every live entry's data chain (and, for
// directories, the chains of everything nested inside, up to maxDepth) so
// fs.Fat/fs.FatBackup's free bitsets reflect reality after a remount. Depth
// is bounded by MaxDirDeep, so this recursion can never run away.
func markLiveChainsUsed(fs *FsInfo, entries []DirEntry, maxDepth int) error {
	for _, e := range entries {
		if !e.IsLive() {
			continue
		}
		fs.Fat.MarkUsedChain(uint32(e.FirstCluster))
		fs.FatBackup.MarkUsedChain(uint32(e.FirstCluster))

		if !e.IsDir() || maxDepth <= 0 {
			continue
		}
		sector, err := fs.readSector(uint32(e.FirstCluster))
		if err != nil {
			return err
		}
		children := decodeSectorEntries(sector, int(e.Size))
		if err := markLiveChainsUsed(fs, children, maxDepth-1); err != nil {
			return err
		}
	}
	return nil
}

func decodeSectorEntries(sector []byte, liveByteSize int) []DirEntry {
	num := liveByteSize / DirEntrySize
	if num > DirPerSector {
		num = DirPerSector
	}
	entries := make([]DirEntry, 0, num)
	for i := 0; i < num; i++ {
		off := i * DirEntrySize
		e, err := DecodeDirEntry(sector[off : off+DirEntrySize])
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func readFatTable(fs *FsInfo, firstSector uint32) ([]uint16, error) {
	table := make([]uint16, MaxSector)
	raw := make([]byte, 0, fatTableSize)
	for i := uint32(0); i < SectorPerFatTable; i++ {
		sector, err := fs.readSector(firstSector + i)
		if err != nil {
			return nil, err
		}
		raw = append(raw, sector...)
	}
	for i := 0; i < MaxSector; i++ {
		table[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return table, nil
}

func readRootEntries(fs *FsInfo) ([]DirEntry, error) {
	entries := make([]DirEntry, 0, MaxDirCount)
	for i := uint32(0); i < DirBlocks; i++ {
		sector, err := fs.readSector(FirstDirBlock + i)
		if err != nil {
			return nil, err
		}
		for j := 0; j < DirPerSector; j++ {
			off := j * DirEntrySize
			e, err := DecodeDirEntry(sector[off : off+DirEntrySize])
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// MountPointImpl is the live, mounted form of a volume.
type MountPointImpl struct {
	fs *FsInfo
}

var _ geekos.MountPoint = (*MountPointImpl)(nil)

// Open resolves path and returns a handle to it, creating the entry first
// if OCREATE was requested and it doesn't already exist. Opening a directory
// as a file, or creating one that already exists, fails.
func (m *MountPointImpl) Open(path string, mode geekos.OpenFlags) (geekos.File, error) {
	var handle *FileHandle
	err := m.fs.withLock(func() error {
		result, err := m.fs.resolveLocked(path)
		if err != nil {
			return err
		}

		switch result.Kind {
		case Invalid:
			return errors.ErrInvalidPath
		case Found:
			if mode.WantCreate() {
				return errors.ErrExists
			}
			if result.Entry.IsDir() {
				return errors.ErrIsADirectory
			}
			handle = &FileHandle{
				fs:        m.fs,
				mode:      mode,
				entry:     result.Entry,
				rootIndex: rootIndexOf(result),
				end:       int64(result.Entry.Size),
			}
			return nil
		case ParentFound:
			if !mode.WantCreate() {
				return errors.ErrNotFound
			}
			entry, rootIndex, err := m.createEntryLocked(result, !mode.CanWrite())
			if err != nil {
				return err
			}
			handle = &FileHandle{
				fs:        m.fs,
				mode:      mode,
				entry:     entry,
				rootIndex: rootIndex,
			}
			return nil
		default:
			return errors.ErrInvalidPath
		}
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func rootIndexOf(r LookupResult) int {
	if r.Parent == nil {
		return r.EntryIndex
	}
	return -1
}

// createEntryLocked allocates space for a brand-new entry named
// result.LastName, either in the root directory array (when Parent == nil)
// or in the parent directory's single data sector (when Parent != nil,
// matching the original driver's one-sector-per-directory limitation: a
// directory can hold at most DirPerSector entries).
func (m *MountPointImpl) createEntryLocked(result LookupResult, readOnly bool) (DirEntry, int, error) {
	sector, err := m.fs.allocSectorLocked()
	if err != nil {
		return DirEntry{}, -1, err
	}

	var entry DirEntry
	copy(entry.rawDirEntry.Name[:], result.LastName)
	entry.FirstCluster = uint16(sector)
	if readOnly {
		entry.Flag |= FlagReadOnly
	}

	if result.Parent == nil {
		idx := m.fs.findFreeRootSlot()
		if idx < 0 {
			m.fs.Fat.FreeChain(sector)
			m.fs.FatBackup.FreeChain(sector)
			return DirEntry{}, -1, errors.ErrNoSpaceOnDevice.WithMessage("root directory is full")
		}
		m.fs.putRootEntryLocked(idx, entry)
		return entry, idx, nil
	}

	parent := *result.Parent
	num := int(parent.Size) / DirEntrySize
	if num >= DirPerSector {
		m.fs.Fat.FreeChain(sector)
		m.fs.FatBackup.FreeChain(sector)
		return DirEntry{}, -1, errors.ErrNoSpaceOnDevice.WithMessage("parent directory is full")
	}

	parentSector, err := m.fs.readSector(uint32(parent.FirstCluster))
	if err != nil {
		return DirEntry{}, -1, err
	}
	encoded, err := entry.Encode()
	if err != nil {
		return DirEntry{}, -1, err
	}
	off := num * DirEntrySize
	copy(parentSector[off:off+DirEntrySize], encoded)
	if err := m.fs.writeSector(uint32(parent.FirstCluster), parentSector); err != nil {
		return DirEntry{}, -1, err
	}

	return entry, -1, nil
}

func (m *MountPointImpl) Stat(path string) (geekos.FileStat, error) {
	var stat geekos.FileStat
	err := m.fs.withLock(func() error {
		result, err := m.fs.resolveLocked(path)
		if err != nil {
			return err
		}
		if result.Kind != Found {
			return errors.ErrNotFound
		}
		perm := geekos.OREAD | geekos.OWRITE
		if result.Entry.IsReadOnly() {
			perm = geekos.OREAD
		}
		stat = geekos.FileStat{
			Size:        int64(result.Entry.Size),
			IsDirectory: result.Entry.IsDir(),
			ACLs:        [1]geekos.AccessControlEntry{{UID: 0, Permission: perm}},
		}
		return nil
	})
	return stat, err
}

// Sync flushes the boot sector, both FAT copies, and the root directory
// area back to disk. It does not walk into subdirectories: a nested file's
// size growth since its creation is not reflected here, the same limitation
// the original driver has (FAT16_Sync only ever rewrites info->entries).
func (m *MountPointImpl) Sync() error {
	return m.fs.withLock(func() error {
		var result *multierror.Error

		bootRaw, err := m.fs.Boot.Encode()
		if err != nil {
			result = multierror.Append(result, err)
		} else if err := m.fs.writeSector(0, bootRaw); err != nil {
			result = multierror.Append(result, err)
		}

		if err := writeFatTable(m.fs, 1, m.fs.Fat.Table()); err != nil {
			result = multierror.Append(result, err)
		}
		if err := writeFatTable(m.fs, 1+SectorPerFatTable, m.fs.FatBackup.Table()); err != nil {
			result = multierror.Append(result, err)
		}

		for i := 0; i < DirBlocks; i++ {
			sector := make([]byte, geekos.SectorSize)
			for j := 0; j < DirPerSector; j++ {
				idx := i*DirPerSector + j
				if idx >= len(m.fs.RootEntries) {
					break
				}
				encoded, err := m.fs.RootEntries[idx].Encode()
				if err != nil {
					result = multierror.Append(result, err)
					continue
				}
				copy(sector[j*DirEntrySize:], encoded)
			}
			if err := m.fs.writeSector(FirstDirBlock+uint32(i), sector); err != nil {
				result = multierror.Append(result, err)
			}
		}

		m.fs.dirty = false
		return result.ErrorOrNil()
	})
}

func writeFatTable(fs *FsInfo, firstSector uint32, table []uint16) error {
	raw := make([]byte, fatTableSize)
	for i, v := range table {
		raw[2*i] = byte(v)
		raw[2*i+1] = byte(v >> 8)
	}
	for i := uint32(0); i < SectorPerFatTable; i++ {
		chunk := raw[i*geekos.SectorSize : (i+1)*geekos.SectorSize]
		if err := fs.writeSector(firstSector+i, chunk); err != nil {
			return err
		}
	}
	return nil
}

// CreateDirectory, OpenDirectory, and Delete are out of scope for this
// driver; the original C implementation leaves Read_Entry and directory
// creation as TODOs, and this port preserves that boundary explicitly
// instead of silently no-op'ing.
func (m *MountPointImpl) CreateDirectory(path string) error {
	return errors.ErrNotSupported
}

func (m *MountPointImpl) OpenDirectory(path string) (geekos.File, error) {
	return nil, errors.ErrNotSupported
}

func (m *MountPointImpl) Delete(path string) error {
	return errors.ErrNotSupported
}
