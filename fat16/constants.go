// Package fat16 implements the FAT16-style volume core described by the
// spec: the on-disk layout, the FAT chain manager, the path resolver, and
// the mount-point/file operations that plug into the geekos VFS contracts.
package fat16

import "github.com/little-csd/geekos"

const (
	// MaxNameLen is the size of the on-disk name field (8+3, no separator).
	MaxNameLen = 11
	// MaxDirDeep is the deepest a path may nest before resolution fails.
	MaxDirDeep = 6

	// MaxSector is the number of sectors a single 16-bit FAT entry can
	// address, and therefore the largest volume this driver supports.
	MaxSector = 1 << 16

	// fatTableSize is the number of bytes one full copy of the FAT occupies.
	fatTableSize = MaxSector * 2
	// SectorPerFatTable is the number of sectors one FAT copy occupies.
	SectorPerFatTable = fatTableSize / geekos.SectorSize

	// DirBlocks is the fixed number of sectors reserved for the root
	// directory area.
	DirBlocks = 32

	// DirEntrySize is the on-disk size of one DirEntry record, per the
	// byte-exact offset table: 11 (name) + 1 (flag) + 4 (reserved1) +
	// 2 (reserved2) + 2 + 2 (modified time/date) + 2 (first cluster) +
	// 4 (size) = 28 bytes. A sector therefore holds 18 entries with 8
	// trailing bytes unused, the same packing the original C layout
	// produces from sizeof(DirEntry) without introducing any compiler
	// padding.
	DirEntrySize = 28
	// DirPerSector is the number of DirEntry records that fit in one
	// sector.
	DirPerSector = geekos.SectorSize / DirEntrySize
	// MaxDirCount is the capacity of the root directory area.
	MaxDirCount = DirBlocks * DirPerSector

	// FirstDirBlock is the first sector of the root directory area.
	FirstDirBlock = 1 + 2*SectorPerFatTable
	// FirstDataBlock is the first sector available for file/directory data.
	// Sectors below this are reserved for metadata.
	FirstDataBlock = FirstDirBlock + DirBlocks
)

// Directory entry flag bits. Only ReadOnly and IsDir are interpreted by this
// driver; the rest are reserved and ignored, matching the original layout.
const (
	FlagReadOnly = 1 << 0
	FlagHidden   = 1 << 1
	FlagSystem   = 1 << 2
	FlagDiskSig  = 1 << 3
	FlagIsDir    = 1 << 4
	FlagFiled    = 1 << 5
)
