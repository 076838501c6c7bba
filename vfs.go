// Package geekos defines the two VFS contracts the FAT16 driver implements —
// mount-point operations and file operations — along with the small set of
// shared types (open flags, stat records, the block device collaborator
// interface) that both sides of the contract need. Everything else the
// surrounding kernel provides (the scheduler, the generic VFS dispatch
// table, the block device driver itself) is out of scope; this package only
// describes the shape the filesystem core plugs into.
package geekos

import "io"

// SectorSize is the fixed size of a single unit of block I/O. All reads and
// writes to a BlockDevice must be exactly one sector.
const SectorSize = 512

// BlockDevice is the external collaborator this driver reads and writes
// sectors through. Implementations must be comparable (e.g. a pointer to a
// struct) since the block cache keys entries on device identity.
type BlockDevice interface {
	// ReadSector fills buf (exactly SectorSize bytes) with the contents of
	// sector sectorNo.
	ReadSector(sectorNo uint32, buf []byte) error
	// WriteSector writes buf (exactly SectorSize bytes) to sector sectorNo.
	WriteSector(sectorNo uint32, buf []byte) error
}

// OpenFlags are the open-mode bits recognized by MountPoint.Open.
type OpenFlags int

const (
	// OREAD requests read access.
	OREAD OpenFlags = 1 << iota
	// OWRITE requests write access.
	OWRITE
	// OCREATE creates the file if it doesn't already exist, and fails if it
	// does.
	OCREATE
)

func (f OpenFlags) CanRead() bool    { return f&OREAD != 0 }
func (f OpenFlags) CanWrite() bool   { return f&OWRITE != 0 }
func (f OpenFlags) WantCreate() bool { return f&OCREATE != 0 }

// AccessControlEntry is a minimal stand-in for a user/permission descriptor.
// This filesystem has no notion of uid/gid, so UID is always 0 and
// Permission is derived solely from the READ_ONLY directory entry flag.
type AccessControlEntry struct {
	UID        uint32
	Permission OpenFlags
}

// FileStat is the information returned by Fstat and by MountPoint.Stat.
type FileStat struct {
	Size        int64
	IsDirectory bool
	ACLs        [1]AccessControlEntry
}

// File is the per-open-file contract the VFS dispatches read/write/seek/
// close/fstat/readdir calls through. ReadEntry is part of the contract but
// is not implemented by this filesystem (directory iteration is a spec
// non-goal); it always returns ErrNotSupported.
type File interface {
	io.Closer
	Fstat() (FileStat, error)
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Seek(pos uint32) error
	ReadEntry() (FileStat, error)
}

// MountPoint is the contract a mounted volume exposes to the VFS. Delete,
// CreateDirectory, and OpenDirectory are part of the contract but are not
// implemented by this filesystem (spec non-goals); they always return
// ErrNotSupported.
type MountPoint interface {
	Open(path string, mode OpenFlags) (File, error)
	CreateDirectory(path string) error
	OpenDirectory(path string) (File, error)
	Stat(path string) (FileStat, error)
	Sync() error
	Delete(path string) error
}

// Filesystem is the contract the VFS uses to format a raw block device and
// mount an already-formatted one.
type Filesystem interface {
	Format(dev BlockDevice, totalSectors uint32) error
	Mount(dev BlockDevice) (MountPoint, error)
}
