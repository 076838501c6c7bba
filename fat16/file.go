package fat16

import (
	"sync"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/errors"
)

// FileHandle is one open file. Lock ordering: acquire mu first, then (only
// if needed) fs.mu — never the reverse. A single FileHandle is not safe for
// concurrent use from two goroutines expecting independent seek positions;
// it mirrors one open-file-table entry, same as the original driver.
type FileHandle struct {
	mu sync.Mutex

	fs    *FsInfo
	mode  geekos.OpenFlags
	entry DirEntry

	// rootIndex is >= 0 when this file lives directly in the root
	// directory area; Sync only ever re-persists the root array, so only
	// root-level files have their size growth reflected on disk. A
	// nested file's size growth stays in this in-memory snapshot until
	// the file is closed and reopened against the authoritative copy.
	// This mirrors the original driver's sync behavior exactly: FAT16_Sync
	// rewrites info->entries but never walks into subdirectories.
	rootIndex int

	pos int64
	end int64
}

var _ geekos.File = (*FileHandle)(nil)

func (f *FileHandle) Fstat() (geekos.FileStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	perm := geekos.OREAD | geekos.OWRITE
	if f.entry.IsReadOnly() {
		perm = geekos.OREAD
	}
	return geekos.FileStat{
		Size:        f.end,
		IsDirectory: f.entry.IsDir(),
		ACLs: [1]geekos.AccessControlEntry{
			{UID: 0, Permission: perm},
		},
	}, nil
}

// Read fills buf starting at the handle's current position, advancing the
// position by the number of bytes actually copied. Unlike the original
// driver (which computed the destination slice only once, up front, and
// never revisited it mid-loop), this walks buf with a running offset on
// every sector so a bug in one sector's copy can never desynchronize the
// rest of the read.
func (f *FileHandle) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mode.CanRead() {
		return 0, errors.ErrPermissionDenied
	}

	start := f.pos
	want := int64(len(buf))
	end := start + want
	if end > f.end {
		return 0, errors.ErrArgumentOutOfRange.WithMessage("read past end of file")
	}

	startSector := int(start / geekos.SectorSize)
	endSector := int((end - 1) / geekos.SectorSize)

	block := uint32(f.entry.FirstCluster)
	f.fs.mu.Lock()
	for i := 0; i < startSector; i++ {
		block = f.fs.Fat.Next(block)
	}
	f.fs.mu.Unlock()

	var written int64
	for sector := startSector; sector <= endSector; sector++ {
		f.fs.mu.Lock()
		data, err := f.fs.readSector(block)
		next := f.fs.Fat.Next(block)
		f.fs.mu.Unlock()
		if err != nil {
			return int(written), err
		}

		sectorStart := int64(sector) * geekos.SectorSize
		from := int64(0)
		if start > sectorStart {
			from = start - sectorStart
		}
		to := int64(geekos.SectorSize)
		if end < sectorStart+geekos.SectorSize {
			to = end - sectorStart
		}

		n := copy(buf[written:], data[from:to])
		written += int64(n)
		block = next
	}

	f.pos += written
	return int(written), nil
}

// Write writes data starting at the handle's current position, always
// performing a read-modify-write through the block cache for any sector
// that isn't being fully overwritten, and extending the file's chain with
// newly-allocated sectors as needed. It returns the number of bytes
// actually written, fixing the original implementation's unconditional
// `return 0`.
func (f *FileHandle) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mode.CanWrite() {
		return 0, errors.ErrPermissionDenied
	}
	if f.entry.IsReadOnly() {
		return 0, errors.ErrPermissionDenied
	}

	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	start := f.pos
	end := start + int64(len(data))
	startSector := int(start / geekos.SectorSize)
	endSector := int((end - 1) / geekos.SectorSize)

	block := uint32(f.entry.FirstCluster)
	for i := 0; i < startSector; i++ {
		next := f.fs.Fat.Next(block)
		if next == EndOfChain {
			var err error
			next, err = f.fs.extendChainLocked(block)
			if err != nil {
				return 0, err
			}
		}
		block = next
	}

	var written int64
	for sector := startSector; sector <= endSector; sector++ {
		sectorStart := int64(sector) * geekos.SectorSize
		from := int64(0)
		if start > sectorStart {
			from = start - sectorStart
		}
		to := int64(geekos.SectorSize)
		if end < sectorStart+geekos.SectorSize {
			to = end - sectorStart
		}

		var buf []byte
		if from == 0 && to == geekos.SectorSize {
			// Full-sector overwrite: no need to read the old contents.
			buf = make([]byte, geekos.SectorSize)
		} else {
			existing, err := f.fs.readSector(block)
			if err != nil {
				return int(written), err
			}
			buf = existing
		}

		copy(buf[from:to], data[written:])
		written += to - from

		if err := f.fs.writeSector(block, buf); err != nil {
			return int(written), err
		}

		if sector != endSector {
			next := f.fs.Fat.Next(block)
			if next == EndOfChain {
				var err error
				next, err = f.fs.extendChainLocked(block)
				if err != nil {
					return int(written), err
				}
			}
			block = next
		}
	}

	if end > f.end {
		f.end = end
		f.entry.Size = uint32(end)
		if f.rootIndex >= 0 {
			f.fs.putRootEntryLocked(f.rootIndex, f.entry)
		}
	}
	f.pos = end
	return int(written), nil
}

func (f *FileHandle) Seek(pos uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = int64(pos)
	return nil
}

// ReadEntry would advance a directory handle to its next child entry.
// Directory iteration is out of scope for this driver (spec non-goal), same
// as MountPointImpl.OpenDirectory.
func (f *FileHandle) ReadEntry() (geekos.FileStat, error) {
	return geekos.FileStat{}, errors.ErrNotSupported
}

func (f *FileHandle) Close() error {
	return nil
}
