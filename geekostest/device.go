// Package geekostest provides an in-memory geekos.BlockDevice for tests,
// grounded on the teacher repo's LoadDiskImage helper: both wrap an
// xaionaro-go/bytesextra seekable byte buffer instead of touching a real
// disk.
package geekostest

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/little-csd/geekos"
)

// MemoryDevice is a fixed-size, in-memory geekos.BlockDevice backed by a
// byte slice. It must be used as a pointer: the block cache keys entries on
// device identity, and a value type would never compare equal to itself
// across copies.
type MemoryDevice struct {
	backing []byte
	stream  io.ReadWriteSeeker
}

// NewMemoryDevice allocates a zeroed device with room for totalSectors
// sectors of geekos.SectorSize bytes each.
func NewMemoryDevice(totalSectors uint32) *MemoryDevice {
	backing := make([]byte, int(totalSectors)*geekos.SectorSize)
	return &MemoryDevice{
		backing: backing,
		stream:  bytesextra.NewReadWriteSeeker(backing),
	}
}

var _ geekos.BlockDevice = (*MemoryDevice)(nil)

func (d *MemoryDevice) ReadSector(sectorNo uint32, buf []byte) error {
	if err := d.checkBounds(sectorNo, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(sectorNo)*geekos.SectorSize, io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Read(buf)
	return err
}

func (d *MemoryDevice) WriteSector(sectorNo uint32, buf []byte) error {
	if err := d.checkBounds(sectorNo, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(sectorNo)*geekos.SectorSize, io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Write(buf)
	return err
}

func (d *MemoryDevice) checkBounds(sectorNo uint32, length int) error {
	if length != geekos.SectorSize {
		return fmt.Errorf("geekostest: I/O must be exactly %d bytes, got %d", geekos.SectorSize, length)
	}
	end := (int64(sectorNo) + 1) * geekos.SectorSize
	if end > int64(len(d.backing)) {
		return fmt.Errorf("geekostest: sector %d out of range", sectorNo)
	}
	return nil
}

// Bytes returns the device's raw backing storage. Intended for tests that
// want to assert on-disk layout directly.
func (d *MemoryDevice) Bytes() []byte {
	return d.backing
}
