package fat16

import (
	"bytes"
	"encoding/binary"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/errors"
)

// rawBootSector is the on-disk representation of sector 0, decoded with
// encoding/binary against this exact field order rather than relying on
// compiler struct packing: every field here is a fixed-size integer type, so
// binary.Read/Write lay it out byte-for-byte with no machine padding.
type rawBootSector struct {
	SectorSize        uint16
	SectorPerCluster  uint8
	ReservedSector    uint16
	FatCount          uint8
	RootEntryCount    uint16
	Unused            uint16
	MediaDesc         uint8
	SectorPerFatTable uint16
}

const rawBootSectorSize = 13

// BootSector is the in-memory, friendly form of the boot sector.
type BootSector struct {
	rawBootSector
}

// NewBootSector builds a freshly-initialized boot sector for a volume with
// the given number of live root entries.
func NewBootSector(rootEntryCount uint16) BootSector {
	return BootSector{rawBootSector{
		SectorSize:        geekos.SectorSize,
		SectorPerCluster:  1,
		ReservedSector:    0,
		FatCount:          2,
		RootEntryCount:    rootEntryCount,
		SectorPerFatTable: SectorPerFatTable,
	}}
}

// DecodeBootSector parses a raw 512-byte sector into a BootSector.
func DecodeBootSector(sector []byte) (BootSector, error) {
	if len(sector) < rawBootSectorSize {
		return BootSector{}, errors.ErrIOFailed.WithMessage("boot sector too short")
	}

	var raw rawBootSector
	err := binary.Read(bytes.NewReader(sector[:rawBootSectorSize]), binary.LittleEndian, &raw)
	if err != nil {
		return BootSector{}, errors.ErrIOFailed.WrapError(err)
	}
	return BootSector{raw}, nil
}

// Encode serializes the boot sector into a full geekos.SectorSize-byte
// buffer, zero-padded after the fields the layout defines.
func (b BootSector) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, b.rawBootSector); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	out := make([]byte, geekos.SectorSize)
	copy(out, buf.Bytes())
	return out, nil
}

////////////////////////////////////////////////////////////////////////////////
// DirEntry

// rawDirEntry mirrors the on-disk byte layout exactly, in field order, with
// no separator between the 8-character stem and 3-character extension.
type rawDirEntry struct {
	Name         [MaxNameLen]byte
	Flag         uint8
	Reserved1    uint32
	Reserved2    uint16
	ModifiedTime uint16
	ModifiedDate uint16
	FirstCluster uint16
	Size         uint32
}

// DirEntry is the in-memory form of a 28-byte on-disk directory entry.
type DirEntry struct {
	rawDirEntry
}

// IsLive reports whether this slot holds a real entry, per the invariant
// that a slot's occupied bit tracks name[0] != 0.
func (e DirEntry) IsLive() bool {
	return e.Name[0] != 0
}

func (e DirEntry) IsDir() bool {
	return e.Flag&FlagIsDir != 0
}

func (e DirEntry) IsReadOnly() bool {
	return e.Flag&FlagReadOnly != 0
}

// Name8_3 returns the trimmed on-disk name as a string, stopping at the
// first NUL byte.
func (e DirEntry) Name8_3() string {
	n := bytes.IndexByte(e.rawDirEntry.Name[:], 0)
	if n < 0 {
		n = MaxNameLen
	}
	return string(e.rawDirEntry.Name[:n])
}

// EncodeName8_3 converts a single path component into its fixed 11-byte,
// NUL-padded on-disk form. It fails if the component doesn't fit.
func EncodeName8_3(component string) ([MaxNameLen]byte, error) {
	var out [MaxNameLen]byte
	if len(component) == 0 || len(component) > MaxNameLen {
		return out, errors.ErrInvalidPath.WithMessage(
			"path component must be 1-" + itoa(MaxNameLen) + " bytes")
	}
	copy(out[:], component)
	return out, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

const rawDirEntrySize = DirEntrySize

// DecodeDirEntry parses one DirEntrySize-byte record.
func DecodeDirEntry(raw []byte) (DirEntry, error) {
	if len(raw) < rawDirEntrySize {
		return DirEntry{}, errors.ErrIOFailed.WithMessage("directory entry truncated")
	}

	var r rawDirEntry
	err := binary.Read(bytes.NewReader(raw[:rawDirEntrySize]), binary.LittleEndian, &r)
	if err != nil {
		return DirEntry{}, errors.ErrIOFailed.WrapError(err)
	}
	return DirEntry{r}, nil
}

// Encode serializes the entry into exactly DirEntrySize bytes.
func (e DirEntry) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, e.rawDirEntry); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return buf.Bytes(), nil
}
