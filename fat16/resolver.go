package fat16

import (
	"strings"

	"github.com/little-csd/geekos/errors"
)

// LookupKind classifies the result of resolving a path.
type LookupKind int

const (
	// Invalid means an intermediate component was missing or was not a
	// directory. A malformed path, or one deeper than MaxDirDeep, is
	// reported by Resolve as an ErrInvalidPath error instead.
	Invalid LookupKind = iota
	// Found means the path resolved to a live entry.
	Found
	// ParentFound means every component but the last resolved to a live
	// directory, but the last component itself doesn't exist. This is the
	// shape O_CREATE needs: a place to add the new entry.
	ParentFound
)

// LookupResult replaces the original driver's pointer-sentinel return value
// (-1 for invalid, 0 for "parent found", a possibly-heap-owned pointer for
// found) with an explicit tagged union. Entry and Parent are always
// value copies, so there's no ownership question about who frees what.
//
// Parent == nil with Kind == ParentFound means the parent is the root
// directory itself, which has no DirEntry of its own.
type LookupResult struct {
	Kind       LookupKind
	Entry      DirEntry
	EntryIndex int // root-array index of Entry, valid only when Parent == nil
	Parent     *DirEntry
	LastName   string // on-disk encoded final path component
}

// splitPath breaks a slash-separated path into its components, rejecting
// empty paths and paths deeper than MaxDirDeep. A leading slash is optional;
// repeated slashes and a trailing slash are tolerated and collapsed.
func splitPath(path string) ([]string, error) {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 || len(parts) > MaxDirDeep {
		return nil, errors.ErrInvalidPath
	}
	for _, p := range parts {
		if len(p) > MaxNameLen {
			return nil, errors.ErrInvalidPath
		}
	}
	return parts, nil
}

// Resolve walks path against the root directory snapshot (root) and, for
// paths that nest into subdirectories, reads each intermediate directory's
// single data sector through read. read is handed a sector number and must
// return that sector's raw bytes.
func Resolve(path string, root []DirEntry, read func(sector uint32) ([]byte, error)) (LookupResult, error) {
	parts, err := splitPath(path)
	if err != nil {
		return LookupResult{}, err
	}

	encodedLast, err := EncodeName8_3(parts[len(parts)-1])
	if err != nil {
		return LookupResult{}, err
	}
	lastName := string(encodedLast[:])

	// First component always resolves against the root array.
	idx, entry, ok := findInRoot(root, parts[0])
	if len(parts) == 1 {
		if !ok {
			return LookupResult{Kind: ParentFound, Parent: nil, LastName: lastName}, nil
		}
		return LookupResult{Kind: Found, Entry: entry, EntryIndex: idx}, nil
	}
	if !ok {
		return LookupResult{Kind: Invalid}, nil
	}

	// Dive into subdirectories for every component but the last.
	for i := 1; i < len(parts)-1; i++ {
		if entry.Flag&FlagIsDir == 0 {
			return LookupResult{Kind: Invalid}, nil
		}
		sector, err := read(uint32(entry.FirstCluster))
		if err != nil {
			return LookupResult{}, err
		}
		next, ok := findInSector(sector, entry, parts[i])
		if !ok {
			return LookupResult{Kind: Invalid}, nil
		}
		entry = next
	}

	if entry.Flag&FlagIsDir == 0 {
		return LookupResult{Kind: Invalid}, nil
	}
	parent := entry
	sector, err := read(uint32(entry.FirstCluster))
	if err != nil {
		return LookupResult{}, err
	}
	last := parts[len(parts)-1]
	found, ok := findInSector(sector, entry, last)
	if !ok {
		return LookupResult{Kind: ParentFound, Parent: &parent, LastName: lastName}, nil
	}
	return LookupResult{Kind: Found, Entry: found, Parent: &parent}, nil
}

func findInRoot(root []DirEntry, name string) (int, DirEntry, bool) {
	for i, e := range root {
		if e.IsLive() && e.Name8_3() == name {
			return i, e, true
		}
	}
	return -1, DirEntry{}, false
}

// findInSector scans a single sector's worth of raw bytes for a live entry
// named name, honoring dir.Size as the true live-entry count the way the
// original driver does (dir.Size / DirEntrySize), rather than assuming the
// whole sector is populated.
func findInSector(sector []byte, dir DirEntry, name string) (DirEntry, bool) {
	num := int(dir.Size) / DirEntrySize
	if num > DirPerSector {
		num = DirPerSector
	}
	for i := 0; i < num; i++ {
		off := i * DirEntrySize
		e, err := DecodeDirEntry(sector[off : off+DirEntrySize])
		if err != nil {
			continue
		}
		if e.IsLive() && e.Name8_3() == name {
			return e, true
		}
	}
	return DirEntry{}, false
}
