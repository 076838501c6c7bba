package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/fat16"
)

// TestBuildMountRead exercises the BuildMountRead scenario: running the
// image builder against a set of host files, then mounting the resulting
// image and reading each file back, yields the original bytes.
func TestBuildMountRead(t *testing.T) {
	dir := t.TempDir()

	helloPath := filepath.Join(dir, "hello.txt")
	helloContent := []byte("hello, world!")
	require.NoError(t, os.WriteFile(helloPath, helloContent, 0o644))

	bigPath := filepath.Join(dir, "big.dat")
	bigContent := bytes.Repeat([]byte{0xAB}, 2000)
	require.NoError(t, os.WriteFile(bigPath, bigContent, 0o644))

	imagePath := filepath.Join(dir, "image.fat16")

	app := newApp()
	err := app.Run([]string{"buildfat16", "build", imagePath, helloPath, bigPath})
	require.NoError(t, err)

	imageBytes, err := os.ReadFile(imagePath)
	require.NoError(t, err)

	dev := &staticImage{bytes: imageBytes}
	driver := fat16.NewDriver()
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	helloStat, err := mp.Stat("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(helloContent)), helloStat.Size)

	bigStat, err := mp.Stat("/big.dat")
	require.NoError(t, err)
	require.Equal(t, int64(len(bigContent)), bigStat.Size)

	f, err := mp.Open("/big.dat", geekos.OREAD)
	require.NoError(t, err)
	defer f.Close()

	readBack := make([]byte, len(bigContent))
	n, err := f.Read(readBack)
	require.NoError(t, err)
	require.Equal(t, len(bigContent), n)
	require.Equal(t, bigContent, readBack)
}

func TestBuildRejectsMissingArguments(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"buildfat16", "build"})
	require.Error(t, err)
}

// staticImage is a read-only geekos.BlockDevice over a byte slice already on
// disk, used to remount an image the build command produced.
type staticImage struct {
	bytes []byte
}

func (d *staticImage) ReadSector(sectorNo uint32, buf []byte) error {
	off := int64(sectorNo) * geekos.SectorSize
	copy(buf, d.bytes[off:off+geekos.SectorSize])
	return nil
}

func (d *staticImage) WriteSector(sectorNo uint32, buf []byte) error {
	off := int64(sectorNo) * geekos.SectorSize
	copy(d.bytes[off:off+geekos.SectorSize], buf)
	return nil
}
