// Command buildfat16 creates fat16 volume image files and populates their
// root directory with the contents of host files, mirroring the original
// offline image-building tool this driver's on-disk layout is compatible
// with.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/noxer/bytewriter"
	"github.com/urfave/cli/v2"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/disks"
	"github.com/little-csd/geekos/fat16"
)

func newApp() *cli.App {
	return &cli.App{
		Usage: "Build fat16 volume image files",
		// The build tool's contract is a single diagnostic line on stdout
		// and a nonzero exit code on failure. cli's default ExitErrHandler
		// writes to the package-level (stderr-by-default) ErrWriter and
		// calls os.Exit itself, so it's replaced here; main decides the
		// exit code once Run has returned instead.
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err != nil {
				fmt.Fprintln(os.Stdout, err)
			}
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Format a new image and copy host files into its root directory",
				Action:    buildImage,
				ArgsUsage: "DISK_IMAGE [FILE ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "geometry",
						Usage: "predefined geometry slug (see disks package)",
						Value: "floppy144",
					},
					&cli.Uint64Flag{
						Name:  "sectors",
						Usage: "total sector count (overrides --geometry)",
					},
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		code := 1
		if coder, ok := err.(cli.ExitCoder); ok {
			code = coder.ExitCode()
		}
		os.Exit(code)
	}
}

func buildImage(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return cli.Exit("usage: buildfat16 build DISK_IMAGE [FILE ...]", 1)
	}
	imagePath := c.Args().Get(0)
	hostFiles := c.Args().Slice()[1:]

	var totalSectors uint32
	if n := c.Uint64("sectors"); n != 0 {
		totalSectors = uint32(n)
	} else {
		geom, err := disks.Lookup(c.String("geometry"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		totalSectors = geom.TotalSectors
	}

	device := newMemoryImage(totalSectors)
	driver := fat16.NewDriver()
	if err := driver.Format(device, totalSectors); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	mountPoint, err := driver.Mount(device)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	for _, path := range hostFiles {
		if err := copyHostFileIntoRoot(mountPoint, path); err != nil {
			return cli.Exit(fmt.Sprintf("%s: %s", path, err.Error()), 1)
		}
	}

	if err := mountPoint.Sync(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return os.WriteFile(imagePath, device.bytes, 0o644)
}

func copyHostFileIntoRoot(mountPoint geekos.MountPoint, hostPath string) error {
	content, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	name := baseName(hostPath)
	f, err := mountPoint.Open("/"+name, geekos.OWRITE|geekos.OCREATE)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(content)
	return err
}

func baseName(path string) string {
	i := len(path)
	for i > 0 && path[i-1] != '/' {
		i--
	}
	return path[i:]
}

// memoryImage is a geekos.BlockDevice backed by a single in-memory byte
// slice, flushed to disk only once the whole image is built. Sector writes
// go through bytewriter the way the corpus's own on-disk image construction
// (file_systems/unixv1/format.go) serializes into a pre-sized output slice.
type memoryImage struct {
	bytes []byte
}

func newMemoryImage(totalSectors uint32) *memoryImage {
	return &memoryImage{bytes: make([]byte, int64(totalSectors)*geekos.SectorSize)}
}

func (d *memoryImage) ReadSector(sectorNo uint32, buf []byte) error {
	off := int64(sectorNo) * geekos.SectorSize
	copy(buf, d.bytes[off:off+geekos.SectorSize])
	return nil
}

func (d *memoryImage) WriteSector(sectorNo uint32, buf []byte) error {
	off := int64(sectorNo) * geekos.SectorSize
	writer := bytewriter.New(d.bytes[off : off+geekos.SectorSize])
	return binary.Write(writer, binary.LittleEndian, buf)
}
