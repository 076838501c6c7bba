// Package disks holds a small table of named volume geometries an image
// builder can pick from by name instead of having to know a raw sector
// count, grounded on the teacher repo's disk-geometry table (same embedded
// CSV + gocsv approach, trimmed down to the one field the fat16 format
// operation actually needs: total sector count).
package disks

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/little-csd/geekos"
)

// Geometry describes one named, predefined volume size.
type Geometry struct {
	Name         string `csv:"name"`
	Slug         string `csv:"slug"`
	TotalSectors uint32 `csv:"total_sectors"`
	Description  string `csv:"description"`
}

//go:embed geometries.csv
var geometriesRawCSV string

var geometries map[string]Geometry

func init() {
	geometries = make(map[string]Geometry)
	reader := strings.NewReader(geometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := geometries[row.Slug]; exists {
			return fmt.Errorf("duplicate disk geometry slug %q", row.Slug)
		}
		geometries[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Lookup returns the predefined geometry with the given slug.
func Lookup(slug string) (Geometry, error) {
	g, ok := geometries[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined disk geometry named %q", slug)
	}
	return g, nil
}

// FormatNamed formats dev with the geometry named by slug, looking the
// geometry up from the predefined table rather than requiring the caller
// to know a raw sector count.
func FormatNamed(fs geekos.Filesystem, dev geekos.BlockDevice, slug string) error {
	g, err := Lookup(slug)
	if err != nil {
		return err
	}
	return fs.Format(dev, g.TotalSectors)
}
