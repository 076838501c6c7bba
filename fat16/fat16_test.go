package fat16_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/little-csd/geekos"
	"github.com/little-csd/geekos/errors"
	"github.com/little-csd/geekos/fat16"
	"github.com/little-csd/geekos/geekostest"
)

const testVolumeSectors = 2880 // 1.44MB floppy's worth of sectors

func newFormattedVolume(t *testing.T) (*geekostest.MemoryDevice, fat16.Driver) {
	t.Helper()
	dev := geekostest.NewMemoryDevice(testVolumeSectors)
	driver := fat16.NewDriver()
	require.NoError(t, driver.Format(dev, testVolumeSectors))
	return dev, *driver
}

func TestFormatMountWriteSyncRemountRead(t *testing.T) {
	dev, driver := newFormattedVolume(t)

	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	f, err := mp.Open("/hello.txt", geekos.OWRITE|geekos.OCREATE)
	require.NoError(t, err)

	payload := []byte("hello, geekos")
	n, err := f.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, f.Close())

	require.NoError(t, mp.Sync())

	// Remount from scratch against the same underlying bytes.
	driver2 := fat16.NewDriver()
	mp2, err := driver2.Mount(dev)
	require.NoError(t, err)

	rf, err := mp2.Open("/hello.txt", geekos.OREAD)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	n, err = rf.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestOpenNotFound(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	_, err = mp.Open("/nope.txt", geekos.OREAD)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestOpenAlreadyExists(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	f, err := mp.Open("/dup.txt", geekos.OWRITE|geekos.OCREATE)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = mp.Open("/dup.txt", geekos.OWRITE|geekos.OCREATE)
	require.ErrorIs(t, err, errors.ErrExists)
}

func TestWriteAcrossSectorBoundary(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	f, err := mp.Open("/big.bin", geekos.OWRITE|geekos.OCREATE)
	require.NoError(t, err)

	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := f.Write(payload)
	require.NoError(t, err)
	require.Equal(t, 600, n)
	require.NoError(t, f.Close())

	rf, err := mp.Open("/big.bin", geekos.OREAD)
	require.NoError(t, err)
	readBack := make([]byte, 600)
	n, err = rf.Read(readBack)
	require.NoError(t, err)
	require.Equal(t, 600, n)
	require.Equal(t, payload, readBack)
}

func TestDeepPathIsInvalid(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	deep := "/" + strings.Repeat("a/", fat16.MaxDirDeep+1) + "leaf"
	_, err = mp.Open(deep, geekos.OREAD)
	require.ErrorIs(t, err, errors.ErrInvalidPath)
}

func TestStatReportsSizeAndKind(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	f, err := mp.Open("/stat.txt", geekos.OWRITE|geekos.OCREATE)
	require.NoError(t, err)
	_, err = f.Write([]byte("abcd"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stat, err := mp.Stat("/stat.txt")
	require.NoError(t, err)
	require.Equal(t, int64(4), stat.Size)
	require.False(t, stat.IsDirectory)
}

func TestUnsupportedOperationsReturnNotSupported(t *testing.T) {
	dev, driver := newFormattedVolume(t)
	mp, err := driver.Mount(dev)
	require.NoError(t, err)

	require.ErrorIs(t, mp.CreateDirectory("/sub"), errors.ErrNotSupported)
	require.ErrorIs(t, mp.Delete("/anything"), errors.ErrNotSupported)
	_, err = mp.OpenDirectory("/anything")
	require.ErrorIs(t, err, errors.ErrNotSupported)
}
