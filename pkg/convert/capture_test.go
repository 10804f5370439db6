package convert

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcdtool/pkg/rawbin"
	"pcdtool/pkg/velodyne"
)

// sensorPayload builds a VLP-16 strongest-return packet whose blocks
// start at the given azimuth and step by 1000 hundredths of a degree.
func sensorPayload(t *testing.T, startAzimuth uint16) []byte {
	t.Helper()
	payload := make([]byte, velodyne.PacketSize)
	for b := 0; b < velodyne.BlocksPerPacket; b++ {
		base := b * velodyne.BlockSize
		payload[base] = 0xFF
		payload[base+1] = 0xEE
		binary.LittleEndian.PutUint16(payload[base+2:], (startAzimuth+uint16(b)*1000)%36000)
		for c := 0; c < velodyne.ChannelsPerBlock; c++ {
			off := base + 4 + c*3
			binary.LittleEndian.PutUint16(payload[off:], 500)
			payload[off+2] = byte(c)
		}
	}
	tail := velodyne.BlocksPerPacket * velodyne.BlockSize
	binary.LittleEndian.PutUint32(payload[tail:], 1000)
	payload[tail+4] = 0x37 // strongest
	payload[tail+5] = 0x22 // VLP-16
	return payload
}

func writeCaptureFile(t *testing.T, path string, payloads ...[]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for i, payload := range payloads {
		eth := layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x60, 0x76, 0x88, 0x00, 0x00, 0x01},
			DstMAC:       net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP{192, 168, 1, 201},
			DstIP:    net.IP{255, 255, 255, 255},
		}
		udp := layers.UDP{SrcPort: 2368, DstPort: 2368}
		require.NoError(t, udp.SetNetworkLayerForChecksum(&ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload)))

		data := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, int64(i)*1000000),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
}

// twoFrameCapture writes a capture whose azimuth wraps once, giving two
// frames of two packets each.
func twoFrameCapture(t *testing.T, path string) {
	writeCaptureFile(t, path,
		sensorPayload(t, 0),
		sensorPayload(t, 12000),
		sensorPayload(t, 0),
		sensorPayload(t, 12000),
	)
}

func TestConvert_CaptureToPCDFrames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drive.pcap")
	outDir := filepath.Join(dir, "frames")
	twoFrameCapture(t, src)

	err := Convert(src, outDir, Options{
		To:    GenericPCD,
		Model: velodyne.VLP16,
		Mode:  velodyne.Strongest,
	})
	require.NoError(t, err)

	h, rows := readAllRows(t, filepath.Join(outDir, "strongest", "000000.pcd"))
	assert.Equal(t, 2*velodyne.BlocksPerPacket*velodyne.ChannelsPerBlock, h.Points)
	assert.Len(t, rows, h.Points)

	_, err = os.Stat(filepath.Join(outDir, "strongest", "000001.pcd"))
	assert.NoError(t, err)
	// single-return capture writes no last stream files
	entries, err := os.ReadDir(filepath.Join(outDir, "strongest"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestConvert_CaptureToRawWindowed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drive.pcap")
	outDir := filepath.Join(dir, "frames")
	twoFrameCapture(t, src)

	start, err := ParseStartBound("2")
	require.NoError(t, err)
	err = Convert(src, outDir, Options{
		To:    RawBinary,
		Model: velodyne.VLP16,
		Mode:  velodyne.Strongest,
		Start: start,
	})
	require.NoError(t, err)

	// only the second frame falls inside the window; files keep their
	// absolute frame index
	_, err = os.Stat(filepath.Join(outDir, "strongest", "000000.bin"))
	assert.True(t, os.IsNotExist(err))

	count, err := rawbin.PointCount(filepath.Join(outDir, "strongest", "000001.bin"))
	require.NoError(t, err)
	assert.Equal(t, 2*velodyne.BlocksPerPacket*velodyne.ChannelsPerBlock, count)
}

func TestConvert_CaptureRequiresSensorOptions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drive.pcap")
	twoFrameCapture(t, src)

	err := Convert(src, filepath.Join(dir, "frames"), Options{To: GenericPCD})
	assert.ErrorIs(t, err, ErrMissingRequiredOption)
}

func TestConvert_CaptureOutputDirConflict(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drive.pcap")
	twoFrameCapture(t, src)

	outDir := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	err := Convert(src, outDir, Options{
		To:    GenericPCD,
		Model: velodyne.VLP16,
		Mode:  velodyne.Strongest,
	})
	assert.ErrorIs(t, err, ErrDirectoryConflict)
}

func TestConvert_CaptureWindowPastEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drive.pcap")
	twoFrameCapture(t, src)

	start, err := ParseStartBound("5")
	require.NoError(t, err)
	err = Convert(src, filepath.Join(dir, "frames"), Options{
		To:    GenericPCD,
		Model: velodyne.VLP16,
		Mode:  velodyne.Strongest,
		Start: start,
	})
	assert.ErrorIs(t, err, ErrFrameRangeInvalid)
}
