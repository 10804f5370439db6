package velodyne

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReadFrames decodes a pcap capture and invokes emit once per assembled
// frame, in capture order. Non-UDP packets and UDP payloads that are not
// valid data packets are skipped; a trailing partial rotation is emitted
// as the final frame.
func ReadFrames(path string, cfg *Config, emit func(Frame) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("read capture %s: %w", path, err)
	}

	builder := newFrameBuilder(cfg, emit)
	packetCount := 0
	skipped := 0
	for {
		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("capture %s, packet %d: %w", path, packetCount+1, err)
		}
		packetCount++

		payload := udpPayload(data, r.LinkType())
		if payload == nil || len(payload) != PacketSize {
			skipped++
			continue
		}
		pkt, err := ParsePacket(payload)
		if err != nil {
			skipped++
			continue
		}
		if err := builder.feed(pkt); err != nil {
			return fmt.Errorf("capture %s, packet %d: %w", path, packetCount, err)
		}
	}
	if skipped > 0 {
		log.Printf("capture %s: skipped %d of %d packets without sensor payloads", path, skipped, packetCount)
	}
	return builder.flush()
}

// CountFrames runs a full decode pass over the capture and returns the
// total frame count. Callers needing a bounded frame range pay this scan
// before the extraction pass.
func CountFrames(path string, cfg *Config) (int, error) {
	count := 0
	err := ReadFrames(path, cfg, func(Frame) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// udpPayload extracts the UDP payload from a raw captured packet.
func udpPayload(data []byte, linkType layers.LinkType) []byte {
	packet := gopacket.NewPacket(data, linkType, gopacket.NoCopy)
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil
	}
	return udp.Payload
}
