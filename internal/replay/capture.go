// Package replay feeds recorded or synthetic telemetry into a running
// endpoint: TCP payloads pulled from pcap/pcapng captures, fragmented and
// written in order.
package replay

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const pcapngMagic = 0x0A0D0D0A

var ErrNoPayloads = errors.New("replay: no matching tcp payloads")

// Filter selects which TCP segments a capture contributes. Zero ports match
// any port.
type Filter struct {
	SrcPort uint16
	DstPort uint16
}

func (f Filter) match(tcp *layers.TCP) bool {
	if f.SrcPort != 0 && uint16(tcp.SrcPort) != f.SrcPort {
		return false
	}
	if f.DstPort != 0 && uint16(tcp.DstPort) != f.DstPort {
		return false
	}
	return len(tcp.Payload) > 0
}

type packetSource interface {
	LinkType() layers.LinkType
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
}

// ReadCaptureFile extracts matching TCP payloads from the capture at path.
func ReadCaptureFile(path string, f Filter) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCapture(file, f)
}

// ReadCapture extracts matching TCP payloads, in capture order, from a pcap
// or pcapng stream.
func ReadCapture(r io.Reader, f Filter) ([][]byte, error) {
	src, err := openSource(r)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	for {
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("replay: read packet: %w", err)
		}
		pkt := gopacket.NewPacket(data, src.LinkType(), gopacket.Default)
		layer := pkt.Layer(layers.LayerTypeTCP)
		if layer == nil {
			continue
		}
		tcp, ok := layer.(*layers.TCP)
		if !ok || !f.match(tcp) {
			continue
		}
		payload := make([]byte, len(tcp.Payload))
		copy(payload, tcp.Payload)
		out = append(out, payload)
	}
	if len(out) == 0 {
		return nil, ErrNoPayloads
	}
	return out, nil
}

func openSource(r io.Reader) (packetSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("replay: read capture magic: %w", err)
	}
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}
