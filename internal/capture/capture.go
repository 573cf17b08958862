// Package capture writes a trace of on-air Link-Layer PDUs to a pcap file
// for offline inspection (Wireshark understands DLT_BLUETOOTH_LE_LL
// directly). It is purely an observability aid; nothing in the stack
// depends on it being present.
package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/nrfperiph/blestack/link"
)

// maxPduSize bounds the largest PDU this stack ever captures: a 2-byte
// header plus the largest payload the queue carries.
const maxPduSize = 2 + link.MinPayloadBuf

// Writer appends captured PDUs to a pcap stream using the Bluetooth LE
// Link Layer link type.
type Writer struct {
	pcap  *pcapgo.Writer
	epoch time.Time
}

// NewWriter creates a Writer over w, writing the pcap file header
// immediately. epoch is the wall-clock time corresponding to link.Instant
// zero, used to convert captured instants into absolute timestamps.
func NewWriter(w io.Writer, epoch time.Time) (*Writer, error) {
	pcap := pcapgo.NewWriter(w)
	if err := pcap.WriteFileHeader(maxPduSize, layers.LinkTypeBluetoothLELL); err != nil {
		return nil, fmt.Errorf("capture: write file header: %w", err)
	}
	return &Writer{pcap: pcap, epoch: epoch}, nil
}

// WritePacket appends one captured PDU (header + payload, already on-air
// byte order) timestamped at instant.
func (w *Writer) WritePacket(instant link.Instant, header link.Header, payload []byte) error {
	raw := make([]byte, 0, 2+len(payload))
	raw = append(raw, byte(header.ToU16()), byte(header.ToU16()>>8))
	raw = append(raw, payload...)

	ci := gopacket.CaptureInfo{
		Timestamp:     w.epoch.Add(time.Duration(instant) * time.Microsecond),
		CaptureLength: len(raw),
		Length:        len(raw),
	}
	return w.pcap.WritePacket(ci, raw)
}
