package serial

import (
	"fmt"
	"io"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
)

// Event is a packet reported by the coprocessor: either an advertising or a
// data channel PDU, decoded as far as framing goes (header + raw payload).
// The caller hands it to LinkLayer.ProcessAdvPacket/ProcessDataPacket.
type Event struct {
	Adv     bool
	CrcOk   bool
	AdvHdr  link.AdvHeader
	DataHdr link.Header
	Payload []byte
}

// ReadEvent blocks until the coprocessor reports a received packet,
// decodes it, and returns it. It is meant to be called in a loop from the
// driver's RX goroutine.
func (l *Link) ReadEvent() (Event, error) {
	kind, body, err := l.readFrame()
	if err != nil {
		return Event{}, err
	}

	r := bytes.NewReader(body)
	switch kind {
	case frameRxAdvertising:
		crcOk, err := r.ReadU8()
		if err != nil {
			return Event{}, err
		}
		hdr, err := r.ReadU16LE()
		if err != nil {
			return Event{}, err
		}
		return Event{Adv: true, CrcOk: crcOk != 0, AdvHdr: link.AdvHeader(hdr), Payload: r.ReadRest()}, nil

	case frameRxData:
		crcOk, err := r.ReadU8()
		if err != nil {
			return Event{}, err
		}
		hdr, err := r.ReadU16LE()
		if err != nil {
			return Event{}, err
		}
		return Event{Adv: false, CrcOk: crcOk != 0, DataHdr: link.Header(hdr), Payload: r.ReadRest()}, nil

	default:
		return Event{}, fmt.Errorf("serial: unexpected frame kind %#02x from coprocessor", uint8(kind))
	}
}

// readFrame reads one length-prefixed frame off the port, blocking as
// needed across multiple port.Read calls.
func (l *Link) readFrame() (frameKind, []byte, error) {
	head := make([]byte, 3)
	if err := l.readFull(head); err != nil {
		return 0, nil, err
	}

	r := bytes.NewReader(head)
	kind, length, err := readFrameHeader(r)
	if err != nil {
		return 0, nil, err
	}

	body := make([]byte, length)
	if err := l.readFull(body); err != nil {
		return 0, nil, err
	}
	return kind, body, nil
}

// readFull fills buf entirely, issuing repeated port.Read calls the way
// io.ReadFull does for an io.Reader whose single reads may be short.
func (l *Link) readFull(buf []byte) error {
	_, err := io.ReadFull(l.port, buf)
	return err
}
