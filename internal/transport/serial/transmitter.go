package serial

import (
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
	"github.com/nrfperiph/blestack/phy"
)

// Link is a link.Transmitter backed by a serial port. Writes are
// synchronized since the Link-Layer's real-time call site and any
// concurrent radio-command application (see ApplyRadioCmd) may run on
// different goroutines in the hosted (non-embedded) environment this
// stack targets.
type Link struct {
	mu   sync.Mutex
	port serial.Port

	txPayload [link.MinPayloadBuf]byte
}

// Open opens device at baud and wraps it as a Link.
func Open(device string, baud int) (*Link, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}
	return &Link{port: port}, nil
}

// Close closes the underlying serial port.
func (l *Link) Close() error {
	return l.port.Close()
}

// TxPayloadBuf implements link.Transmitter.
func (l *Link) TxPayloadBuf() []byte {
	return l.txPayload[:]
}

// TransmitAdvertising implements link.Transmitter.
func (l *Link) TransmitAdvertising(header link.AdvHeader, channel phy.AdvertisingChannel) {
	payload := l.txPayload[:header.PayloadLength()]
	l.writeFrame(frameTxAdvertising, func(w *bytes.Writer) error {
		if err := w.WriteU8(channel.Index()); err != nil {
			return err
		}
		if err := w.WriteU16LE(header.ToU16()); err != nil {
			return err
		}
		return w.WriteSlice(payload)
	})
}

// TransmitData implements link.Transmitter.
func (l *Link) TransmitData(accessAddress, crcInit uint32, header link.Header, channel phy.DataChannel) {
	payload := l.txPayload[:header.PayloadLength()]
	l.writeFrame(frameTxData, func(w *bytes.Writer) error {
		if err := w.WriteU8(channel.Index()); err != nil {
			return err
		}
		if err := w.WriteU32LE(accessAddress); err != nil {
			return err
		}
		if err := w.WriteU32LE(crcInit); err != nil {
			return err
		}
		if err := w.WriteU16LE(header.ToU16()); err != nil {
			return err
		}
		return w.WriteSlice(payload)
	})
}

// ApplyRadioCmd sends a link.RadioCmd to the coprocessor, telling it what
// to listen for (or to turn the radio off). This isn't part of
// link.Transmitter; it's called by the driver loop after every LinkLayer
// method returns a Cmd.
func (l *Link) ApplyRadioCmd(cmd link.RadioCmd) error {
	switch cmd.Kind {
	case link.RadioOff:
		return l.writeFrame(frameRadioOff, func(*bytes.Writer) error { return nil })

	case link.RadioListenAdvertising:
		return l.writeFrame(frameListenAdvertising, func(w *bytes.Writer) error {
			return w.WriteU8(cmd.AdvChannel.Index())
		})

	case link.RadioListenData:
		return l.writeFrame(frameListenData, func(w *bytes.Writer) error {
			if err := w.WriteU8(cmd.DataChannel.Index()); err != nil {
				return err
			}
			if err := w.WriteU32LE(cmd.AccessAddress); err != nil {
				return err
			}
			return w.WriteU32LE(cmd.CRCInit)
		})

	default:
		return fmt.Errorf("serial: unknown radio command kind %d", cmd.Kind)
	}
}

// writeFrame builds a frame via build, then writes it to the port.
// TransmitAdvertising/TransmitData discard its error, matching
// link.Transmitter's fire-and-forget signature (the real hardware
// equivalent cannot fail mid-transmission either); ApplyRadioCmd, which is
// not constrained by that interface, returns the error instead.
func (l *Link) writeFrame(kind frameKind, build func(w *bytes.Writer) error) error {
	var buf [maxFrameBody + 3]byte
	w := bytes.NewWriter(buf[:])
	bodyWriter, err := w.SplitOff(maxFrameBody)
	if err != nil {
		return err
	}
	left := bodyWriter.SpaceLeft()
	if err := build(bodyWriter); err != nil {
		return err
	}
	used := left - bodyWriter.SpaceLeft()

	var frame [3 + maxFrameBody]byte
	fw := bytes.NewWriter(frame[:])
	if err := writeFrame(fw, kind, buf[:used]); err != nil {
		return err
	}
	encoded := frame[:len(frame)-fw.SpaceLeft()]

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.port.Write(encoded)
	return err
}
